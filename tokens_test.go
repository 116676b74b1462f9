package ragblade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokensOffline(t *testing.T) {
	assert := assert.New(t)

	n, err := CountTokens("hello world")
	require.NoError(t, err)
	assert.Equal(2, n)

	n, err = CountTokens("")
	require.NoError(t, err)
	assert.Zero(n)
}
