package ragblade

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// CountTokens estimates the prompt size in cl100k_base tokens. Gemini uses
// its own tokenizer, so the count is only an approximation for logs. The
// encoding is embedded and never fetched over the network.
func CountTokens(text string) (int, error) {
	encOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})

	if encErr != nil {
		return 0, encErr
	}

	return len(enc.Encode(text, nil, nil)), nil
}
