package ragblade

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ragblade/domain"
	"github.com/flarexio/ragblade/persistence/chromem"
	"github.com/flarexio/ragblade/vector"
	"github.com/flarexio/ragblade/vector/vectortest"
)

type ragBladeTestSuite struct {
	suite.Suite
	ctx   context.Context
	model *echoModel
	svc   Service
}

func (suite *ragBladeTestSuite) SetupTest() {
	cfg := DefaultConfig()
	cfg.Vector = vector.Config{
		Backend:   vector.BackendMemory,
		Dimension: 128,
	}

	store, err := chromem.NewChromemStore(cfg.Vector)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	collection := vector.New(store, vectortest.NewHashEmbedder(128), cfg.Vector)

	suite.ctx = context.Background()
	suite.model = &echoModel{}
	suite.svc = NewService(cfg, collection, suite.model)
}

func (suite *ragBladeTestSuite) TearDownTest() {
	suite.svc.Close()
}

func (suite *ragBladeTestSuite) TestIngestText() {
	n, err := suite.svc.IngestText(suite.ctx, "The sky is blue.")
	suite.NoError(err)
	suite.Equal(1, n)

	stats, err := suite.svc.Stats(suite.ctx)
	suite.NoError(err)
	suite.Equal(1, stats.Count)
	suite.Equal("chaicode-collection", stats.Collection)
}

func (suite *ragBladeTestSuite) TestIngestEmptyText() {
	_, err := suite.svc.IngestText(suite.ctx, "   \n\t ")
	suite.ErrorIs(err, domain.ErrEmptyInput)
	suite.ErrorIs(err, domain.ErrInvalidInput)
}

func (suite *ragBladeTestSuite) TestIngestLongText() {
	paragraph := strings.Repeat("Go is an open source programming language. ", 20)
	text := strings.Repeat(paragraph+"\n\n", 5)

	n, err := suite.svc.IngestText(suite.ctx, text)
	suite.NoError(err)
	suite.Greater(n, 1)

	stats, err := suite.svc.Stats(suite.ctx)
	suite.NoError(err)
	suite.Equal(n, stats.Count)
}

func (suite *ragBladeTestSuite) TestIngestFile() {
	file := File{
		Filename: "facts.csv",
		MIMEType: "text/csv",
		Data:     []byte("color,thing\nblue,sky\ngreen,grass\n"),
	}

	n, err := suite.svc.IngestFile(suite.ctx, file)
	suite.NoError(err)
	suite.Equal(1, n)

	reply, err := suite.svc.Chat(suite.ctx, "what is blue?")
	suite.NoError(err)
	suite.Contains(reply, "Document 1 (facts.csv):\ncolor,thing")
}

func (suite *ragBladeTestSuite) TestIngestFileErrors() {
	_, err := suite.svc.IngestFile(suite.ctx, File{})
	suite.ErrorIs(err, domain.ErrNoFile)

	_, err = suite.svc.IngestFile(suite.ctx, File{
		Filename: "big.txt",
		MIMEType: "text/plain",
		Data:     make([]byte, MaxUploadSize+1),
	})
	suite.ErrorIs(err, domain.ErrFileTooLarge)

	_, err = suite.svc.IngestFile(suite.ctx, File{
		Filename: "photo.png",
		MIMEType: "image/png",
		Data:     []byte("\x89PNG\r\n\x1a\n"),
	})
	suite.ErrorIs(err, domain.ErrUnsupportedType)
}

func (suite *ragBladeTestSuite) TestIngestURL() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Sky</title></head><body>
			<nav>Home</nav><p>The sky is blue.</p><footer>(c)</footer></body></html>`))
	}))
	defer server.Close()

	n, err := suite.svc.IngestURL(suite.ctx, server.URL)
	suite.NoError(err)
	suite.Equal(1, n)

	reply, err := suite.svc.Chat(suite.ctx, "What color is the sky?")
	suite.NoError(err)
	suite.Contains(reply, "("+server.URL+"):\nThe sky is blue.")
	suite.NotContains(reply, "Home")
}

func (suite *ragBladeTestSuite) TestIngestUnreachableURL() {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := suite.svc.IngestURL(suite.ctx, url)
	suite.ErrorIs(err, domain.ErrScrapeFailed)
}

func (suite *ragBladeTestSuite) TestChatEmptyStore() {
	reply, err := suite.svc.Chat(suite.ctx, "What color is the sky?")
	suite.NoError(err)
	suite.Equal(NoResultsReply, reply)
	suite.Zero(suite.model.calls)
}

func (suite *ragBladeTestSuite) TestChatMissingMessage() {
	_, err := suite.svc.Chat(suite.ctx, "  ")
	suite.ErrorIs(err, domain.ErrMissingMessage)
}

func (suite *ragBladeTestSuite) TestChat() {
	_, err := suite.svc.IngestText(suite.ctx, "The sky is blue.")
	suite.NoError(err)

	reply, err := suite.svc.Chat(suite.ctx, "What color is the sky?")
	suite.NoError(err)
	suite.Contains(reply, "blue")
	suite.Contains(reply, "direct-input")
	suite.Equal(1, suite.model.calls)
}

func (suite *ragBladeTestSuite) TestChatModelFailure() {
	_, err := suite.svc.IngestText(suite.ctx, "The sky is blue.")
	suite.NoError(err)

	suite.model.err = errors.New("model unavailable")

	_, err = suite.svc.Chat(suite.ctx, "What color is the sky?")
	suite.ErrorIs(err, domain.ErrAnswerGeneration)
}

func (suite *ragBladeTestSuite) TestClear() {
	_, err := suite.svc.IngestText(suite.ctx, "The sky is blue.")
	suite.NoError(err)

	suite.NoError(suite.svc.Clear(suite.ctx))

	stats, err := suite.svc.Stats(suite.ctx)
	suite.NoError(err)
	suite.Zero(stats.Count)

	reply, err := suite.svc.Chat(suite.ctx, "What color is the sky?")
	suite.NoError(err)
	suite.Equal(NoResultsReply, reply)
}

func (suite *ragBladeTestSuite) TestDeadline() {
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.svc.IngestText(ctx, "The sky is blue.")
	suite.ErrorIs(err, context.Canceled)
}

func (suite *ragBladeTestSuite) TestProxy() {
	endpoints := NewEndpointSet(suite.svc)
	proxy := ProxyMiddleware(endpoints)(nil)

	n, err := proxy.IngestText(suite.ctx, "The sky is blue.")
	suite.NoError(err)
	suite.Equal(1, n)

	reply, err := proxy.Chat(suite.ctx, "What color is the sky?")
	suite.NoError(err)
	suite.Contains(reply, "blue")

	stats, err := proxy.Stats(suite.ctx)
	suite.NoError(err)
	suite.Equal(1, stats.Count)
	suite.Equal(vector.BackendMemory, stats.Backend)

	suite.NoError(proxy.Clear(suite.ctx))

	_, err = proxy.IngestText(suite.ctx, "")
	suite.ErrorIs(err, domain.ErrEmptyInput)
}

func TestRagBladeTestSuite(t *testing.T) {
	suite.Run(t, new(ragBladeTestSuite))
}
