package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/domain"
	"github.com/flarexio/ragblade/persistence/chromem"
	"github.com/flarexio/ragblade/vector"
	"github.com/flarexio/ragblade/vector/vectortest"

	mcpE "github.com/flarexio/ragblade/mcp"
)

// echoModel replies with its prompt. With block set it waits for the
// request deadline instead.
type echoModel struct {
	block bool
}

func (m *echoModel) Generate(ctx context.Context, prompt string) (string, error) {
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	return prompt, nil
}

type httpTestSuite struct {
	suite.Suite
	cfg    ragblade.Config
	model  *echoModel
	svc    ragblade.Service
	router *gin.Engine
}

func (suite *httpTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (suite *httpTestSuite) SetupTest() {
	cfg := ragblade.DefaultConfig()
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

	suite.cfg = cfg
	suite.model = &echoModel{}
	suite.svc = ragblade.NewService(cfg, collection, suite.model)
	suite.router = newRouter(cfg, suite.svc)
}

func newRouter(cfg ragblade.Config, svc ragblade.Service) *gin.Engine {
	r := gin.New()
	AddRouters(r, ragblade.NewEndpointSet(svc), cfg.Timeouts)
	AddStreamableRouters(r, mcpE.NewEndpoints(svc))
	return r
}

func (suite *httpTestSuite) do(req *http.Request) (int, map[string]any) {
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		suite.Fail("invalid json body", w.Body.String())
	}

	return w.Code, body
}

func (suite *httpTestSuite) postJSON(path string, body string) (int, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return suite.do(req)
}

func uploadRequest(filename, contentType string, data []byte) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)

	part, _ := mw.CreatePart(header)
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (suite *httpTestSuite) TestAddText() {
	code, body := suite.postJSON("/api/text", `{"text": "The sky is blue."}`)
	suite.Equal(http.StatusOK, code)
	suite.Equal("Text added successfully", body["message"])
	suite.Equal(float64(1), body["chunks"])
}

func (suite *httpTestSuite) TestAddEmptyText() {
	code, body := suite.postJSON("/api/text", `{"text": "   "}`)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("Text is required", body["error"])

	code, _ = suite.postJSON("/api/text", ``)
	suite.Equal(http.StatusBadRequest, code)
}

func (suite *httpTestSuite) TestUploadNoFile() {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	code, body := suite.do(req)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("No file uploaded.", body["error"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()

	req = httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	code, body = suite.do(req)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("No file uploaded.", body["error"])
}

func (suite *httpTestSuite) TestUploadText() {
	code, body := suite.do(uploadRequest("notes.txt", "text/plain", []byte("The sky is blue.\n\nGrass is green.")))
	suite.Equal(http.StatusOK, code)
	suite.Equal("File processed successfully", body["message"])
	suite.Equal(float64(1), body["chunks"])
}

func (suite *httpTestSuite) TestUploadUnsupported() {
	code, body := suite.do(uploadRequest("photo.png", "image/png", []byte("\x89PNG\r\n\x1a\n")))
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("Unsupported file type. Please upload PDF, TXT, or CSV files.", body["error"])
}

func (suite *httpTestSuite) TestUploadTooLarge() {
	data := bytes.Repeat([]byte("a"), int(ragblade.MaxUploadSize)+10)

	code, body := suite.do(uploadRequest("big.txt", "text/plain", data))
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("File too large. Maximum size is 10MB.", body["error"])
}

func (suite *httpTestSuite) TestChat() {
	code, _ := suite.postJSON("/api/text", `{"text": "The sky is blue."}`)
	suite.Equal(http.StatusOK, code)

	code, body := suite.postJSON("/api/chat", `{"message": "What color is the sky?"}`)
	suite.Equal(http.StatusOK, code)

	reply, _ := body["reply"].(string)
	suite.Contains(reply, "blue")
	suite.Contains(reply, "direct-input")
}

func (suite *httpTestSuite) TestChatEmptyStore() {
	code, body := suite.postJSON("/api/chat", `{"message": "What color is the sky?"}`)
	suite.Equal(http.StatusOK, code)
	suite.Equal(ragblade.NoResultsReply, body["reply"])
}

func (suite *httpTestSuite) TestChatMissingMessage() {
	code, body := suite.postJSON("/api/chat", `{}`)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("Message is required", body["error"])
}

func (suite *httpTestSuite) TestChatTimeout() {
	code, _ := suite.postJSON("/api/text", `{"text": "The sky is blue."}`)
	suite.Equal(http.StatusOK, code)

	suite.model.block = true

	cfg := suite.cfg
	cfg.Timeouts.Chat = ragblade.Duration(50 * time.Millisecond)
	suite.router = newRouter(cfg, suite.svc)

	code, body := suite.postJSON("/api/chat", `{"message": "What color is the sky?"}`)
	suite.Equal(http.StatusRequestTimeout, code)
	suite.Equal("Request timed out", body["error"])
}

func (suite *httpTestSuite) TestScrapeUnreachable() {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	code, body := suite.postJSON("/api/scrape", `{"url": "`+url+`"}`)
	suite.Equal(http.StatusInternalServerError, code)
	suite.Equal("Failed to scrape website", body["error"])
	suite.NotEmpty(body["details"])
}

func (suite *httpTestSuite) TestScrape() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><script>var x;</script><p>The sky is blue.</p></body></html>`))
	}))
	defer server.Close()

	code, body := suite.postJSON("/api/scrape", `{"url": "`+server.URL+`"}`)
	suite.Equal(http.StatusOK, code)
	suite.Equal("Website scraped successfully", body["message"])
	suite.Equal(float64(1), body["chunks"])
}

func (suite *httpTestSuite) TestScrapeErrors() {
	code, body := suite.postJSON("/api/scrape", `{"url": ""}`)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("URL is required", body["error"])

	code, body = suite.postJSON("/api/scrape", `{"url": "ftp://example.com"}`)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("Invalid URL", body["error"])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><nav>menu</nav></body></html>`))
	}))
	defer server.Close()

	code, body = suite.postJSON("/api/scrape", `{"url": "`+server.URL+`"}`)
	suite.Equal(http.StatusBadRequest, code)
	suite.Equal("No content found on the website", body["error"])
}

func (suite *httpTestSuite) TestStoreStatsAndClear() {
	suite.postJSON("/api/text", `{"text": "The sky is blue."}`)

	code, body := suite.do(httptest.NewRequest(http.MethodGet, "/api/store/stats", nil))
	suite.Equal(http.StatusOK, code)
	suite.Equal("ready", body["status"])
	suite.Equal("Vector store is ready", body["message"])
	suite.Equal("chaicode-collection", body["collection"])
	suite.Equal(float64(1), body["count"])

	code, body = suite.do(httptest.NewRequest(http.MethodDelete, "/api/store/clear", nil))
	suite.Equal(http.StatusOK, code)
	suite.Equal("Vector store cleared successfully", body["message"])

	_, body = suite.do(httptest.NewRequest(http.MethodGet, "/api/store/stats", nil))
	suite.Equal(float64(0), body["count"])
}

func (suite *httpTestSuite) TestHealthz() {
	code, body := suite.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	suite.Equal(http.StatusOK, code)
	suite.Equal("ok", body["status"])
}

func (suite *httpTestSuite) TestMCP() {
	code, body := suite.postJSON("/mcp/", `{"jsonrpc": "2.0", "id": 1, "method": "ping"}`)
	suite.Equal(http.StatusOK, code)
	suite.Equal("2.0", body["jsonrpc"])

	code, body = suite.postJSON("/mcp/", `{"jsonrpc": "2.0", "id": 2, "method": "resources/list"}`)
	suite.Equal(http.StatusNotFound, code)
	suite.NotNil(body["error"])
}

func TestHTTPTestSuite(t *testing.T) {
	suite.Run(t, new(httpTestSuite))
}

// failingGateway stores two chunks and then loses the store.
type failingGateway struct{}

func (failingGateway) AddChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	return 2, &domain.IngestionFailedError{
		Added: 2,
		Total: len(chunks),
		Err:   domain.ErrStoreUnavailable,
	}
}

func (failingGateway) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	return nil, domain.ErrStoreUnavailable
}

func (failingGateway) Clear(ctx context.Context) error {
	return domain.ErrStoreUnavailable
}

func (failingGateway) Stats(ctx context.Context) (vector.Stats, error) {
	return vector.Stats{}, domain.ErrStoreUnavailable
}

func (failingGateway) Close() error {
	return nil
}

func TestUpstreamFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := ragblade.DefaultConfig()
	r := newRouter(cfg, ragblade.NewService(cfg, failingGateway{}, &echoModel{}))

	tests := []struct {
		method  string
		path    string
		body    string
		message string
		chunks  any
	}{
		{http.MethodPost, "/api/text", `{"text": "The sky is blue."}`, "Failed to process text", float64(2)},
		{http.MethodPost, "/api/chat", `{"message": "What color is the sky?"}`, "Failed to generate response", nil},
		{http.MethodGet, "/api/store/stats", ``, "Failed to get store stats", nil},
		{http.MethodDelete, "/api/store/clear", ``, "Failed to clear vector store", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert := assert.New(t)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				assert.Fail(err.Error())
				return
			}

			assert.Equal(http.StatusInternalServerError, w.Code)
			assert.Equal(tt.message, body["error"])
			assert.Equal(tt.chunks, body["chunks"])
			assert.NotEmpty(body["details"])
		})
	}
}
