//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jlcilliers/cvchat/internal/api/handlers"
	"github.com/jlcilliers/cvchat/internal/extract"
	"github.com/jlcilliers/cvchat/internal/openai"
	"github.com/jlcilliers/cvchat/internal/repository"
	"github.com/jlcilliers/cvchat/internal/server"
	"github.com/jlcilliers/cvchat/internal/service"
	"github.com/jlcilliers/cvchat/internal/storage"
	"github.com/jlcilliers/cvchat/internal/testutil"
)

const (
	adminToken    = "e2e-admin-token"
	fakeAnswer    = "Jane ran the Kubernetes platform [chunk-1]."
	fakeDimension = 8
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	S3Client   *storage.S3Client
	OpenAI     *fakeOpenAI
	HTTPClient *http.Client
	BinaryDir  string

	closers []func()
}

// SetupE2EEnv starts Postgres, RustFS and a fake OpenAI endpoint.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC)

	s3Client, err := storage.NewS3Client(ctx, s3C.S3Config("e2e-documents"))
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		OpenAI:     newFakeOpenAI(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.OpenAI.Close()
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// ServerOptions selects how a test server is wired.
type ServerOptions struct {
	Store    service.IndexStore
	Mode     service.RetrievalMode
	Answers  bool
	Archived bool
}

// TestServer is a running API server plus the services behind it.
type TestServer struct {
	URL       string
	Ingestion *service.IngestionService
	Archive   *storage.DocumentArchive
}

// StartServer wires the services the same way cvchatd does and serves them on
// a free port.
func (e *E2ETestEnv) StartServer(opts ServerOptions) *TestServer {
	if opts.Store == nil {
		opts.Store = repository.NewPostgresIndexStore(e.Pool)
	}
	if opts.Mode == "" {
		opts.Mode = service.ModeLexical
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              "sk-e2e",
		BaseURL:             e.OpenAI.URL + "/v1",
		EmbeddingDimensions: fakeDimension,
	})

	var embedder service.EmbeddingClient
	if opts.Mode == service.ModeSemantic {
		embedder = client
	}
	var answerer service.AnswerGenerator
	if opts.Answers {
		answerer = client
	}

	index := service.NewIndexRepository(opts.Store)
	ingestion, err := service.NewIngestionService(index, embedder, service.IngestionConfig{
		Mode:             opts.Mode,
		Chunk:            service.DefaultChunkConfig(),
		EmbedTimeout:     5 * time.Second,
		EmbedConcurrency: 2,
	})
	if err != nil {
		e.T.Fatalf("failed to create ingestion service: %v", err)
	}
	retriever, err := service.NewRetriever(opts.Mode, index, embedder, 5*time.Second)
	if err != nil {
		e.T.Fatalf("failed to create retriever: %v", err)
	}

	ts := &TestServer{Ingestion: ingestion}
	var archive service.DocumentArchive
	if opts.Archived {
		ts.Archive = storage.NewDocumentArchive(e.S3Client)
		archive = ts.Archive
	}

	uploads := service.NewUploadService(extract.NewPDFExtractor(), ingestion, archive)
	chat := service.NewChatService(retriever, answerer, service.DefaultChatConfig())

	router := server.NewRouter(server.RouterConfig{
		AdminToken:    adminToken,
		ChatHandler:   handlers.NewChatHandler(chat),
		SearchHandler: handlers.NewSearchHandler(retriever),
		AdminHandler:  handlers.NewAdminHandler(uploads, ingestion),
	})

	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	ts.URL = fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, ts.URL, 10*time.Second)

	e.closers = append(e.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return ts
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

func (e *E2ETestEnv) Get(url, token string) *APIResponse {
	return e.doRequest(http.MethodGet, url, nil, "", token)
}

func (e *E2ETestEnv) Post(url string, body any) *APIResponse {
	data, err := json.Marshal(body)
	if err != nil {
		e.T.Fatalf("failed to marshal body: %v", err)
	}
	return e.doRequest(http.MethodPost, url, bytes.NewReader(data), "application/json", "")
}

// Upload posts content as the multipart "file" field.
func (e *E2ETestEnv) Upload(url, filename string, content []byte, token string) *APIResponse {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		e.T.Fatalf("failed to create form file: %v", err)
	}
	part.Write(content)
	mw.Close()
	return e.doRequest(http.MethodPost, url, &body, mw.FormDataContentType(), token)
}

func (e *E2ETestEnv) doRequest(method, url string, body io.Reader, contentType, token string) *APIResponse {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		e.T.Fatalf("failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	apiResp := &APIResponse{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiResp); err != nil {
		e.T.Fatalf("%s %s: failed to decode response (status %d): %v", method, url, resp.StatusCode, err)
	}
	return apiResp
}

// Decode unmarshals the response data into v.
func (r *APIResponse) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Data, v); err != nil {
		t.Fatalf("failed to decode data %s: %v", r.Data, err)
	}
}

// DownloadFile fetches a presigned URL.
func (e *E2ETestEnv) DownloadFile(url string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// BuildBinaries builds the cvchat and cvchatd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "cvchat-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"cvchat", "cvchatd"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunCLI runs the cvchat client against serverURL.
func (e *E2ETestEnv) RunCLI(serverURL, stdin string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "cvchat"), args...)
	cmd.Dir = e.T.TempDir()
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(),
		"CVCHAT_API_URL="+serverURL,
		"CVCHAT_ADMIN_TOKEN="+adminToken,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// fakeOpenAI serves the embeddings and chat completions endpoints. Embeddings
// count a few CV keywords so related texts end up close together.
type fakeOpenAI struct {
	*httptest.Server
	chatCalls atomic.Int32
}

var embeddingKeywords = []string{"kubernetes", "golang", "payments", "lead", "university", "python", "cluster", "engineer"}

func newFakeOpenAI() *fakeOpenAI {
	f := &fakeOpenAI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i, text := range req.Input {
			data[i] = item{Object: "embedding", Index: i, Embedding: keywordVector(text)}
		}
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "fake"})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		f.chatCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-e2e",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": fakeAnswer},
			}},
		})
	})
	f.Server = httptest.NewServer(mux)
	return f
}

func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, fakeDimension)
	for i, kw := range embeddingKeywords {
		vec[i] = float32(strings.Count(lower, kw)) + 0.01
	}
	return vec
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server at %s did not become ready", url)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
