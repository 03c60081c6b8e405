//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vea-labs/docpipe/internal/api/handlers"
	"github.com/vea-labs/docpipe/internal/jobs"
	"github.com/vea-labs/docpipe/internal/repository"
	"github.com/vea-labs/docpipe/internal/server"
	"github.com/vea-labs/docpipe/internal/service"
	"github.com/vea-labs/docpipe/internal/storage"
	"github.com/vea-labs/docpipe/internal/testutil"
)

const testAPIKey = "e2e-test-key"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	S3Client     *storage.S3Client
	Ingestion    *jobs.IngestionWorker
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full test environment: containers, the real router,
// and an ingestion worker driven manually via RunIngestion. The embedding
// provider is stubbed so no external API is needed.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "docpipe-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser, ingestion := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		S3Client:     s3Client,
		Ingestion:    ingestion,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// SeedFile uploads a source file into the document store bucket.
func (e *E2ETestEnv) SeedFile(name string, content []byte, contentType string) {
	if err := e.S3Client.Upload(e.Ctx, name, content, contentType); err != nil {
		e.T.Fatalf("failed to seed file %q: %v", name, err)
	}
}

// RunIngestion drains the task queue once, as the background worker would on
// its next poll.
func (e *E2ETestEnv) RunIngestion() {
	if err := e.Ingestion.ProcessTasks(e.Ctx); err != nil {
		e.T.Fatalf("ingestion run failed: %v", err)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// stubAIClient is a deterministic stand-in for the embedding and chat
// provider. Every text embeds to the same unit vector, so any stored
// document is a perfect match for any question.
type stubAIClient struct{}

func (c *stubAIClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1536)
	vec[0] = 1.0
	return vec, nil
}

func (c *stubAIClient) GenerateChatCompletion(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return fmt.Sprintf("stub answer to: %s", userMessage), nil
}

// startServer wires the full pipeline against real Postgres and S3, with the
// AI provider stubbed.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func(), *jobs.IngestionWorker) {
	taskRepo := repository.NewIngestionTaskRepository(pool)
	vectorRepo := repository.NewDocumentVectorRepository(pool)

	ai := &stubAIClient{}

	discoverySvc := service.NewDiscoveryService(s3Client, taskRepo, &service.DefaultIDGenerator{})
	ingestSvc := service.NewIngestService(s3Client, &plainTextExtractor{}, ai, vectorRepo, service.DefaultChunkConfig(), 90*24*time.Hour)
	answerSvc := service.NewAnswerService(ai, vectorRepo, ai)

	ingestion := jobs.NewIngestionWorker(taskRepo, ingestSvc, jobs.DefaultBatchSize)

	router := server.NewRouter(server.RouterConfig{
		APIKey:           testAPIKey,
		IngestHandler:    handlers.NewIngestHandler(discoverySvc),
		AskHandler:       handlers.NewAskHandler(answerSvc),
		DocumentsHandler: handlers.NewDocumentsHandler(vectorRepo),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, ingestion
}

// plainTextExtractor avoids the docconv toolchain inside containers; e2e
// fixtures are plain text.
type plainTextExtractor struct{}

func (x *plainTextExtractor) Extract(ctx context.Context, path, filename, contentType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
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
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
