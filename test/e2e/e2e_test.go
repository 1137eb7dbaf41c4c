//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/jobs"
	"github.com/jlcilliers/cvchat/internal/repository"
	"github.com/jlcilliers/cvchat/internal/service"
	"github.com/jlcilliers/cvchat/internal/testutil"
)

func repeatLines(line string, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line
	}
	return lines
}

// cvPDF renders a three-section CV where only the middle section mentions
// kubernetes.
func cvPDF() []byte {
	var lines []string
	lines = append(lines, repeatLines("Studied applied mathematics at the university with python coursework.", 12)...)
	lines = append(lines, repeatLines("Kubernetes cluster operations lead for the payments platform team.", 12)...)
	lines = append(lines, repeatLines("Mentored junior engineer hires and organised weekly reading groups.", 12)...)
	return testutil.MinimalPDF(lines...)
}

type searchResult struct {
	Results []domain.Chunk `json:"results"`
}

func TestE2E_UploadSearchChat(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	srv := env.StartServer(ServerOptions{Answers: true, Archived: true})

	pdf := cvPDF()

	t.Run("upload indexes the CV", func(t *testing.T) {
		resp := env.Upload(srv.URL+"/api/admin/upload", "jane-doe.pdf", pdf, adminToken)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)

		var result domain.IngestResult
		resp.Decode(t, &result)
		assert.GreaterOrEqual(t, result.Chunks, 3)
		assert.Greater(t, result.Tokens, 500)

		var stored int
		require.NoError(t, env.Pool.QueryRow(env.Ctx, "SELECT COUNT(*) FROM index_entries").Scan(&stored))
		assert.Equal(t, 1, stored)
	})

	t.Run("index status", func(t *testing.T) {
		resp := env.Get(srv.URL+"/api/admin/index", adminToken)
		require.Equal(t, http.StatusOK, resp.Status)

		var status domain.IndexStatus
		resp.Decode(t, &status)
		assert.True(t, status.Indexed)
		assert.Equal(t, "lexical", status.Mode)
	})

	t.Run("search ranks the kubernetes section first", func(t *testing.T) {
		resp := env.Post(srv.URL+"/api/search", map[string]any{"query": "kubernetes operations", "top_k": 2})
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)

		var result searchResult
		resp.Decode(t, &result)
		require.NotEmpty(t, result.Results)
		assert.Contains(t, strings.ToLower(result.Results[0].Text), "kubernetes")
	})

	t.Run("chat answers with sources", func(t *testing.T) {
		resp := env.Post(srv.URL+"/api/chat", map[string]any{
			"messages": []domain.Message{{Role: "user", Content: "What did Jane lead?"}},
		})
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)

		var reply domain.ChatReply
		resp.Decode(t, &reply)
		assert.Equal(t, fakeAnswer, reply.Content)
		assert.NotEmpty(t, reply.Sources)
		assert.LessOrEqual(t, len(reply.Sources), 3)
		assert.Equal(t, int32(1), env.OpenAI.chatCalls.Load())
	})

	t.Run("archived document downloads", func(t *testing.T) {
		resp := env.Get(srv.URL+"/api/admin/document", adminToken)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)

		var doc struct {
			URL string `json:"url"`
		}
		resp.Decode(t, &doc)
		downloaded, err := env.DownloadFile(doc.URL)
		require.NoError(t, err)
		assert.Equal(t, pdf, downloaded)
	})

	t.Run("rejected uploads leave the index alone", func(t *testing.T) {
		resp := env.Upload(srv.URL+"/api/admin/upload", "notes.txt", []byte("plain text"), adminToken)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "only PDF files are supported", resp.Error)

		status := env.Get(srv.URL+"/api/admin/index", adminToken)
		var s domain.IndexStatus
		status.Decode(t, &s)
		assert.True(t, s.Indexed)
	})
}

func TestE2E_AdminRequiresToken(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	srv := env.StartServer(ServerOptions{})

	resp := env.Upload(srv.URL+"/api/admin/upload", "cv.pdf", cvPDF(), "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.Get(srv.URL+"/api/admin/index", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = env.Post(srv.URL+"/api/chat", map[string]any{"messages": []domain.Message{{Role: "user", Content: "hi"}}})
	require.Equal(t, http.StatusOK, resp.Status)
	var reply domain.ChatReply
	resp.Decode(t, &reply)
	assert.Equal(t, service.DefaultChatConfig().NotConfiguredMessage, reply.Content)
}

func TestE2E_RestoreAfterRestart(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	first := env.StartServer(ServerOptions{Store: repository.NewMemoryIndexStore(), Archived: true})
	resp := env.Upload(first.URL+"/api/admin/upload", "cv.pdf", cvPDF(), adminToken)
	require.Equal(t, http.StatusOK, resp.Status, resp.Error)

	second := env.StartServer(ServerOptions{Store: repository.NewMemoryIndexStore(), Archived: true})
	status := env.Get(second.URL+"/api/admin/index", adminToken)
	var before domain.IndexStatus
	status.Decode(t, &before)
	require.False(t, before.Indexed)

	require.NoError(t, jobs.NewIndexRestorer(second.Ingestion, second.Archive).RunOnce(env.Ctx))

	search := env.Post(second.URL+"/api/search", map[string]any{"query": "kubernetes"})
	var result searchResult
	search.Decode(t, &result)
	require.NotEmpty(t, result.Results)
	assert.Contains(t, strings.ToLower(result.Results[0].Text), "kubernetes")
}

func TestE2E_SemanticModeOnObjectStore(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	srv := env.StartServer(ServerOptions{
		Store: repository.NewObjectIndexStore(env.S3Client),
		Mode:  service.ModeSemantic,
	})

	resp := env.Upload(srv.URL+"/api/admin/upload", "cv.pdf", cvPDF(), adminToken)
	require.Equal(t, http.StatusOK, resp.Status, resp.Error)

	raw, err := env.S3Client.GetObject(env.Ctx, repository.IndexObjectKey)
	require.NoError(t, err)
	var bundle map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &bundle))
	assert.Contains(t, bundle, service.ChunksKey)
	assert.Contains(t, bundle, service.EmbeddingsKey)

	search := env.Post(srv.URL+"/api/search", map[string]any{"query": "who was the cluster lead?", "top_k": 1})
	require.Equal(t, http.StatusOK, search.Status, search.Error)
	var result searchResult
	search.Decode(t, &result)
	require.Len(t, result.Results, 1)
	assert.Contains(t, strings.ToLower(result.Results[0].Text), "cluster")
}

func TestE2E_CLIWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()
	srv := env.StartServer(ServerOptions{Answers: true})

	cvPath := t.TempDir() + "/jane-doe.pdf"
	require.NoError(t, writeFile(cvPath, cvPDF()))

	t.Run("cvchat upload", func(t *testing.T) {
		output, err := env.RunCLI(srv.URL, "", "upload", cvPath, "--output", "json")
		require.NoError(t, err, "upload failed: %s", output)
		assert.Contains(t, output, `"chunks"`)
	})

	t.Run("cvchat search", func(t *testing.T) {
		output, err := env.RunCLI(srv.URL, "", "search", "kubernetes", "-k", "1")
		require.NoError(t, err, "search failed: %s", output)
		assert.Contains(t, output, "[chunk-")
		assert.Contains(t, strings.ToLower(output), "kubernetes")
	})

	t.Run("cvchat ask", func(t *testing.T) {
		output, err := env.RunCLI(srv.URL, "", "ask", "What did Jane lead?")
		require.NoError(t, err, "ask failed: %s", output)
		assert.Contains(t, output, fakeAnswer)
		assert.Contains(t, output, "Sources:")
	})

	t.Run("cvchat status", func(t *testing.T) {
		output, err := env.RunCLI(srv.URL, "", "status")
		require.NoError(t, err, "status failed: %s", output)
		assert.Contains(t, output, "chunks indexed (mode lexical)")
	})
}
