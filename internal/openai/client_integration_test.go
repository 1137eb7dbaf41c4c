//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlcilliers/cvchat/internal/domain"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	embedding, err := client.GenerateEmbedding(context.Background(), "Staff engineer with ten years of Go experience.")

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
}

func TestIntegration_GenerateAnswer_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	answer, err := client.GenerateAnswer(context.Background(),
		"Answer only from context.\n\nContext from CV:\n[chunk-0]: Jane Doe works at Acme as a staff engineer.",
		[]domain.Message{{Role: domain.RoleUser, Content: "Where does Jane work?"}},
	)

	require.NoError(t, err)
	assert.Contains(t, answer, "Acme")
}
