package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBM25Score_RanksByTermFrequency(t *testing.T) {
	texts := []string{
		"terraform terraform terraform terraform terraform modules",
		"terraform modules",
		"python scripting modules",
	}
	stats := newCorpusStats(texts)
	query := Tokenize("terraform")

	five := stats.score(query, 0)
	one := stats.score(query, 1)
	zero := stats.score(query, 2)

	assert.Greater(t, five, one)
	assert.Greater(t, one, 0.0)
	assert.Equal(t, 0.0, zero)
}

func TestBM25Score_RareTermsWeighMore(t *testing.T) {
	texts := []string{
		"golang kubernetes",
		"golang docker",
		"golang terraform",
	}
	stats := newCorpusStats(texts)

	common := stats.score(Tokenize("golang"), 0)
	rare := stats.score(Tokenize("kubernetes"), 0)
	assert.Greater(t, rare, common)
}

func TestBM25Score_DegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, BM25Score([]string{"go"}, nil, 3, 1, map[string]int{"go": 1}))
	assert.Equal(t, 0.0, BM25Score([]string{"go"}, []string{"go"}, 0, 1, map[string]int{"go": 1}))
	assert.Equal(t, 0.0, BM25Score(nil, []string{"go"}, 1, 1, map[string]int{"go": 1}))
}

func TestNewCorpusStats(t *testing.T) {
	stats := newCorpusStats([]string{"rust rust systems", "rust web"})

	assert.Equal(t, 2, stats.docFreqs["rust"])
	assert.Equal(t, 1, stats.docFreqs["systems"])
	assert.InDelta(t, 2.5, stats.avgDocLen, 1e-9)

	empty := newCorpusStats(nil)
	assert.Zero(t, empty.avgDocLen)
}
