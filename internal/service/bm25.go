package service

import "math"

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25Score scores one document against a tokenized query using corpus-wide
// statistics. Query tokens absent from the document contribute nothing.
func BM25Score(queryTokens, docTokens []string, avgDocLen float64, docCount int, docFreqs map[string]int) float64 {
	if len(docTokens) == 0 || avgDocLen <= 0 {
		return 0
	}

	tf := make(map[string]int, len(docTokens))
	for _, t := range docTokens {
		tf[t]++
	}

	docLen := float64(len(docTokens))
	score := 0.0
	for _, qt := range queryTokens {
		f := float64(tf[qt])
		if f == 0 {
			continue
		}

		df := float64(docFreqs[qt])
		idf := math.Log((float64(docCount)-df+0.5)/(df+0.5) + 1)
		tfNorm := (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*docLen/avgDocLen))
		score += idf * tfNorm
	}

	return score
}

// corpusStats holds the per-query statistics BM25 needs over all chunks.
type corpusStats struct {
	docTokens [][]string
	avgDocLen float64
	docFreqs  map[string]int
}

func newCorpusStats(texts []string) corpusStats {
	stats := corpusStats{
		docTokens: make([][]string, len(texts)),
		docFreqs:  make(map[string]int),
	}
	if len(texts) == 0 {
		return stats
	}

	total := 0
	for i, text := range texts {
		tokens := Tokenize(text)
		stats.docTokens[i] = tokens
		total += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			stats.docFreqs[t]++
		}
	}
	stats.avgDocLen = float64(total) / float64(len(texts))

	return stats
}

func (s corpusStats) score(queryTokens []string, i int) float64 {
	return BM25Score(queryTokens, s.docTokens[i], s.avgDocLen, len(s.docTokens), s.docFreqs)
}
