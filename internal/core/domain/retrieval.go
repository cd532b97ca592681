package domain

import "sort"

// ScoredChunk is a retrieved chunk with its similarity to the query
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is an ordered sequence of scored chunks, best first
type RetrievalResult []ScoredChunk

// SortScored orders results by descending score, breaking ties by
// ascending sequence index so earlier chunks win.
func SortScored(results []ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.SequenceIndex < results[j].Chunk.SequenceIndex
	})
}

// Contains reports whether the result holds a chunk with the given ID
func (r RetrievalResult) Contains(chunkID string) bool {
	for _, sc := range r {
		if sc.Chunk != nil && sc.Chunk.ID == chunkID {
			return true
		}
	}
	return false
}

// TopScore returns the best score, or 0 for an empty result
func (r RetrievalResult) TopScore() float64 {
	if len(r) == 0 {
		return 0
	}
	return r[0].Score
}

// Chunks returns the chunks in result order
func (r RetrievalResult) Chunks() []*Chunk {
	chunks := make([]*Chunk, 0, len(r))
	for _, sc := range r {
		chunks = append(chunks, sc.Chunk)
	}
	return chunks
}
