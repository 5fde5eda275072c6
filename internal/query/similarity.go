package query

import "math"

// CosineSimilarity computes a·b / (|a||b|). Zero-magnitude vectors (or
// mismatched lengths) yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// SimilarityMatch is one result from SimilarityIndex.Search.
type SimilarityMatch struct {
	ID    string
	Score float64
}

// SimilarityIndex stores vectors keyed by node id and answers
// top-k cosine queries.
type SimilarityIndex struct {
	vectors map[string][]float32
}

// NewSimilarityIndex creates an empty index.
func NewSimilarityIndex() *SimilarityIndex {
	return &SimilarityIndex{vectors: make(map[string][]float32)}
}

// Add stores (or replaces) the vector for id.
func (s *SimilarityIndex) Add(id string, vector []float32) {
	s.vectors[id] = vector
}

// Remove deletes id's vector, if present.
func (s *SimilarityIndex) Remove(id string) {
	delete(s.vectors, id)
}

// Len returns the number of indexed vectors.
func (s *SimilarityIndex) Len() int {
	return len(s.vectors)
}

// Search returns up to k ids with cosine similarity to query at or above
// minScore, ranked descending.
func (s *SimilarityIndex) Search(query []float32, k int, minScore float64) []SimilarityMatch {
	var matches []SimilarityMatch
	for id, vec := range s.vectors {
		score := CosineSimilarity(query, vec)
		if score >= minScore {
			matches = append(matches, SimilarityMatch{ID: id, Score: score})
		}
	}

	sortMatchesDescending(matches)

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func sortMatchesDescending(matches []SimilarityMatch) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}
