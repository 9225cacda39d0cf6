package directory

import "strings"

// DefaultSimilarityThreshold is the minimum edit-distance similarity a
// candidate must exceed to be considered a match.
const DefaultSimilarityThreshold = 0.6

// FindBestMatch resolves a free-text query against the candidate list and
// returns the best candidate with its confidence score.
//
// Per candidate, case-insensitively, the first satisfied rule wins:
//  1. exact equality with the candidate's display name returns that candidate
//     immediately with confidence 1.0;
//  2. containment (either string a substring of the other) scores
//     min(len)/max(len);
//  3. edit-distance similarity, only counted when it exceeds threshold.
//
// The candidate with the highest score wins; ties keep the first seen.
func FindBestMatch(query string, candidates []Teacher, threshold float64) (Teacher, float64, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(candidates) == 0 {
		return Teacher{}, 0, false
	}

	var best Teacher
	var bestScore float64
	var found bool

	for _, cand := range candidates {
		name := strings.ToLower(cand.Display())
		if name == q {
			return cand, 1.0, true
		}

		if name != "" && (strings.Contains(name, q) || strings.Contains(q, name)) {
			score := containmentScore(q, name)
			if score > bestScore {
				best, bestScore, found = cand, score, true
			}
			continue
		}

		if score := Similarity(q, name); score > threshold && score > bestScore {
			best, bestScore, found = cand, score, true
		}
	}
	return best, bestScore, found
}

// Similarity scores two strings in [0,1] by normalized Levenshtein distance:
// (max(len) - distance) / max(len). Two empty strings score 1.0.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 1.0
	}
	return float64(longer-levenshtein(ra, rb)) / float64(longer)
}

func containmentScore(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la > lb {
		la, lb = lb, la
	}
	if lb == 0 {
		return 0
	}
	return float64(la) / float64(lb)
}

// levenshtein computes the classic edit distance (insert/delete/substitute,
// unit cost) with a two-row DP table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
