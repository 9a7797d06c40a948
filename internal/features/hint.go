package features

import "strings"

const hintThreshold = 0.6

// closestName finds the known property name most similar to name.
func closestName(name string, known []string) (string, bool) {
	best, bestRatio := "", 0.0
	for _, k := range known {
		if r := LevenshteinRatio(name, k); r > bestRatio {
			best, bestRatio = k, r
		}
	}
	return best, bestRatio >= hintThreshold
}

// LevenshteinRatio calculates similarity ratio (0-1)
func LevenshteinRatio(s1, s2 string) float64 {
	r1 := []rune(strings.ToLower(s1))
	r2 := []rune(strings.ToLower(s2))
	maxLen := float64(max(len(r1), len(r2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(r1, r2))/maxLen
}

func levenshtein(r1, r2 []rune) int {
	row := make([]int, len(r2)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		prev := i
		for j := 1; j <= len(r2); j++ {
			val := row[j-1]
			if r1[i-1] != r2[j-1] {
				val = min(row[j-1]+1, prev+1, row[j]+1)
			}
			row[j-1] = prev
			prev = val
		}
		row[len(r2)] = prev
	}
	return row[len(r2)]
}
