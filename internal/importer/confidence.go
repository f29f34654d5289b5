package importer

import (
	"math"
	"strconv"
	"strings"

	"garland/internal/titles"
)

// Confidence estimates how well a spreadsheet row matches a provider record,
// as an integer in [0, 100]. Title agreement contributes up to 60, year
// agreement up to 40. The result is a heuristic: near-ties are expected and
// resolved by human review, not by the score.
func Confidence(rowTitle, rowDate, matchTitle, matchDate string) int {
	score := titleScore(rowTitle, matchTitle) + yearScore(rowDate, matchDate)
	rounded := int(math.Round(score))
	if rounded > 100 {
		rounded = 100
	}
	if rounded < 0 {
		rounded = 0
	}
	return rounded
}

// titleScore compares titles case-insensitively: exact 60, containment 40,
// otherwise 40 scaled by shared whitespace-delimited token ratio.
func titleScore(a, b string) float64 {
	left := strings.ToLower(strings.TrimSpace(a))
	right := strings.ToLower(strings.TrimSpace(b))
	if left == "" || right == "" {
		return 0
	}
	if left == right {
		return 60
	}
	if strings.Contains(left, right) || strings.Contains(right, left) {
		return 40
	}

	leftTokens := titles.Tokens(left)
	rightTokens := titles.Tokens(right)
	longest := len(leftTokens)
	if len(rightTokens) > longest {
		longest = len(rightTokens)
	}
	if longest == 0 {
		return 0
	}

	rightSet := make(map[string]struct{}, len(rightTokens))
	for _, token := range rightTokens {
		rightSet[token] = struct{}{}
	}
	shared := 0
	for _, token := range leftTokens {
		if _, ok := rightSet[token]; ok {
			shared++
		}
	}
	return 40 * float64(shared) / float64(longest)
}

// yearScore compares release years: exact 40, off by one 20, otherwise 0.
// A missing or unparseable year on either side is no signal, never a
// penalty.
func yearScore(a, b string) float64 {
	yearA := titles.Year(a)
	yearB := titles.Year(b)
	if yearA == "" || yearB == "" {
		return 0
	}
	if yearA == yearB {
		return 40
	}
	left, errA := strconv.Atoi(yearA)
	right, errB := strconv.Atoi(yearB)
	if errA != nil || errB != nil {
		return 0
	}
	diff := left - right
	if diff < 0 {
		diff = -diff
	}
	if diff == 1 {
		return 20
	}
	return 0
}
