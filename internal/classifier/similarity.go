package classifier

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/magnatepoint/mvp1-sub001/internal/models"
)

// containmentScore is the similarity band a substring containment maps
// to. Containment is strong evidence short of exact equality, so it lands
// in the high band rather than being scored by edit distance.
const containmentScore = 0.80

// Similarity returns a [0,1] similarity between two merchant strings.
// Both sides are normalized first. Exact equality scores 1.0, substring
// containment at least the high band, and everything else a normalized
// Levenshtein ratio 1 - distance/maxLen.
func Similarity(a, b string) float64 {
	a = models.NormalizeText(a)
	b = models.NormalizeText(b)

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}

	score := levenshteinRatio(a, b)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		if score < containmentScore {
			score = containmentScore
		}
	}
	return score
}

func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}

	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	ratio := 1.0 - float64(distance)/float64(maxLen)
	if ratio < 0 {
		return 0
	}
	return ratio
}
