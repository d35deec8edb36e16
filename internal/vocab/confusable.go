package vocab

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultConfusableThreshold is the Jaro-Winkler score above which two
// phrases bound to different actions are reported as confusable.
const DefaultConfusableThreshold = 0.92

// Pair is two phrases a recognizer may mistake for one another.
type Pair struct {
	A, B  PhraseMapping
	Score float64
}

// Confusable lists phrase pairs with different actions that either share a
// Double Metaphone key or score at least threshold on Jaro-Winkler
// similarity. The result is diagnostic; Build never rejects on it.
func (v *Vocabulary) Confusable(threshold float64) []Pair {
	keys := make([]string, len(v.mappings))
	for i, m := range v.mappings {
		keys[i] = phoneticKey(m.Phrase)
	}

	var pairs []Pair
	for i := 0; i < len(v.mappings); i++ {
		for j := i + 1; j < len(v.mappings); j++ {
			a, b := v.mappings[i], v.mappings[j]
			if a.Action == b.Action {
				continue
			}
			score := matchr.JaroWinkler(a.Phrase, b.Phrase, false)
			if (keys[i] != "" && keys[i] == keys[j]) || score >= threshold {
				pairs = append(pairs, Pair{A: a, B: b, Score: score})
			}
		}
	}
	return pairs
}

// phoneticKey joins the primary Double Metaphone code of every word.
func phoneticKey(phrase string) string {
	words := strings.Fields(phrase)
	codes := make([]string, 0, len(words))
	for _, w := range words {
		primary, _ := matchr.DoubleMetaphone(w)
		codes = append(codes, primary)
	}
	return strings.Join(codes, " ")
}
