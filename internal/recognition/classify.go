package recognition

import (
	"github.com/emmett/voxremote/internal/stt"
	"github.com/emmett/voxremote/internal/vocab"
)

// ConfidenceThreshold is the minimum confidence for an utterance to be
// accepted as a command.
const ConfidenceThreshold = 0.7

// Kind says whether an utterance was accepted as a command.
type Kind int

const (
	Rejected Kind = iota
	Accepted
)

func (k Kind) String() string {
	if k == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Outcome is a classified final recognition result. For accepted outcomes
// Text is the action token; for rejected ones it is the best-effort value.
type Outcome struct {
	Kind       Kind
	Text       string
	Confidence float64
}

// Classify turns a final engine result into an outcome. It reports false
// for partial results and for finals that carry no speech at all.
//
// A matched phrase maps to its action token. The outcome is accepted only
// when the confidence reaches ConfidenceThreshold and the value is an action
// of the vocabulary; otherwise it is rejected with that value.
func Classify(res stt.Result, v *vocab.Vocabulary) (Outcome, bool) {
	if res.Partial {
		return Outcome{}, false
	}
	heard := res.Heard()
	if heard == "" {
		return Outcome{}, false
	}

	if !res.Matched() {
		return Outcome{Kind: Rejected, Text: heard, Confidence: res.Confidence}, true
	}

	value, ok := v.Lookup(res.Text)
	if !ok {
		value = vocab.Normalize(res.Text)
	}

	out := Outcome{Kind: Rejected, Text: value, Confidence: res.Confidence}
	if res.Confidence >= ConfidenceThreshold && v.HasAction(value) {
		out.Kind = Accepted
	}
	return out, true
}
