// Package vocab holds the phrase to action mapping that drives recognition.
package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidVocabulary is returned by Build when a phrase is empty or
// duplicated, or an action is missing.
var ErrInvalidVocabulary = errors.New("invalid vocabulary")

// Action tokens understood by the command dispatcher.
const (
	ActionPlay       = "PLAY"
	ActionPause      = "PAUSE"
	ActionStop       = "STOP"
	ActionNext       = "NEXT"
	ActionPrevious   = "PREVIOUS"
	ActionVolumeUp   = "VOLUME_UP"
	ActionVolumeDown = "VOLUME_DOWN"
	ActionMute       = "MUTE"
)

// unknownPhrase is the Vosk grammar entry that absorbs out-of-grammar speech.
const unknownPhrase = "[unk]"

// PhraseMapping binds a spoken phrase to an action token.
type PhraseMapping struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	Action string `yaml:"action" json:"action"`
}

var defaultMappings = []PhraseMapping{
	{Phrase: "play song", Action: ActionPlay},
	{Phrase: "pause song", Action: ActionPause},
	{Phrase: "stop song", Action: ActionStop},
	{Phrase: "next song", Action: ActionNext},
	{Phrase: "previous song", Action: ActionPrevious},
	{Phrase: "volume up", Action: ActionVolumeUp},
	{Phrase: "volume down", Action: ActionVolumeDown},
	{Phrase: "mute", Action: ActionMute},
}

// Defaults returns a copy of the built-in eight phrase set.
func Defaults() []PhraseMapping {
	out := make([]PhraseMapping, len(defaultMappings))
	copy(out, defaultMappings)
	return out
}

// Vocabulary is an ordered, immutable set of phrase mappings.
type Vocabulary struct {
	mappings []PhraseMapping
	index    map[string]string
	actions  []string
}

// Build validates overrides and returns a Vocabulary. When overrides is
// empty the default set is used; otherwise it replaces the defaults wholesale.
func Build(overrides []PhraseMapping) (*Vocabulary, error) {
	src := overrides
	if len(src) == 0 {
		src = defaultMappings
	}

	v := &Vocabulary{
		mappings: make([]PhraseMapping, 0, len(src)),
		index:    make(map[string]string, len(src)),
	}
	seenActions := make(map[string]bool)

	for i, m := range src {
		phrase := Normalize(m.Phrase)
		action := strings.TrimSpace(m.Action)

		if phrase == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty phrase", ErrInvalidVocabulary, i)
		}
		if phrase == unknownPhrase {
			return nil, fmt.Errorf("%w: phrase %q is reserved", ErrInvalidVocabulary, m.Phrase)
		}
		if action == "" {
			return nil, fmt.Errorf("%w: phrase %q has no action", ErrInvalidVocabulary, m.Phrase)
		}
		if _, dup := v.index[phrase]; dup {
			return nil, fmt.Errorf("%w: duplicate phrase %q", ErrInvalidVocabulary, m.Phrase)
		}

		v.index[phrase] = action
		v.mappings = append(v.mappings, PhraseMapping{Phrase: phrase, Action: action})
		if !seenActions[action] {
			seenActions[action] = true
			v.actions = append(v.actions, action)
		}
	}

	return v, nil
}

// Default returns the vocabulary built from the default phrase set.
func Default() *Vocabulary {
	v, err := Build(nil)
	if err != nil {
		panic(fmt.Sprintf("vocab: default phrase set is invalid: %v", err))
	}
	return v
}

// Normalize lower-cases a phrase and collapses its whitespace. Phrases are
// compared in this form.
func Normalize(phrase string) string {
	return strings.ToLower(strings.Join(strings.Fields(phrase), " "))
}

// Lookup returns the action bound to phrase.
func (v *Vocabulary) Lookup(phrase string) (string, bool) {
	action, ok := v.index[Normalize(phrase)]
	return action, ok
}

// HasAction reports whether any phrase maps to action.
func (v *Vocabulary) HasAction(action string) bool {
	for _, a := range v.actions {
		if a == action {
			return true
		}
	}
	return false
}

// Mappings returns the normalized mappings in build order.
func (v *Vocabulary) Mappings() []PhraseMapping {
	out := make([]PhraseMapping, len(v.mappings))
	copy(out, v.mappings)
	return out
}

// Phrases returns the normalized phrases in build order.
func (v *Vocabulary) Phrases() []string {
	out := make([]string, len(v.mappings))
	for i, m := range v.mappings {
		out[i] = m.Phrase
	}
	return out
}

// Actions returns the distinct actions in first-seen order.
func (v *Vocabulary) Actions() []string {
	out := make([]string, len(v.actions))
	copy(out, v.actions)
	return out
}

// Len returns the number of phrases.
func (v *Vocabulary) Len() int {
	return len(v.mappings)
}

// Grammar renders the phrases as a Vosk grammar: a JSON array of phrases
// followed by the [unk] catch-all.
func (v *Vocabulary) Grammar() string {
	phrases := append(v.Phrases(), unknownPhrase)
	data, err := json.Marshal(phrases)
	if err != nil {
		// A []string always marshals.
		panic(err)
	}
	return string(data)
}
