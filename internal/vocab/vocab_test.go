package vocab

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBuildDefaults(t *testing.T) {
	for _, overrides := range [][]PhraseMapping{nil, {}} {
		v, err := Build(overrides)
		if err != nil {
			t.Fatalf("Build(%v): %v", overrides, err)
		}
		if v.Len() != 8 {
			t.Fatalf("Len() = %d, want 8", v.Len())
		}
	}

	v := Default()
	tests := []struct{ phrase, action string }{
		{"play song", ActionPlay},
		{"pause song", ActionPause},
		{"stop song", ActionStop},
		{"next song", ActionNext},
		{"previous song", ActionPrevious},
		{"volume up", ActionVolumeUp},
		{"volume down", ActionVolumeDown},
		{"mute", ActionMute},
	}
	for _, tt := range tests {
		got, ok := v.Lookup(tt.phrase)
		if !ok || got != tt.action {
			t.Errorf("Lookup(%q) = %q, %v; want %q", tt.phrase, got, ok, tt.action)
		}
	}
}

func TestBuildOverridesReplaceDefaults(t *testing.T) {
	v, err := Build([]PhraseMapping{
		{Phrase: "skip", Action: ActionNext},
		{Phrase: "go back", Action: ActionPrevious},
		{Phrase: "louder", Action: ActionVolumeUp},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", v.Len())
	}
	if _, ok := v.Lookup("next song"); ok {
		t.Error("default phrase survived an override")
	}
	for _, m := range v.Mappings() {
		got, ok := v.Lookup(m.Phrase)
		if !ok || got != m.Action {
			t.Errorf("Lookup(%q) = %q, %v; want %q", m.Phrase, got, ok, m.Action)
		}
	}
}

func TestBuildRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		mappings []PhraseMapping
	}{
		{"empty phrase", []PhraseMapping{{Phrase: "", Action: ActionPlay}}},
		{"blank phrase", []PhraseMapping{{Phrase: "   ", Action: ActionPlay}}},
		{"missing action", []PhraseMapping{{Phrase: "play", Action: ""}}},
		{"duplicate", []PhraseMapping{
			{Phrase: "play", Action: ActionPlay},
			{Phrase: "play", Action: ActionPause},
		}},
		{"duplicate after normalizing", []PhraseMapping{
			{Phrase: "Next  Song", Action: ActionNext},
			{Phrase: "next song", Action: ActionNext},
		}},
		{"reserved", []PhraseMapping{{Phrase: "[unk]", Action: ActionMute}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Build(tt.mappings)
			if !errors.Is(err, ErrInvalidVocabulary) {
				t.Fatalf("err = %v, want ErrInvalidVocabulary", err)
			}
			if v != nil {
				t.Fatal("expected nil vocabulary on error")
			}
		})
	}
}

func TestLookupNormalizes(t *testing.T) {
	v := Default()
	if got, ok := v.Lookup("  NEXT   song "); !ok || got != ActionNext {
		t.Fatalf("Lookup = %q, %v", got, ok)
	}
	if _, ok := v.Lookup("dance"); ok {
		t.Fatal("unexpected match for unknown phrase")
	}
}

func TestActionsDistinctInOrder(t *testing.T) {
	v, err := Build([]PhraseMapping{
		{Phrase: "play", Action: ActionPlay},
		{Phrase: "resume", Action: ActionPlay},
		{Phrase: "quiet", Action: ActionMute},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := v.Actions()
	if len(got) != 2 || got[0] != ActionPlay || got[1] != ActionMute {
		t.Fatalf("Actions() = %v", got)
	}
	if !v.HasAction(ActionMute) || v.HasAction(ActionStop) {
		t.Fatal("HasAction disagrees with Actions")
	}
}

func TestGrammar(t *testing.T) {
	v, err := Build([]PhraseMapping{
		{Phrase: "Next Song", Action: ActionNext},
		{Phrase: "mute", Action: ActionMute},
	})
	if err != nil {
		t.Fatal(err)
	}

	var phrases []string
	if err := json.Unmarshal([]byte(v.Grammar()), &phrases); err != nil {
		t.Fatalf("grammar is not JSON: %v", err)
	}
	want := []string{"next song", "mute", "[unk]"}
	if len(phrases) != len(want) {
		t.Fatalf("grammar = %v, want %v", phrases, want)
	}
	for i := range want {
		if phrases[i] != want[i] {
			t.Errorf("grammar[%d] = %q, want %q", i, phrases[i], want[i])
		}
	}
}

func TestMappingsIsACopy(t *testing.T) {
	v := Default()
	m := v.Mappings()
	m[0].Action = "HACKED"
	if got, _ := v.Lookup("play song"); got != ActionPlay {
		t.Fatalf("vocabulary mutated through Mappings(): %q", got)
	}
}

func TestConfusable(t *testing.T) {
	v, err := Build([]PhraseMapping{
		{Phrase: "next song", Action: ActionNext},
		{Phrase: "next songs", Action: ActionStop},
		{Phrase: "mute", Action: ActionMute},
		{Phrase: "moot", Action: ActionPause},
		{Phrase: "play song", Action: ActionPlay},
		{Phrase: "resume song", Action: ActionPlay},
	})
	if err != nil {
		t.Fatal(err)
	}

	pairs := v.Confusable(DefaultConfusableThreshold)
	want := map[string]bool{
		"next song|next songs": false, // near-identical spelling
		"mute|moot":            false, // same Double Metaphone key
	}
	for _, p := range pairs {
		if p.A.Action == p.B.Action {
			t.Errorf("pair with the same action reported: %+v", p)
		}
		key := p.A.Phrase + "|" + p.B.Phrase
		if key == "next song|mute" || key == "mute|play song" {
			t.Errorf("dissimilar pair reported: %+v", p)
		}
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("expected %s to be confusable, got %+v", key, pairs)
		}
	}
}
