package fingerprint

import "testing"

func TestNormalize(t *testing.T) {
	got := Normalize("  What is Go? \r\n", "A programming language.")
	want := "what is go?\na programming language."
	if got != want {
		t.Errorf("Expected normalized string '%s', but got '%s'", want, got)
	}
}

func TestOf(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		if Of("front", "back") != Of("front", "back") {
			t.Error("Expected identical cards to produce the same fingerprint")
		}
	})

	t.Run("whitespace and case do not matter", func(t *testing.T) {
		if Of("  what is go? ", "A language.") != Of("What Is Go?", "a language.") {
			t.Error("Expected fingerprints to match after normalization")
		}
	})

	t.Run("different content differs", func(t *testing.T) {
		if Of("card 1", "") == Of("card 2", "") {
			t.Error("Expected different cards to produce different fingerprints")
		}
	})

	t.Run("field boundary is preserved", func(t *testing.T) {
		if Of("ab", "c") == Of("a", "bc") {
			t.Error("Expected the front/back boundary to affect the fingerprint")
		}
	})
}
