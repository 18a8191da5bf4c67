package parser

import (
	"testing"
)

func TestTokenize(t *testing.T) {
	text := "import os\n\nvalue = os.path.join(base, name)\nmask = 0xFF\n"
	ix := Tokenize(text)

	for _, token := range []string{"import", "os", "value", "path", "join", "base", "name", "mask"} {
		if !ix.Contains(token) {
			t.Errorf("Contains(%q) = false, want true", token)
		}
	}

	// Hex digits must not surface as identifiers.
	if ix.Contains("xFF") || ix.Contains("FF") || ix.Contains("0xFF") {
		t.Error("number literal leaked into the token index")
	}

	if got := ix.Lines("os"); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Lines(os) = %v, want [1 3]", got)
	}
	if got := ix.Lines("mask"); len(got) != 1 || got[0] != 4 {
		t.Errorf("Lines(mask) = %v, want [4]", got)
	}
	if ix.Contains("missing") {
		t.Error("Contains(missing) = true, want false")
	}
}

func TestTokenizeUnderscore(t *testing.T) {
	ix := Tokenize("_private = MAX_SIZE2\n")
	for _, token := range []string{"_private", "MAX_SIZE2"} {
		if !ix.Contains(token) {
			t.Errorf("Contains(%q) = false, want true", token)
		}
	}
	if ix.Distinct() != 2 {
		t.Errorf("Distinct() = %d, want 2", ix.Distinct())
	}
}

func TestOccursOutsideRange(t *testing.T) {
	ix := NewTokenIndex()
	ix.Add("alpha", 2)
	ix.Add("alpha", 3)
	ix.Add("beta", 3)
	ix.Add("beta", 9)

	if ix.OccursOutsideRange("alpha", 1, 4) {
		t.Error("alpha occurs only inside [1,4], OccursOutsideRange should be false")
	}
	if !ix.OccursOutsideRange("beta", 1, 4) {
		t.Error("beta occurs on line 9, OccursOutsideRange(beta, 1, 4) should be true")
	}
	if !ix.OccursOutsideRange("alpha", 3, 3) {
		t.Error("alpha occurs on line 2, OccursOutsideRange(alpha, 3, 3) should be true")
	}
	if ix.OccursOutsideRange("missing", 1, 4) {
		t.Error("OccursOutsideRange(missing) should be false")
	}
	// Swapped bounds normalize.
	if ix.OccursOutsideRange("alpha", 4, 1) {
		t.Error("OccursOutsideRange with swapped bounds should normalize")
	}
}

func TestTokenizeEmpty(t *testing.T) {
	ix := Tokenize("")
	if ix.Distinct() != 0 {
		t.Errorf("Distinct() = %d, want 0", ix.Distinct())
	}
}
