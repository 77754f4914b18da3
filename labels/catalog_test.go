package labels

import (
	"sort"
	"testing"
	"unicode/utf8"
)

func TestBuiltinResolvesEveryRegisteredCode(t *testing.T) {
	cat := Builtin()
	for _, e := range builtin {
		label, ok := cat.Label(e.code)
		if !ok {
			t.Errorf("builtin catalog has no entry for registered code %q", e.code)
			continue
		}
		if label != e.label {
			t.Errorf("Label(%q) = %q, want %q", e.code, label, e.label)
		}
	}
	if cat.Len() != len(builtin) {
		t.Errorf("catalog size mismatch: Len() = %d, registry has %d entries", cat.Len(), len(builtin))
	}
}

func TestBuiltinHasNoDuplicateCodes(t *testing.T) {
	seen := make(map[string]string, len(builtin))
	for _, e := range builtin {
		if prev, ok := seen[e.code]; ok {
			t.Errorf("duplicate code %q: labeled both %q and %q", e.code, prev, e.label)
		}
		seen[e.code] = e.label
	}
}

func TestBuiltinEntriesAreWellFormed(t *testing.T) {
	for _, e := range builtin {
		if e.code == "" {
			t.Errorf("registry entry with empty code (label %q)", e.label)
		}
		if e.label == "" {
			t.Errorf("code %q has an empty label", e.code)
		}
		if !utf8.ValidString(e.code) {
			t.Errorf("code %q is not valid UTF-8", e.code)
		}
	}
}

func TestLabelMissReportsNotOK(t *testing.T) {
	cat := Builtin()
	if label, ok := cat.Label("Ω.9.9"); ok || label != "" {
		t.Errorf("Label(%q) = (%q, %v), want (\"\", false)", "Ω.9.9", label, ok)
	}
}

func TestCodesAreSortedAndComplete(t *testing.T) {
	cat := Builtin()
	codes := cat.Codes()
	if len(codes) != len(builtin) {
		t.Fatalf("Codes() returned %d codes, want %d", len(codes), len(builtin))
	}
	if !sort.StringsAreSorted(codes) {
		t.Errorf("Codes() is not sorted: %v", codes)
	}
	for _, code := range codes {
		if _, ok := cat.Label(code); !ok {
			t.Errorf("Codes() lists %q but Label cannot resolve it", code)
		}
	}
}

func TestBuiltinCopiesAreIndependent(t *testing.T) {
	a := Builtin()
	b := Builtin()
	a.labels["Α.1"] = "mutated"

	label, ok := b.Label("Α.1")
	if !ok || label != "Regulatory act" {
		t.Errorf("mutating one catalog leaked into another: Label(Α.1) = %q", label)
	}
}
