package parse

import "testing"

func TestKeyTallyMajorityWins(t *testing.T) {
	var tally keyTally
	cMajor := KeySignature{Tonic: TonicC, Scale: ScaleMajor}
	aMinor := KeySignature{Tonic: TonicA, Scale: ScaleMinor}

	tally.record(cMajor)
	tally.record(cMajor)
	tally.record(aMinor)

	got, ok := tally.resolve()
	if !ok {
		t.Fatal("expected a resolved key")
	}
	if got != cMajor {
		t.Fatalf("expected %+v, got %+v", cMajor, got)
	}
}

func TestKeyTallyTieBreaksByFirstSeen(t *testing.T) {
	var tally keyTally
	aMinor := KeySignature{Tonic: TonicA, Scale: ScaleMinor}
	cMajor := KeySignature{Tonic: TonicC, Scale: ScaleMajor}

	tally.record(aMinor) // first seen
	tally.record(cMajor)

	got, ok := tally.resolve()
	if !ok {
		t.Fatal("expected a resolved key")
	}
	if got != aMinor {
		t.Fatalf("expected tie to break toward first-seen %+v, got %+v", aMinor, got)
	}
}

func TestKeyTallyEmptyResolvesFalse(t *testing.T) {
	var tally keyTally
	if _, ok := tally.resolve(); ok {
		t.Fatal("expected no resolved key for an empty tally")
	}
}

func TestTonicFromPitchClass(t *testing.T) {
	tonic, ok := TonicFromPitchClass(0)
	if !ok || tonic != TonicC {
		t.Fatalf("expected TonicC, got %v ok=%v", tonic, ok)
	}
	if _, ok := TonicFromPitchClass(12); ok {
		t.Fatal("expected pitch class 12 to be rejected")
	}
	if _, ok := TonicFromPitchClass(-1); ok {
		t.Fatal("expected negative pitch class to be rejected")
	}
}

func TestParseScale(t *testing.T) {
	if s, ok := ParseScale("Minor Pentatonic"); !ok || s != ScaleMinorPentatonic {
		t.Fatalf("unexpected result for Minor Pentatonic: %v %v", s, ok)
	}
	if _, ok := ParseScale("Not A Scale"); ok {
		t.Fatal("expected unrecognized scale name to fail")
	}
}
