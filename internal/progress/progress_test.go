package progress

import (
	"os"
	"testing"
)

func TestReportComputesProgressFraction(t *testing.T) {
	var got Update
	r := Func(func(u Update) { got = u })

	Parsing(r, 3, 12, "parsing")
	if got.Phase != PhaseParsing || got.Completed != 3 || got.Total != 12 {
		t.Fatalf("unexpected update: %+v", got)
	}
	if got.Progress != 0.25 {
		t.Fatalf("expected progress 0.25, got %v", got.Progress)
	}
}

func TestReportZeroTotalYieldsZeroProgress(t *testing.T) {
	var got Update
	r := Func(func(u Update) { got = u })

	Starting(r, "begin")
	if got.Progress != 0 {
		t.Fatalf("expected 0 progress for zero total, got %v", got.Progress)
	}
}

func TestMultiFansOutToAllReporters(t *testing.T) {
	var a, b int
	m := Multi{
		Func(func(Update) { a++ }),
		Func(func(Update) { b++ }),
	}
	m.Emit(Update{Phase: PhaseCompleted})
	if a != 1 || b != 1 {
		t.Fatalf("expected both reporters invoked once, got a=%d b=%d", a, b)
	}
}

func TestMultiSkipsNilReporters(t *testing.T) {
	m := Multi{nil, Func(func(Update) {})}
	m.Emit(Update{}) // must not panic
}

func TestJSONLSinkWritesOneLinePerUpdate(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/events.jsonl"

	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatal(err)
	}
	sink.Emit(Update{Phase: PhaseStarting})
	sink.Emit(Update{Phase: PhaseCompleted})
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestNilSinkEmitIsNoop(t *testing.T) {
	var s *JSONLSink
	s.Emit(Update{}) // must not panic
	if s.Path() != "" {
		t.Fatal("expected empty path for nil sink")
	}
}
