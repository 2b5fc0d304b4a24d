package observability

import "testing"

func TestLatencyWindowSnapshot(t *testing.T) {
	w := NewLatencyWindow(8)
	w.Observe("analyze", 5)
	w.Observe("analyze", 7)
	w.Observe("analyze", 9)
	w.ObserveIndicator("high_risk")
	w.ObserveIndicator("high_risk")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "analyze" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "analyze")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 9 {
		t.Fatalf("LastMS = %.2f, want 9", s.LastMS)
	}
	if s.P50MS != 7 {
		t.Fatalf("P50MS = %.2f, want 7", s.P50MS)
	}
	if s.P95MS <= 7 || s.P95MS > 9 {
		t.Fatalf("P95MS = %.2f, want (7,9]", s.P95MS)
	}
	if s.TargetP95MS != 50 {
		t.Fatalf("TargetP95MS = %.2f, want 50", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "high_risk" {
		t.Fatalf("Indicators[0].Name = %q, want %q", snap.Indicators[0].Name, "high_risk")
	}
	if snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators[0].Count = %d, want 2", snap.Indicators[0].Count)
	}
}

func TestLatencyWindowRingEviction(t *testing.T) {
	w := NewLatencyWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("analyze", float64(i))
	}

	snap := w.Snapshot()
	if snap.Stages[0].Samples != 4 {
		t.Fatalf("Samples = %d, want 4", snap.Stages[0].Samples)
	}
	// Only the last four observations (6..9) remain.
	if got := snap.Stages[0].AvgMS; got != 7.5 {
		t.Fatalf("AvgMS = %.2f, want 7.5", got)
	}
}
