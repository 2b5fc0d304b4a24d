package conversation

import (
	"fmt"
	"sync"
	"testing"
)

func newTestAnalyzer() (*Analyzer, *Registry) {
	reg := NewRegistry(20)
	return NewAnalyzer(reg, DefaultThresholds()), reg
}

func TestAnalyzeEmptyHistoryIsSafe(t *testing.T) {
	a, _ := newTestAnalyzer()

	got := a.Analyze("s1", "hello there", nil, 6)
	if !got.ContextSafe {
		t.Fatalf("ContextSafe = false, want true for empty history")
	}
	if got.FlowScore != 1.0 {
		t.Fatalf("FlowScore = %v, want 1.0", got.FlowScore)
	}
	if got.TopicAppropriateness != 1.0 {
		t.Fatalf("TopicAppropriateness = %v, want 1.0", got.TopicAppropriateness)
	}
	if len(got.BehavioralConcerns) != 0 {
		t.Fatalf("BehavioralConcerns = %v, want none", got.BehavioralConcerns)
	}
}

func TestRepeatedFearTurnsFlagConcernAndUnsafeContext(t *testing.T) {
	a, _ := newTestAnalyzer()

	history := []string{
		"I am scared",
		"I am so afraid",
		"still scared",
		"afraid of the dark",
		"scared again",
	}
	got := a.Analyze("s1", "are you there?", history, 6)

	if got.ContextSafe {
		t.Fatalf("ContextSafe = true, want false for repeated fear turns")
	}
	if !hasConcern(got.BehavioralConcerns, "repetitive_fear") {
		t.Fatalf("BehavioralConcerns = %v, want repetitive_fear", got.BehavioralConcerns)
	}
}

func TestPrivacyProbesFlagConcernAndUnsafeContext(t *testing.T) {
	a, _ := newTestAnalyzer()

	history := []string{
		"what is your name?",
		"where do you live?",
		"tell me your address",
	}
	got := a.Analyze("s1", "and your phone number?", history, 7)

	if got.ContextSafe {
		t.Fatalf("ContextSafe = true, want false for repeated privacy probes")
	}
	if !hasConcern(got.BehavioralConcerns, "privacy_risk") {
		t.Fatalf("BehavioralConcerns = %v, want privacy_risk", got.BehavioralConcerns)
	}
}

func TestEscalationCheck(t *testing.T) {
	a, _ := newTestAnalyzer()

	escalating := []string{
		"we played a nice game",
		"I am a bit mad",
		"I am angry and mad and I hate this",
	}
	if got := a.Analyze("s1", "ok", escalating, 6); got.ContextSafe {
		t.Fatalf("ContextSafe = true, want false for escalating history")
	}

	calm := []string{
		"I was angry before",
		"feeling better now",
		"all calm again",
	}
	if got := a.Analyze("s2", "ok", calm, 6); !got.ContextSafe {
		t.Fatalf("ContextSafe = false, want true for de-escalating history")
	}
}

func TestSessionDurationCapByAge(t *testing.T) {
	a, _ := newTestAnalyzer()

	long := make([]string, 25)
	for i := range long {
		long[i] = "a fun turn about toys"
	}
	// 25 turns * 0.5 = 12.5, above the age-3 cap of 10 but below the
	// age-6 cap of 25.
	if got := a.Analyze("s1", "ok", long, 3); got.ContextSafe {
		t.Fatalf("ContextSafe = true, want false for age 3 over duration cap")
	}
	if got := a.Analyze("s2", "ok", long, 6); !got.ContextSafe {
		t.Fatalf("ContextSafe = false, want true for age 6 within duration cap")
	}
}

func TestTopicAppropriatenessGrowsWithAge(t *testing.T) {
	a, _ := newTestAnalyzer()

	history := []string{
		"I like science experiments",
		"nature walks are great",
	}
	young := a.Analyze("s1", "ok", history, 4)
	older := a.Analyze("s2", "ok", history, 9)
	if older.TopicAppropriateness <= young.TopicAppropriateness {
		t.Fatalf("older appropriateness = %v, want above younger %v",
			older.TopicAppropriateness, young.TopicAppropriateness)
	}
}

func TestFlowScoreDegradesWithLongSessions(t *testing.T) {
	a, _ := newTestAnalyzer()

	short := []string{"let's play a game", "what color is the sky?"}
	long := make([]string, 25)
	for i := range long {
		long[i] = "let's play a game"
	}

	shortRes := a.Analyze("s1", "ok", short, 6)
	longRes := a.Analyze("s2", "ok", long, 6)
	if longRes.FlowScore >= shortRes.FlowScore {
		t.Fatalf("long FlowScore = %v, want below short %v", longRes.FlowScore, shortRes.FlowScore)
	}
}

func TestRegistryBoundsMemory(t *testing.T) {
	reg := NewRegistry(5)
	for i := 0; i < 12; i++ {
		reg.Append("s1", fmt.Sprintf("turn %d", i))
	}

	got := reg.Recent("s1")
	if len(got) != 5 {
		t.Fatalf("Recent length = %d, want 5", len(got))
	}
	if got[0] != "turn 7" || got[4] != "turn 11" {
		t.Fatalf("Recent = %v, want turns 7..11", got)
	}
}

func TestRegistryConcurrentAppendsDoNotCorruptWindow(t *testing.T) {
	reg := NewRegistry(10)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			reg.Append("s1", fmt.Sprintf("turn %d", n))
		}(i)
	}
	wg.Wait()

	got := reg.Recent("s1")
	if len(got) != 10 {
		t.Fatalf("Recent length = %d, want bounded at 10", len(got))
	}
}

func TestAnalyzeAppendsToSessionMemory(t *testing.T) {
	a, reg := newTestAnalyzer()

	a.Analyze("s1", "first", nil, 6)
	a.Analyze("s1", "second", reg.Recent("s1"), 6)

	got := reg.Recent("s1")
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("Recent = %v, want [first second]", got)
	}
}

func hasConcern(concerns []string, want string) bool {
	for _, c := range concerns {
		if c == want {
			return true
		}
	}
	return false
}
