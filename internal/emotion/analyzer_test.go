package emotion

import "testing"

func TestPositiveTextIsPositive(t *testing.T) {
	a := NewAnalyzer()

	got := a.Analyze("I am so happy, this is wonderful and fun!", 6, nil)
	if got.Sentiment <= 0.2 {
		t.Fatalf("Sentiment = %v, want above 0.2", got.Sentiment)
	}
	if !got.IsPositive {
		t.Fatalf("IsPositive = false, want true")
	}
	if got.Scores["joy"] <= 0 {
		t.Fatalf("joy score = %v, want positive", got.Scores["joy"])
	}
}

func TestNegativeTextSentiment(t *testing.T) {
	a := NewAnalyzer()

	got := a.Analyze("this is terrible and awful and sad", 6, nil)
	if got.Sentiment >= 0 {
		t.Fatalf("Sentiment = %v, want negative", got.Sentiment)
	}
	if got.IsPositive {
		t.Fatalf("IsPositive = true, want false")
	}
}

func TestEmptyTextIsNeutral(t *testing.T) {
	a := NewAnalyzer()

	got := a.Analyze("", 6, nil)
	if got.Sentiment != 0 {
		t.Fatalf("Sentiment = %v, want 0", got.Sentiment)
	}
	if got.IsPositive {
		t.Fatalf("IsPositive = true, want false for neutral text")
	}
}

func TestSentimentClamped(t *testing.T) {
	a := NewAnalyzer()

	got := a.Analyze("happy joy love good", 6, nil)
	if got.Sentiment != 1 {
		t.Fatalf("Sentiment = %v, want clamped to 1", got.Sentiment)
	}
}

func TestFearInappropriateForYoungest(t *testing.T) {
	a := NewAnalyzer()

	text := "I am scared and afraid and frightened"
	young := a.Analyze(text, 3, nil)
	if young.AgeAppropriateness != 0 {
		t.Fatalf("age 3 appropriateness = %v, want 0", young.AgeAppropriateness)
	}
	if young.IsPositive {
		t.Fatalf("age 3 IsPositive = true, want false")
	}

	older := a.Analyze(text, 6, nil)
	if older.AgeAppropriateness != 1 {
		t.Fatalf("age 6 appropriateness = %v, want 1 (fear not on the avoid list)", older.AgeAppropriateness)
	}
}

func TestTriggersDetected(t *testing.T) {
	a := NewAnalyzer()

	got := a.Analyze("the scary monster left me alone with no friends", 6, nil)
	want := map[string]bool{
		"abandonment":      true,
		"fear_inducing":    true,
		"social_rejection": true,
	}
	if len(got.Triggers) != len(want) {
		t.Fatalf("Triggers = %v, want %d categories", got.Triggers, len(want))
	}
	for _, tr := range got.Triggers {
		if !want[tr] {
			t.Fatalf("unexpected trigger %q in %v", tr, got.Triggers)
		}
	}
}

func TestFearRecommendationForYoungChild(t *testing.T) {
	a := NewAnalyzer()

	got := a.Analyze("so scared, afraid, frightened and worried", 5, nil)
	if !hasRecommendation(got.Recommendations, "Fear content detected - inappropriate for young children") {
		t.Fatalf("Recommendations = %v, want fear warning", got.Recommendations)
	}
}

func TestLowJoyNudge(t *testing.T) {
	a := NewAnalyzer()

	got := a.Analyze("the weather is cloudy today", 6, nil)
	if !hasRecommendation(got.Recommendations, "Consider adding more positive, joyful elements") {
		t.Fatalf("Recommendations = %v, want low-joy nudge", got.Recommendations)
	}
}

func hasRecommendation(recs []string, want string) bool {
	for _, r := range recs {
		if r == want {
			return true
		}
	}
	return false
}
