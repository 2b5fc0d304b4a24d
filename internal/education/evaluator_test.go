package education

import "testing"

func TestEducationalTextScoresHigh(t *testing.T) {
	e := NewEvaluator()

	got := e.Evaluate("Let's count to ten and learn colors!", 4)
	if got.Score <= 0.5 {
		t.Fatalf("Score = %v, want above 0.5", got.Score)
	}
	if !hasTag(got.Tags, "logical") || !hasTag(got.Tags, "visual") {
		t.Fatalf("Tags = %v, want logical and visual", got.Tags)
	}
}

func TestNonEducationalTextScoresLow(t *testing.T) {
	e := NewEvaluator()

	got := e.Evaluate("I hate you, you are stupid", 6)
	if got.Score != 0 {
		t.Fatalf("Score = %v, want 0", got.Score)
	}
	if len(got.Tags) != 0 {
		t.Fatalf("Tags = %v, want none", got.Tags)
	}
}

func TestScoreClampedAtOne(t *testing.T) {
	e := NewEvaluator()

	got := e.Evaluate(
		"learn to count numbers, read a story, listen to music, look at shapes, explain why nature and animals move", 8)
	if got.Score != 1 {
		t.Fatalf("Score = %v, want clamped to 1", got.Score)
	}
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
