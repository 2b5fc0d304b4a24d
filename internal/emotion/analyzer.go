package emotion

import (
	"fmt"
	"strings"
)

// Result is the emotional impact estimate for one utterance.
type Result struct {
	IsPositive         bool               `json:"is_positive"`
	Scores             map[string]float64 `json:"emotion_scores"`
	Sentiment          float64            `json:"sentiment"`
	AgeAppropriateness float64            `json:"age_appropriateness"`
	Triggers           []string           `json:"triggers"`
	Recommendations    []string           `json:"recommendations"`
}

var (
	emotionBuckets = []struct {
		name     string
		keywords []string
	}{
		{"joy", []string{"happy", "excited", "fun", "laughing", "cheerful"}},
		{"sadness", []string{"sad", "crying", "upset", "disappointed", "lonely"}},
		{"fear", []string{"scared", "afraid", "frightened", "worried", "anxious"}},
		{"anger", []string{"angry", "mad", "furious", "frustrated", "annoyed"}},
		{"surprise", []string{"surprised", "amazed", "wow", "unexpected"}},
		{"disgust", []string{"yucky", "gross", "eww", "disgusting"}},
	}

	positiveWords = []string{
		"happy", "joy", "love", "good", "great", "wonderful",
		"amazing", "fun", "exciting", "beautiful", "nice",
	}
	negativeWords = []string{
		"sad", "angry", "hate", "bad", "terrible", "awful",
		"scary", "frightening", "hurt", "pain", "upset",
	}

	// avoidEmotionsByAge marks emotion buckets too intense for the
	// youngest children; absent ages avoid nothing.
	avoidEmotionsByAge = map[int][]string{
		3: {"anger", "fear"},
		4: {"anger"},
	}

	triggerCategories = []struct {
		name     string
		keywords []string
	}{
		{"abandonment", []string{"alone", "left behind", "no one cares", "forgotten"}},
		{"fear_inducing", []string{"monster", "scary", "nightmare", "dark", "ghost"}},
		{"body_image", []string{"fat", "ugly", "skinny", "weird looking"}},
		{"performance_anxiety", []string{"stupid", "dumb", "can't do", "failure"}},
		{"social_rejection", []string{"no friends", "nobody likes", "outcast", "lonely"}},
	}
)

// Analyzer estimates per-utterance emotional impact from fixed keyword
// tables. It is stateless and safe for concurrent use.
type Analyzer struct{}

func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Analyze scores the utterance for a child of the given age. The history
// window is accepted for interface symmetry with the other layers; the
// per-utterance estimate does not depend on it.
func (a *Analyzer) Analyze(text string, childAge int, _ []string) Result {
	lowered := strings.ToLower(text)

	scores := bucketScores(lowered)
	sentiment := sentimentScore(lowered)
	ageApp := ageAppropriateness(scores, childAge)

	return Result{
		IsPositive:         sentiment > 0.2 && ageApp > 0.7,
		Scores:             scores,
		Sentiment:          sentiment,
		AgeAppropriateness: ageApp,
		Triggers:           detectTriggers(lowered),
		Recommendations:    recommendations(scores, ageApp, childAge),
	}
}

func bucketScores(lowered string) map[string]float64 {
	scores := make(map[string]float64, len(emotionBuckets))
	for _, bucket := range emotionBuckets {
		hits := 0
		for _, kw := range bucket.keywords {
			if strings.Contains(lowered, kw) {
				hits++
			}
		}
		score := float64(hits) / float64(len(bucket.keywords))
		if score > 1 {
			score = 1
		}
		scores[bucket.name] = score
	}
	return scores
}

func sentimentScore(lowered string) float64 {
	words := strings.Fields(lowered)
	if len(words) == 0 {
		return 0
	}

	positive, negative := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lowered, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lowered, w) {
			negative++
		}
	}

	sentiment := (float64(positive) - float64(negative)) / float64(len(words)) * 5
	if sentiment > 1 {
		return 1
	}
	if sentiment < -1 {
		return -1
	}
	return sentiment
}

func ageAppropriateness(scores map[string]float64, childAge int) float64 {
	inappropriate := 0.0
	for _, emotion := range avoidEmotionsByAge[childAge] {
		inappropriate += scores[emotion]
	}
	switch {
	case inappropriate > 0.3:
		return 0.0
	case inappropriate > 0.1:
		return 0.5
	default:
		return 1.0
	}
}

func detectTriggers(lowered string) []string {
	var triggers []string
	for _, cat := range triggerCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lowered, kw) {
				triggers = append(triggers, cat.name)
				break
			}
		}
	}
	return triggers
}

func recommendations(scores map[string]float64, ageApp float64, childAge int) []string {
	var recs []string

	name, score := dominantEmotion(scores)
	if score > 0.5 {
		switch {
		case name == "sadness" && score > 0.7:
			recs = append(recs, "Content contains high sadness - consider adding uplifting elements")
		case name == "fear" && childAge < 6:
			recs = append(recs, "Fear content detected - inappropriate for young children")
		case name == "anger" && childAge < 5:
			recs = append(recs, "Anger content detected - may overwhelm young children")
		}
	}
	if ageApp < 0.5 {
		recs = append(recs, fmt.Sprintf("Content not suitable for age %d - consider simplification", childAge))
	}
	if scores["joy"] < 0.2 {
		recs = append(recs, "Consider adding more positive, joyful elements")
	}
	return recs
}

// dominantEmotion picks the highest-scoring bucket, ties resolved by
// bucket declaration order for determinism.
func dominantEmotion(scores map[string]float64) (string, float64) {
	name, best := "", -1.0
	for _, bucket := range emotionBuckets {
		if s := scores[bucket.name]; s > best {
			name, best = bucket.name, s
		}
	}
	return name, best
}
