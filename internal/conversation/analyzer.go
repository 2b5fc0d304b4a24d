package conversation

import (
	"regexp"
	"strings"
)

// Result is the conversation-level outcome of one context analysis.
type Result struct {
	ContextSafe          bool     `json:"context_safe"`
	FlowScore            float64  `json:"flow_score"`
	TopicAppropriateness float64  `json:"topic_appropriateness"`
	BehavioralConcerns   []string `json:"behavioral_concerns"`
	ConversationQuality  float64  `json:"conversation_quality"`
}

// Thresholds are the hand-tuned constants behind the context safety
// checks. They are configuration, not derived values; override per
// analyzer when a deployment needs different sensitivity.
type Thresholds struct {
	// MaxRecentConcerns blocks when this many of the progression-window
	// turns carry a concerning keyword.
	MaxRecentConcerns int
	ProgressionWindow int
	EscalationWindow  int
	PrivacyWindow     int
	MaxPrivacyProbes  int

	// TurnDuration is the estimated attention cost per turn used by the
	// session-duration check, in the same unit as the duration caps.
	TurnDuration       float64
	MaxDurationByAge   map[int]float64
	DefaultMaxDuration float64
}

// DefaultThresholds returns the tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxRecentConcerns: 2,
		ProgressionWindow: 3,
		EscalationWindow:  3,
		PrivacyWindow:     5,
		MaxPrivacyProbes:  2,
		TurnDuration:      0.5,
		MaxDurationByAge: map[int]float64{
			3: 10, 4: 15, 5: 20, 6: 25, 7: 30, 8: 35,
		},
		DefaultMaxDuration: 35,
	}
}

var (
	concerningKeywords = []string{
		"scary", "scared", "afraid", "hurt", "secret", "don't tell",
		"password", "address", "phone", "where you live",
	}
	escalationKeywords = []string{
		"angry", "mad", "hate", "hurt", "bad", "scary", "afraid",
	}
	privacyProbeRes = []*regexp.Regexp{
		regexp.MustCompile(`what.*name`),
		regexp.MustCompile(`where.*live`),
		regexp.MustCompile(`phone.*number`),
		regexp.MustCompile(`address`),
		regexp.MustCompile(`secret`),
		regexp.MustCompile(`don't.*tell`),
	}

	topicBuckets = []struct {
		name     string
		keywords []string
	}{
		{"animals", []string{"dog", "cat", "bird", "animal"}},
		{"colors", []string{"red", "blue", "green", "color"}},
		{"numbers", []string{"one", "two", "count", "number"}},
		{"games", []string{"play", "game", "toy", "fun"}},
	}

	concernThemes = []struct {
		name     string
		keywords []string
	}{
		{"loneliness", []string{"alone", "lonely", "no friends"}},
		{"sadness", []string{"sad", "cry", "upset"}},
		{"fear", []string{"scared", "afraid", "nightmare"}},
		{"anger", []string{"angry", "mad", "hate"}},
	}
	privacyKeywords = []string{"address", "phone", "password", "secret"}

	positiveIndicators    = []string{"great", "good", "wonderful", "excellent", "amazing", "well done"}
	questionIndicators    = []string{"?", "what", "how", "why", "can you"}
	interactiveIndicators = []string{"?", "what", "how", "can you", "let's", "try"}
	educationalKeywords   = []string{
		"learn", "teach", "count", "color", "shape", "letter",
		"number", "read", "story", "animal", "science",
	}
	warmKeywords = []string{
		"love", "care", "friend", "nice", "kind", "sweet",
		"happy", "wonderful", "great", "good job",
	}
)

// Analyzer derives conversation-level safety signals from the recent
// history window and appends the current utterance to session memory.
type Analyzer struct {
	memory *Registry
	th     Thresholds
}

func NewAnalyzer(memory *Registry, th Thresholds) *Analyzer {
	return &Analyzer{memory: memory, th: th}
}

// Analyze evaluates the history window for the given child age. The
// current utterance is appended to the session's memory but, matching the
// layer contract, the safety checks run over the provided history only.
func (a *Analyzer) Analyze(sessionID, currentText string, history []string, childAge int) Result {
	a.memory.Append(sessionID, currentText)

	return Result{
		ContextSafe:          a.contextSafe(history, childAge),
		FlowScore:            a.flowScore(history),
		TopicAppropriateness: topicAppropriateness(history, childAge),
		BehavioralConcerns:   behavioralConcerns(history, a.th.PrivacyWindow),
		ConversationQuality:  conversationQuality(history),
	}
}

func (a *Analyzer) contextSafe(history []string, childAge int) bool {
	return a.checkTopicProgression(history) &&
		a.checkSessionDuration(history, childAge) &&
		a.checkEscalation(history) &&
		a.checkPrivacyProbes(history)
}

func (a *Analyzer) checkTopicProgression(history []string) bool {
	if len(history) < 2 {
		return true
	}
	recent := lastN(history, a.th.ProgressionWindow)
	count := 0
	for _, text := range recent {
		if containsAny(strings.ToLower(text), concerningKeywords) {
			count++
		}
	}
	return count < a.th.MaxRecentConcerns
}

func (a *Analyzer) checkSessionDuration(history []string, childAge int) bool {
	estimated := float64(len(history)) * a.th.TurnDuration
	max, ok := a.th.MaxDurationByAge[childAge]
	if !ok {
		max = a.th.DefaultMaxDuration
	}
	return estimated <= max
}

func (a *Analyzer) checkEscalation(history []string) bool {
	if len(history) < a.th.EscalationWindow {
		return true
	}
	recent := lastN(history, a.th.EscalationWindow)
	scores := make([]int, len(recent))
	for i, text := range recent {
		lowered := strings.ToLower(text)
		for _, kw := range escalationKeywords {
			if strings.Contains(lowered, kw) {
				scores[i]++
			}
		}
	}
	return !(len(scores) >= 2 && scores[len(scores)-1] > scores[0])
}

func (a *Analyzer) checkPrivacyProbes(history []string) bool {
	if len(history) < 2 {
		return true
	}
	count := 0
	for _, text := range lastN(history, a.th.PrivacyWindow) {
		lowered := strings.ToLower(text)
		for _, re := range privacyProbeRes {
			if re.MatchString(lowered) {
				count++
				break
			}
		}
	}
	return count < a.th.MaxPrivacyProbes
}

func (a *Analyzer) flowScore(history []string) float64 {
	if len(history) < 2 {
		return 1.0
	}
	return (coherence(history) + responseQuality(history) + rhythm(history)) / 3.0
}

func coherence(history []string) float64 {
	var recentTopics []string
	for _, text := range lastN(history, 5) {
		lowered := strings.ToLower(text)
		for _, bucket := range topicBuckets {
			if containsAny(lowered, bucket.keywords) {
				recentTopics = append(recentTopics, bucket.name)
				break
			}
		}
	}
	if len(recentTopics) == 0 {
		return 0.8
	}
	unique := make(map[string]bool)
	for _, topic := range recentTopics {
		unique[topic] = true
	}
	score := 1.0 - float64(len(unique)-1)*0.2
	return clamp01(score)
}

func responseQuality(history []string) float64 {
	recent := lastN(history, 3)
	total := 0.0
	for _, text := range recent {
		lowered := strings.ToLower(text)

		positive := 0.8
		if containsAny(lowered, positiveIndicators) {
			positive = 1.0
		}
		engagement := 0.9
		if containsAny(lowered, questionIndicators) {
			engagement = 1.0
		}
		length := 0.7
		if n := len(strings.Fields(text)); n >= 5 && n <= 30 {
			length = 1.0
		}
		total += (positive + engagement + length) / 3.0
	}
	return total / float64(len(recent))
}

func rhythm(history []string) float64 {
	switch n := len(history); {
	case n <= 10:
		return 1.0
	case n <= 20:
		return 0.8
	default:
		return 0.6
	}
}

func topicAppropriateness(history []string, childAge int) float64 {
	if len(history) == 0 {
		return 1.0
	}
	topics := ageTopics(childAge)
	appropriate := 0
	for _, text := range history {
		if containsAny(strings.ToLower(text), topics) {
			appropriate++
		}
	}
	return float64(appropriate) / float64(len(history))
}

// ageTopics grows with age; an older child's vocabulary is a superset of
// a younger one's.
func ageTopics(childAge int) []string {
	topics := []string{"animals", "colors", "shapes", "numbers", "toys"}
	if childAge >= 4 {
		topics = append(topics, "stories", "family", "friends")
	}
	if childAge >= 6 {
		topics = append(topics, "school", "books", "games")
	}
	if childAge >= 8 {
		topics = append(topics, "science", "nature", "art")
	}
	return topics
}

func behavioralConcerns(history []string, window int) []string {
	if len(history) < 2 {
		return nil
	}
	recent := lastN(history, window)

	var concerns []string
	for _, theme := range concernThemes {
		count := 0
		for _, text := range recent {
			if containsAny(strings.ToLower(text), theme.keywords) {
				count++
			}
		}
		if count >= 2 {
			concerns = append(concerns, "repetitive_"+theme.name)
		}
	}

	for _, text := range recent {
		if containsAny(strings.ToLower(text), privacyKeywords) {
			concerns = append(concerns, "privacy_risk")
			break
		}
	}
	return concerns
}

func conversationQuality(history []string) float64 {
	if len(history) == 0 {
		return 1.0
	}
	n := float64(len(history))

	engagement, educational, warmth := 0, 0, 0
	for _, text := range history {
		lowered := strings.ToLower(text)
		if containsAny(lowered, interactiveIndicators) {
			engagement++
		}
		if containsAny(lowered, educationalKeywords) {
			educational++
		}
		if containsAny(lowered, warmKeywords) {
			warmth++
		}
	}
	e := clamp01(float64(engagement) / n)
	d := clamp01(float64(educational) / n)
	w := clamp01(float64(warmth) / n)
	return (e + d + w) / 3.0
}

func lastN(history []string, n int) []string {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
