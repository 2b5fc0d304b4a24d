package education

import "strings"

// Result is the advisory educational estimate for one utterance. It feeds
// content categorization; it never blocks content on its own.
type Result struct {
	Score float64  `json:"educational_score"`
	Tags  []string `json:"tags"`
}

// learningFrameworks group keyword buckets by the pedagogy dimension they
// indicate. A text is tagged with every bucket it touches.
var learningFrameworks = []struct {
	name     string
	keywords []string
}{
	// Cognitive domains.
	{"remember", []string{"recall", "list", "name", "identify", "what is"}},
	{"understand", []string{"explain", "describe", "why", "how", "what does"}},
	{"apply", []string{"use", "solve", "show", "demonstrate", "practice"}},
	{"create", []string{"design", "build", "make", "invent", "imagine"}},
	// Learning styles.
	{"visual", []string{"see", "look", "picture", "color", "shape"}},
	{"auditory", []string{"hear", "listen", "sound", "music", "song", "rhyme"}},
	{"kinesthetic", []string{"move", "touch", "dance", "hands-on"}},
	// Intelligences.
	{"linguistic", []string{"story", "read", "write", "letter", "word"}},
	{"logical", []string{"number", "count", "math", "pattern", "puzzle"}},
	{"naturalistic", []string{"nature", "animal", "plant", "outdoor"}},
}

// learningVerbs are explicit markers of instructional intent that bump
// the score beyond what bucket coverage alone gives.
var learningVerbs = []string{"learn", "teach", "study", "practice"}

const (
	tagWeight  = 0.25
	verbWeight = 0.25
)

// Evaluator scores educational value from fixed keyword frameworks.
// Stateless and safe for concurrent use.
type Evaluator struct{}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Evaluate returns a 0-1 educational score plus the framework tags the
// text touched.
func (e *Evaluator) Evaluate(text string, _ int) Result {
	lowered := strings.ToLower(text)

	var tags []string
	for _, fw := range learningFrameworks {
		for _, kw := range fw.keywords {
			if strings.Contains(lowered, kw) {
				tags = append(tags, fw.name)
				break
			}
		}
	}

	score := tagWeight * float64(len(tags))
	for _, v := range learningVerbs {
		if strings.Contains(lowered, v) {
			score += verbWeight
			break
		}
	}
	if score > 1 {
		score = 1
	}

	return Result{Score: score, Tags: tags}
}
