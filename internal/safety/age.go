package safety

import "strings"

// Supported child age range. Ages outside it are clamped, not rejected.
const (
	MinAge = 3
	MaxAge = 12
)

// ClampAge maps any age into the supported range.
func ClampAge(age int) int {
	if age < MinAge {
		return MinAge
	}
	if age > MaxAge {
		return MaxAge
	}
	return age
}

type ageBucket struct {
	forbidden     []string
	maxComplexity float64
}

// ageBuckets holds the discrete per-age restrictions. Ages past the table
// fall back to the age-6 bucket.
var ageBuckets = map[int]ageBucket{
	3: {forbidden: []string{"scary", "violence", "adult"}, maxComplexity: 0.2},
	4: {forbidden: []string{"violence", "adult"}, maxComplexity: 0.3},
	5: {forbidden: []string{"adult"}, maxComplexity: 0.4},
	6: {forbidden: nil, maxComplexity: 0.5},
	7: {forbidden: nil, maxComplexity: 0.6},
	8: {forbidden: nil, maxComplexity: 0.7},
}

const fallbackAgeBucket = 6

// privacyPhrases block regardless of age; a child companion never probes
// for any of these.
var privacyPhrases = []string{
	"personal information", "address", "phone", "password",
	"real name", "location", "school name", "parent work",
	"where do you live",
}

func bucketFor(age int) ageBucket {
	if b, ok := ageBuckets[age]; ok {
		return b
	}
	return ageBuckets[fallbackAgeBucket]
}

// AgeAppropriate validates text against the child's age bucket. It is
// independent of the toxicity score: forbidden terms, privacy probes, and
// excessive complexity each fail it on their own.
func AgeAppropriate(text string, age int) bool {
	bucket := bucketFor(ClampAge(age))
	lowered := strings.ToLower(text)

	for _, kw := range bucket.forbidden {
		if strings.Contains(lowered, kw) {
			return false
		}
	}
	for _, phrase := range privacyPhrases {
		if strings.Contains(lowered, phrase) {
			return false
		}
	}
	return Complexity(text) <= bucket.maxComplexity
}

// Complexity estimates reading complexity in [0,1] from average word
// length, the share of long words, and sentence count.
func Complexity(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	totalLen := 0
	longWords := 0
	for _, w := range words {
		totalLen += len(w)
		if len(w) > 6 {
			longWords++
		}
	}
	avgWordLen := float64(totalLen) / float64(len(words))
	longRatio := float64(longWords) / float64(len(words))
	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?") + 1

	complexity := (avgWordLen/10 + longRatio + float64(sentences)/10) / 3
	if complexity > 1 {
		return 1
	}
	return complexity
}

// TargetAgeRange buckets the complexity estimate into a suggested
// audience age span.
func TargetAgeRange(text string) [2]int {
	switch c := Complexity(text); {
	case c <= 0.3:
		return [2]int{3, 6}
	case c <= 0.5:
		return [2]int{4, 8}
	case c <= 0.7:
		return [2]int{6, 10}
	default:
		return [2]int{8, 12}
	}
}
