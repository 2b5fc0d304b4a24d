package patterns

import (
	"strings"
)

// blockThreshold is the score above which a match result is considered
// blocked, independent of the engine in use.
const blockThreshold = 0.3

// ToxicityResult is the outcome of one pattern scan.
type ToxicityResult struct {
	Score            float64  `json:"score"`
	Categories       []string `json:"categories"`
	Confidence       float64  `json:"confidence"`
	DetectedPatterns []string `json:"detected_patterns"`
	Blocked          bool     `json:"blocked"`
}

// Matcher scans text against the catalog for a given child age. It is
// immutable; hot reload builds a new Matcher and swaps the reference.
type Matcher struct {
	catalog    *Catalog
	engine     MatchEngine
	engineKind string
}

// NewMatcher builds a matcher with the named engine kind.
func NewMatcher(catalog *Catalog, engineKind string) (*Matcher, error) {
	engine, err := NewMatchEngine(engineKind, catalog)
	if err != nil {
		return nil, err
	}
	return &Matcher{catalog: catalog, engine: engine, engineKind: engineKind}, nil
}

// NewMatcherWithEngine wires an explicit engine. Used by tests to inject
// faulty engines into the pipeline.
func NewMatcherWithEngine(catalog *Catalog, engine MatchEngine) *Matcher {
	return &Matcher{catalog: catalog, engine: engine, engineKind: "custom"}
}

// EngineKind reports which engine implementation backs this matcher.
func (m *Matcher) EngineKind() string { return m.engineKind }

// Match scans the text for every category whose age range does not cover
// the child's age. The score is the maximum category weight among hits,
// discounted by the boost category when it matched.
func (m *Matcher) Match(text string, childAge int) ToxicityResult {
	lowered := strings.ToLower(text)
	found := m.engine.Matches(lowered)

	var (
		score    float64
		boost    float64
		cats     []string
		detected []string
	)
	for _, cat := range m.catalog.Categories() {
		kws := found[cat.Name]
		if len(kws) == 0 {
			continue
		}
		if cat.CoversAge(childAge) {
			// Acceptable for this age; the category does not contribute.
			continue
		}

		cats = append(cats, cat.Name)
		detected = append(detected, orderByCatalog(cat.Keywords, kws)...)
		if cat.Name == BoostCategory {
			boost = cat.BoostScore
			continue
		}
		if w := cat.Risk.Weight(); w > score {
			score = w
		}
	}

	score -= boost
	if score < 0 {
		score = 0
	}

	confidence := 0.3*float64(len(detected)) + 0.4
	if confidence > 1 {
		confidence = 1
	}

	return ToxicityResult{
		Score:            score,
		Categories:       cats,
		Confidence:       confidence,
		DetectedPatterns: detected,
		Blocked:          score > blockThreshold,
	}
}

// orderByCatalog re-sorts engine hits into catalog keyword order so both
// engines report patterns deterministically.
func orderByCatalog(catalogOrder, hits []string) []string {
	if len(hits) <= 1 {
		return hits
	}
	seen := make(map[string]bool, len(hits))
	for _, kw := range hits {
		seen[kw] = true
	}
	ordered := make([]string, 0, len(hits))
	for _, kw := range catalogOrder {
		if seen[kw] {
			ordered = append(ordered, kw)
			delete(seen, kw)
		}
	}
	return ordered
}
