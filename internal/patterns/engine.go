package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/willf/bloom"
)

// Engine kinds selectable at startup.
const (
	EngineAutomaton = "automaton"
	EngineRegex     = "regex"
)

var ErrUnknownEngine = errors.New("unknown match engine")

// MatchEngine reports which catalog keywords occur in a lowercased text,
// grouped by category. Both implementations must agree on whether a text
// ends up blocked for the same catalog.
type MatchEngine interface {
	Matches(lowered string) map[string][]string
}

// NewMatchEngine builds the requested engine over the catalog.
func NewMatchEngine(kind string, catalog *Catalog) (MatchEngine, error) {
	switch kind {
	case EngineAutomaton:
		return newAutomatonEngine(catalog), nil
	case EngineRegex:
		return newRegexEngine(catalog)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, kind)
	}
}

// automatonEngine scans with an Aho-Corasick automaton over every keyword
// in the catalog. A bloom filter of keyword prefixes screens out clearly
// clean inputs before the automaton runs.
type automatonEngine struct {
	matcher *ahocorasick.Matcher
	words   []string
	owners  map[string][]string // keyword -> owning category names

	prefilter    *bloom.BloomFilter
	prefixLen    int
	hasShortWord bool
}

const bloomPrefixLen = 3

func newAutomatonEngine(catalog *Catalog) *automatonEngine {
	e := &automatonEngine{
		owners:    make(map[string][]string),
		prefixLen: bloomPrefixLen,
	}
	for _, cat := range catalog.Categories() {
		for _, kw := range cat.Keywords {
			if _, seen := e.owners[kw]; !seen {
				e.words = append(e.words, kw)
			}
			e.owners[kw] = append(e.owners[kw], cat.Name)
		}
	}
	e.matcher = ahocorasick.NewStringMatcher(e.words)

	e.prefilter = bloom.NewWithEstimates(uint(len(e.words))*4, 0.01)
	for _, kw := range e.words {
		if len(kw) < e.prefixLen {
			e.hasShortWord = true
			continue
		}
		e.prefilter.Add([]byte(kw[:e.prefixLen]))
	}
	return e
}

func (e *automatonEngine) Matches(lowered string) map[string][]string {
	if !e.hasShortWord && !e.mightMatch(lowered) {
		return nil
	}

	hits := e.matcher.Match([]byte(lowered))
	if len(hits) == 0 {
		return nil
	}
	found := make(map[string][]string)
	for _, idx := range hits {
		kw := e.words[idx]
		for _, cat := range e.owners[kw] {
			found[cat] = append(found[cat], kw)
		}
	}
	return found
}

// mightMatch slides a keyword-prefix window over the text. Any substring
// match must begin with some keyword's prefix, so a clean sweep proves
// there is nothing to find.
func (e *automatonEngine) mightMatch(lowered string) bool {
	if len(lowered) < e.prefixLen {
		return false
	}
	for i := 0; i+e.prefixLen <= len(lowered); i++ {
		if e.prefilter.Test([]byte(lowered[i : i+e.prefixLen])) {
			return true
		}
	}
	return false
}

// regexEngine is the fallback: one compiled alternation per category.
type regexEngine struct {
	patterns []categoryPattern
}

type categoryPattern struct {
	category string
	re       *regexp.Regexp
	keywords []string
}

func newRegexEngine(catalog *Catalog) (*regexEngine, error) {
	e := &regexEngine{}
	for _, cat := range catalog.Categories() {
		escaped := make([]string, len(cat.Keywords))
		for i, kw := range cat.Keywords {
			escaped[i] = regexp.QuoteMeta(kw)
		}
		re, err := regexp.Compile("(?:" + strings.Join(escaped, "|") + ")")
		if err != nil {
			return nil, fmt.Errorf("compile alternation for category %q: %w", cat.Name, err)
		}
		e.patterns = append(e.patterns, categoryPattern{
			category: cat.Name,
			re:       re,
			keywords: cat.Keywords,
		})
	}
	return e, nil
}

func (e *regexEngine) Matches(lowered string) map[string][]string {
	var found map[string][]string
	for _, cp := range e.patterns {
		matches := cp.re.FindAllString(lowered, -1)
		if len(matches) == 0 {
			continue
		}
		seen := make(map[string]bool, len(matches))
		for _, m := range matches {
			seen[m] = true
		}
		// Report in catalog keyword order so results are deterministic.
		var kws []string
		for _, kw := range cp.keywords {
			if seen[kw] {
				kws = append(kws, kw)
			}
		}
		if found == nil {
			found = make(map[string][]string)
		}
		found[cp.category] = kws
	}
	return found
}
