package patterns

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Severity is the configured risk class of a pattern category.
type Severity string

const (
	SeveritySafe     Severity = "safe"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight maps a severity to its toxicity contribution.
func (s Severity) Weight() float64 {
	switch s {
	case SeveritySafe:
		return 0.0
	case SeverityLow:
		return 0.2
	case SeverityMedium:
		return 0.5
	case SeverityHigh:
		return 0.8
	case SeverityCritical:
		return 1.0
	default:
		return 0.5
	}
}

func (s Severity) valid() bool {
	switch s {
	case SeveritySafe, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// BoostCategory is the category whose matches discount the final score
// instead of raising it.
const BoostCategory = "educational_positive"

// Category is one named keyword group from the catalog resource.
type Category struct {
	Name       string
	Keywords   []string
	Risk       Severity
	MinAge     int
	MaxAge     int
	BoostScore float64
}

// CoversAge reports whether the category considers content acceptable for
// the given age. The matcher only scans categories that do not cover the
// child's age.
func (c Category) CoversAge(age int) bool {
	return age >= c.MinAge && age <= c.MaxAge
}

// Catalog is an immutable, validated set of pattern categories. Hot reload
// builds a fresh Catalog and swaps the matcher as a whole unit.
type Catalog struct {
	categories []Category
}

// Categories returns the categories in deterministic (name) order.
func (c *Catalog) Categories() []Category { return c.categories }

// Len reports the number of categories.
func (c *Catalog) Len() int { return len(c.categories) }

type categoryConfig struct {
	Keywords        []string `json:"keywords"`
	RiskLevel       Severity `json:"risk_level"`
	AgeRestrictions [2]int   `json:"age_restrictions"`
	BoostScore      float64  `json:"boost_score,omitempty"`
}

var ErrInvalidCatalog = errors.New("invalid pattern catalog")

// Load reads the pattern catalog from a JSON resource. A missing file is
// created with the default catalog first, so a fresh deployment starts
// with a usable policy.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeDefaultCatalog(path); err != nil {
			return nil, err
		}
		return newCatalog(defaultCategories())
	}
	if err != nil {
		return nil, fmt.Errorf("read pattern catalog: %w", err)
	}

	var cfg map[string]categoryConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse pattern catalog %s: %w", path, err)
	}
	return newCatalog(cfg)
}

// Default returns the built-in catalog without touching the filesystem.
func Default() *Catalog {
	c, err := newCatalog(defaultCategories())
	if err != nil {
		// The built-in table must always validate.
		panic(err)
	}
	return c
}

func newCatalog(cfg map[string]categoryConfig) (*Catalog, error) {
	if len(cfg) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrInvalidCatalog)
	}

	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	cats := make([]Category, 0, len(cfg))
	for _, name := range names {
		cc := cfg[name]
		if len(cc.Keywords) == 0 {
			return nil, fmt.Errorf("%w: category %q has no keywords", ErrInvalidCatalog, name)
		}
		if !cc.RiskLevel.valid() {
			return nil, fmt.Errorf("%w: category %q has unknown risk level %q", ErrInvalidCatalog, name, cc.RiskLevel)
		}
		if cc.AgeRestrictions[0] > cc.AgeRestrictions[1] {
			return nil, fmt.Errorf("%w: category %q age range [%d,%d] is inverted",
				ErrInvalidCatalog, name, cc.AgeRestrictions[0], cc.AgeRestrictions[1])
		}
		if cc.BoostScore < 0 || cc.BoostScore > 1 {
			return nil, fmt.Errorf("%w: category %q boost score %v out of range", ErrInvalidCatalog, name, cc.BoostScore)
		}
		keywords := make([]string, 0, len(cc.Keywords))
		for _, kw := range cc.Keywords {
			if kw == "" {
				return nil, fmt.Errorf("%w: category %q has an empty keyword", ErrInvalidCatalog, name)
			}
			keywords = append(keywords, strings.ToLower(kw))
		}
		cats = append(cats, Category{
			Name:       name,
			Keywords:   keywords,
			Risk:       cc.RiskLevel,
			MinAge:     cc.AgeRestrictions[0],
			MaxAge:     cc.AgeRestrictions[1],
			BoostScore: cc.BoostScore,
		})
	}
	return &Catalog{categories: cats}, nil
}

func writeDefaultCatalog(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalog dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(defaultCategories(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode default catalog: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write default catalog: %w", err)
	}
	return nil
}

// defaultCategories is the shipped child-directed policy. An age range is
// the span of ages the content is acceptable for; boost categories use an
// empty range so they are always scanned.
func defaultCategories() map[string]categoryConfig {
	return map[string]categoryConfig{
		"violence": {
			Keywords: []string{
				"violence", "violent", "kill", "death", "blood", "weapon", "fight",
			},
			RiskLevel:       SeverityHigh,
			AgeRestrictions: [2]int{18, 18},
		},
		"fear_content": {
			Keywords: []string{
				"scary", "nightmare", "terror", "monster", "ghost", "haunted",
			},
			RiskLevel:       SeverityHigh,
			AgeRestrictions: [2]int{10, 12},
		},
		"adult_themes": {
			Keywords: []string{
				"adult", "romance", "dating", "kiss", "boyfriend", "girlfriend",
			},
			RiskLevel:       SeverityMedium,
			AgeRestrictions: [2]int{13, 18},
		},
		"negative_language": {
			Keywords: []string{
				"hate", "stupid", "dumb", "ugly", "loser", "failure", "worthless",
			},
			RiskLevel:       SeverityMedium,
			AgeRestrictions: [2]int{13, 18},
		},
		"privacy_probing": {
			Keywords: []string{
				"address", "phone number", "password", "our secret", "don't tell",
				"where do you live", "real name",
			},
			RiskLevel:       SeverityCritical,
			AgeRestrictions: [2]int{0, 0},
		},
		BoostCategory: {
			Keywords: []string{
				"learn", "study", "read", "book", "school", "count", "colors",
				"shapes", "numbers", "good job", "well done",
			},
			RiskLevel:       SeveritySafe,
			AgeRestrictions: [2]int{0, 0},
			BoostScore:      0.2,
		},
	}
}
