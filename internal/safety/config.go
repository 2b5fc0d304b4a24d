package safety

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid safety config")

// Config holds the graded decision thresholds. A valid config keeps the
// strict ordering toxicity < high risk < critical.
type Config struct {
	ToxicityThreshold float64 `json:"toxicity_threshold"`
	HighRiskThreshold float64 `json:"high_risk_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`
}

// DefaultConfig returns the tuned production thresholds.
func DefaultConfig() Config {
	return Config{
		ToxicityThreshold: 0.1,
		HighRiskThreshold: 0.3,
		CriticalThreshold: 0.7,
	}
}

// Validate refuses out-of-range or mis-ordered thresholds.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"toxicity_threshold":  c.ToxicityThreshold,
		"high_risk_threshold": c.HighRiskThreshold,
		"critical_threshold":  c.CriticalThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %v out of [0,1]", ErrInvalidConfig, name, v)
		}
	}
	if !(c.ToxicityThreshold < c.HighRiskThreshold && c.HighRiskThreshold < c.CriticalThreshold) {
		return fmt.Errorf("%w: thresholds must be strictly ordered toxicity < high risk < critical (got %v, %v, %v)",
			ErrInvalidConfig, c.ToxicityThreshold, c.HighRiskThreshold, c.CriticalThreshold)
	}
	return nil
}
