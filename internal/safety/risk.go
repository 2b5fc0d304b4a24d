package safety

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is the ordered verdict severity. The order is meaningful:
// escalation only ever moves upward through it.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskLow:
		return "low_risk"
	case RiskMedium:
		return "medium_risk"
	case RiskHigh:
		return "high_risk"
	case RiskCritical:
		return "critical"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	switch s {
	case "safe":
		*r = RiskSafe
	case "low_risk":
		*r = RiskLow
	case "medium_risk":
		*r = RiskMedium
	case "high_risk":
		*r = RiskHigh
	case "critical":
		*r = RiskCritical
	default:
		return fmt.Errorf("unknown risk level %q", s)
	}
	return nil
}

// ContentCategory classifies what kind of content an utterance is.
// Exactly one category is chosen per verdict via fixed priority.
type ContentCategory string

const (
	CategoryEducational  ContentCategory = "educational"
	CategoryStory        ContentCategory = "story"
	CategoryGame         ContentCategory = "game"
	CategoryQuestion     ContentCategory = "question"
	CategoryConversation ContentCategory = "conversation"
)
