package safety

import (
	"time"

	"github.com/antoniostano/guardian/internal/conversation"
	"github.com/antoniostano/guardian/internal/education"
	"github.com/antoniostano/guardian/internal/emotion"
	"github.com/antoniostano/guardian/internal/patterns"
)

// Modification is one suggested text rewrite making content safer.
type Modification struct {
	Original   string  `json:"original"`
	Suggested  string  `json:"suggested"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Verdict is the terminal artifact of one analysis. It is always fully
// populated; there is no partial verdict.
type Verdict struct {
	IsSafe      bool      `json:"is_safe"`
	OverallRisk RiskLevel `json:"overall_risk"`
	Confidence  float64   `json:"confidence"`

	Toxicity  patterns.ToxicityResult `json:"toxicity"`
	Context   conversation.Result     `json:"context"`
	Emotion   emotion.Result          `json:"emotion"`
	Education education.Result        `json:"education"`

	AgeAppropriate bool            `json:"age_appropriate"`
	TargetAgeRange [2]int          `json:"target_age_range"`
	Category       ContentCategory `json:"category"`

	Modifications   []Modification `json:"modifications"`
	Recommendations []string       `json:"recommendations"`

	ParentNotificationRequired bool `json:"parent_notification_required"`

	Timestamp        time.Time         `json:"timestamp"`
	ModelVersions    map[string]string `json:"model_versions"`
	ProcessingTimeMS float64           `json:"processing_time_ms"`
}

// AuditEvent is what reaches the audit sink for high-risk verdicts. The
// content itself never leaves the engine in clear, only its hash.
type AuditEvent struct {
	Timestamp        time.Time `json:"timestamp"`
	SessionID        string    `json:"session_id,omitempty"`
	RiskLevel        RiskLevel `json:"risk_level"`
	ToxicityScore    float64   `json:"toxicity_score"`
	ContentHash      string    `json:"content_hash"`
	DetectedPatterns []string  `json:"detected_patterns"`
}

// AuditSink receives high-risk detections. Implementations must be
// best-effort and non-blocking; a sink failure never affects a verdict.
type AuditSink interface {
	LogHighRisk(event AuditEvent)
}

// PerformanceMetrics are the engine's cumulative counters.
type PerformanceMetrics struct {
	TotalRequests      uint64  `json:"total_requests"`
	BlockedRequests    uint64  `json:"blocked_requests"`
	AvgProcessingTime  float64 `json:"avg_processing_time_ms"`
	HighRiskDetections uint64  `json:"high_risk_detections"`
}
