package safety

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/antoniostano/guardian/internal/conversation"
	"github.com/antoniostano/guardian/internal/education"
	"github.com/antoniostano/guardian/internal/emotion"
	"github.com/antoniostano/guardian/internal/observability"
	"github.com/antoniostano/guardian/internal/patterns"
)

const defaultBatchConcurrency = 4

// layerVersions identify the analysis layers embedded in every verdict so
// downstream consumers can tell which ruleset produced it.
var layerVersions = map[string]string{
	"toxicity":  "1.0.0",
	"context":   "1.0.0",
	"emotion":   "1.0.0",
	"education": "1.0.0",
}

// Engine runs every analysis layer over one utterance and combines them
// into a single Verdict. Config and pattern catalog are atomic snapshots:
// in-flight calls keep the snapshot they started with while updates swap
// the pointer for subsequent calls.
type Engine struct {
	cfg     atomic.Pointer[Config]
	matcher atomic.Pointer[patterns.Matcher]

	context   *conversation.Analyzer
	emotion   *emotion.Analyzer
	education *education.Evaluator

	sink    AuditSink
	metrics *observability.Metrics

	batchConcurrency int

	mu   sync.Mutex
	perf PerformanceMetrics
}

// NewEngine wires the layers together. sink and metrics may be nil.
func NewEngine(
	cfg Config,
	matcher *patterns.Matcher,
	contextAnalyzer *conversation.Analyzer,
	emotionAnalyzer *emotion.Analyzer,
	educationEvaluator *education.Evaluator,
	sink AuditSink,
	metrics *observability.Metrics,
	batchConcurrency int,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if batchConcurrency <= 0 {
		batchConcurrency = defaultBatchConcurrency
	}

	e := &Engine{
		context:          contextAnalyzer,
		emotion:          emotionAnalyzer,
		education:        educationEvaluator,
		sink:             sink,
		metrics:          metrics,
		batchConcurrency: batchConcurrency,
	}
	e.cfg.Store(&cfg)
	e.matcher.Store(matcher)
	return e, nil
}

// Analyze runs the full pipeline for one utterance. It never returns an
// error and never panics: any internal failure yields a blocking verdict.
func (e *Engine) Analyze(ctx context.Context, text string, childAge int, history []string, sessionID string) (verdict Verdict) {
	start := time.Now()
	emergency := false

	defer func() {
		if r := recover(); r != nil {
			emergency = true
			verdict = e.emergencyVerdict(r)
		}
		verdict.Timestamp = time.Now().UTC()
		verdict.ModelVersions = layerVersions
		verdict.ProcessingTimeMS = float64(time.Since(start).Nanoseconds()) / 1e6
		e.record(verdict, emergency)
		e.audit(verdict, text, sessionID)
	}()

	age := ClampAge(childAge)
	cfg := *e.cfg.Load()

	tox := e.matcher.Load().Match(text, age)
	ageOK := AgeAppropriate(text, age)
	ctxRes := e.context.Analyze(sessionID, text, history, age)
	emoRes := e.emotion.Analyze(text, age, history)
	eduRes := e.education.Evaluate(text, age)

	risk := overallRisk(cfg, tox.Score, ctxRes, emoRes)

	verdict = Verdict{
		IsSafe: tox.Score < cfg.ToxicityThreshold && ageOK && ctxRes.ContextSafe &&
			(emoRes.IsPositive || emoRes.Sentiment > -0.3),
		OverallRisk: risk,
		Confidence:  (tox.Confidence + ctxRes.FlowScore + math.Abs(emoRes.Sentiment)) / 3,

		Toxicity:  tox,
		Context:   ctxRes,
		Emotion:   emoRes,
		Education: eduRes,

		AgeAppropriate: ageOK,
		TargetAgeRange: TargetAgeRange(text),
		Category:       categorize(text, eduRes.Score),

		Modifications:   modifications(cfg, tox, emoRes, text, age),
		Recommendations: recommendations(tox, ctxRes, emoRes, age),

		ParentNotificationRequired: risk >= RiskHigh || (age <= 5 && risk == RiskMedium),
	}
	return verdict
}

// overallRisk is the deterministic escalation ladder. Toxicity dominates;
// context and emotion can only raise an otherwise low score to medium.
func overallRisk(cfg Config, toxScore float64, ctxRes conversation.Result, emoRes emotion.Result) RiskLevel {
	switch {
	case toxScore >= cfg.CriticalThreshold:
		return RiskCritical
	case toxScore >= cfg.HighRiskThreshold:
		return RiskHigh
	case !ctxRes.ContextSafe || (!emoRes.IsPositive && emoRes.Sentiment < -0.5):
		return RiskMedium
	case toxScore > 0.1:
		return RiskLow
	default:
		return RiskSafe
	}
}

var (
	storyKeywords    = []string{"story", "once upon", "princess", "dragon", "adventure"}
	gameKeywords     = []string{"play", "game", "toy", "puzzle", "fun"}
	questionKeywords = []string{"?", "what", "how", "why", "where", "when"}
)

func categorize(text string, educationalScore float64) ContentCategory {
	if educationalScore > 0.5 {
		return CategoryEducational
	}
	lowered := strings.ToLower(text)
	switch {
	case containsAny(lowered, storyKeywords):
		return CategoryStory
	case containsAny(lowered, gameKeywords):
		return CategoryGame
	case containsAny(lowered, questionKeywords):
		return CategoryQuestion
	default:
		return CategoryConversation
	}
}

// safeAlternatives maps detected harmful terms to kid-friendly stand-ins.
var safeAlternatives = map[string][]string{
	"scary":  {"fun", "interesting"},
	"bad":    {"not so good"},
	"hate":   {"don't like"},
	"stupid": {"silly"},
	"angry":  {"upset"},
	"hurt":   {"not feeling well"},
}

// positiveRewrites reframe negative phrasing when the emotional tone of an
// otherwise acceptable utterance is poor. Ordered so suggestions are
// deterministic.
var positiveRewrites = []struct {
	negative, positive string
}{
	{"sad", "a little down"},
	{"bad", "not great"},
	{"difficult", "challenging"},
	{"wrong", "different"},
}

func modifications(cfg Config, tox patterns.ToxicityResult, emoRes emotion.Result, text string, age int) []Modification {
	var mods []Modification

	if tox.Score > cfg.ToxicityThreshold {
		for _, pattern := range tox.DetectedPatterns {
			alts, ok := safeAlternatives[pattern]
			if !ok {
				continue
			}
			suggested := alts[0]
			if len(alts) > 1 && age > 5 {
				suggested = alts[1]
			}
			mods = append(mods, Modification{
				Original:   pattern,
				Suggested:  suggested,
				Reason:     "age-appropriate language",
				Confidence: 0.8,
			})
		}
	}

	if !emoRes.IsPositive && emoRes.Sentiment < -0.3 {
		lowered := strings.ToLower(text)
		for _, rw := range positiveRewrites {
			if strings.Contains(lowered, rw.negative) {
				mods = append(mods, Modification{
					Original:   rw.negative,
					Suggested:  rw.positive,
					Reason:     "positive reframing",
					Confidence: 0.6,
				})
				break
			}
		}
	}
	return mods
}

func recommendations(tox patterns.ToxicityResult, ctxRes conversation.Result, emoRes emotion.Result, age int) []string {
	var recs []string
	if tox.Score > 0.3 {
		recs = append(recs, "Consider using more positive language")
	}
	if !ctxRes.ContextSafe {
		recs = append(recs, "Steer the conversation toward a calmer topic")
	}
	if !emoRes.IsPositive && emoRes.Sentiment < -0.3 {
		recs = append(recs, "Focus on positive and uplifting topics")
	}
	if age <= 5 && tox.Score > 0 {
		recs = append(recs, "Use simpler, gentler language for young children")
	}
	return recs
}

// emergencyVerdict is the terminal fallback for any panic inside the
// pipeline. It blocks unconditionally and carries the error text in the
// per-layer sentinels for audit consumers.
func (e *Engine) emergencyVerdict(cause any) Verdict {
	errText := fmt.Sprintf("analysis_error: %v", cause)
	return Verdict{
		IsSafe:      false,
		OverallRisk: RiskCritical,
		Confidence:  0,
		Toxicity: patterns.ToxicityResult{
			Score:            1,
			Categories:       []string{"analysis_error"},
			Confidence:       1,
			DetectedPatterns: []string{errText},
			Blocked:          true,
		},
		Context: conversation.Result{
			ContextSafe:        false,
			BehavioralConcerns: []string{errText},
		},
		Emotion: emotion.Result{
			IsPositive:         false,
			Sentiment:          -1,
			AgeAppropriateness: 0,
			Triggers:           []string{errText},
		},
		Education:      education.Result{},
		AgeAppropriate: false,
		TargetAgeRange: [2]int{0, 0},
		Category:       CategoryConversation,
		Recommendations: []string{
			"Content blocked due to analysis error",
		},
		ParentNotificationRequired: true,
	}
}

func (e *Engine) record(v Verdict, emergency bool) {
	e.mu.Lock()
	e.perf.TotalRequests++
	if !v.IsSafe {
		e.perf.BlockedRequests++
	}
	if v.OverallRisk >= RiskHigh {
		e.perf.HighRiskDetections++
	}
	n := float64(e.perf.TotalRequests)
	e.perf.AvgProcessingTime += (v.ProcessingTimeMS - e.perf.AvgProcessingTime) / n
	e.mu.Unlock()

	if e.metrics == nil {
		return
	}
	e.metrics.AnalyzeTotal.WithLabelValues(v.OverallRisk.String()).Inc()
	e.metrics.AnalyzeLatency.Observe(v.ProcessingTimeMS)
	e.metrics.Latency.Observe("analyze", v.ProcessingTimeMS)
	e.metrics.Latency.ObserveIndicator(v.OverallRisk.String())
	if !v.IsSafe {
		e.metrics.BlockedTotal.Inc()
	}
	if v.OverallRisk >= RiskHigh {
		e.metrics.HighRiskDetections.Inc()
	}
	if emergency {
		e.metrics.EmergencyBlocks.Inc()
	}
}

func (e *Engine) audit(v Verdict, text, sessionID string) {
	if e.sink == nil || v.OverallRisk < RiskHigh {
		return
	}
	e.sink.LogHighRisk(AuditEvent{
		Timestamp:        v.Timestamp,
		SessionID:        sessionID,
		RiskLevel:        v.OverallRisk,
		ToxicityScore:    v.Toxicity.Score,
		ContentHash:      ContentHash(text),
		DetectedPatterns: v.Toxicity.DetectedPatterns,
	})
}

// ContentHash is the digest stored in audit events in place of the raw
// content.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// BatchAnalyze fans texts out with bounded concurrency and returns
// verdicts in input order.
func (e *Engine) BatchAnalyze(ctx context.Context, texts []string, childAge int, sessionID string) []Verdict {
	start := time.Now()
	verdicts := make([]Verdict, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			verdicts[i] = e.Analyze(ctx, text, childAge, nil, sessionID)
			return nil
		})
	}
	g.Wait() // Analyze never errors.

	if e.metrics != nil {
		e.metrics.Latency.Observe("batch", float64(time.Since(start).Nanoseconds())/1e6)
	}
	return verdicts
}

// UpdateConfig validates the new thresholds and swaps them in atomically.
// In-flight analyses keep the snapshot they loaded at entry.
func (e *Engine) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg.Store(&cfg)
	return nil
}

// CurrentConfig returns the active threshold snapshot.
func (e *Engine) CurrentConfig() Config { return *e.cfg.Load() }

// SwapMatcher replaces the pattern matcher, typically after a catalog
// reload.
func (e *Engine) SwapMatcher(m *patterns.Matcher) { e.matcher.Store(m) }

// EngineKind reports the pattern engine backing the active matcher.
func (e *Engine) EngineKind() string { return e.matcher.Load().EngineKind() }

// Performance returns a copy of the cumulative counters.
func (e *Engine) Performance() PerformanceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.perf
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
