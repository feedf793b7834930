package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/webrana-mailguard-backend/internal/errors"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
)

// DefaultTimeout bounds a single call to the classification backend
const DefaultTimeout = 10 * time.Second

// Request is the input handed to the classification backend
type Request struct {
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentName string `json:"attachmentName,omitempty"`
}

// RawFactors mirrors the backend's riskFactors object. Pointers detect missing fields.
type RawFactors struct {
	Content    *float64 `json:"content"`
	Attachment *float64 `json:"attachment"`
	Links      *float64 `json:"links"`
	Context    *float64 `json:"context"`
}

// RawAssessment is the untrusted payload returned by a backend
type RawAssessment struct {
	RiskScore   *float64    `json:"riskScore"`
	ThreatLevel string      `json:"threatLevel,omitempty"`
	Analysis    string      `json:"analysis"`
	Suggestions []string    `json:"suggestions"`
	RiskFactors *RawFactors `json:"riskFactors"`
}

// Assessment is a validated risk verdict
type Assessment struct {
	RiskScore   float64            `json:"risk_score"`
	ThreatLevel models.ThreatLevel `json:"threat_level"`
	Analysis    string             `json:"analysis"`
	Suggestions []string           `json:"suggestions"`
	RiskFactors models.RiskFactors `json:"risk_factors"`
	Fallback    bool               `json:"-"`
}

// Backend is an external content classifier
type Backend interface {
	Analyze(ctx context.Context, req Request) (*RawAssessment, error)
}

// Fallback returns the fixed conservative assessment used whenever the backend fails
func Fallback() Assessment {
	return Assessment{
		RiskScore:   15,
		ThreatLevel: models.ThreatLow,
		Analysis:    "Standard heuristic scan complete.",
		Suggestions: []string{"Double-check recipient identity"},
		RiskFactors: models.RiskFactors{Content: 10, Attachment: 0, Links: 5, Context: 0},
		Fallback:    true,
	}
}

// Evaluator wraps a Backend and never fails: backend errors, timeouts and
// malformed payloads all yield Fallback().
type Evaluator struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

// EvaluatorConfig holds configuration for the Evaluator
type EvaluatorConfig struct {
	Backend Backend
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewEvaluator creates a new Evaluator. A nil backend always yields the fallback.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Evaluator{
		backend: cfg.Backend,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// Evaluate scores a message
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Assessment {
	if e.backend == nil {
		return Fallback()
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		raw *RawAssessment
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: backend panic: %v", apperrors.ErrClassificationUnavailable, r)}
			}
		}()
		raw, err := e.backend.Analyze(ctx, req)
		done <- result{raw: raw, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("%w: %v", apperrors.ErrClassificationUnavailable, ctx.Err())
	}

	if res.err != nil {
		e.logFallback(res.err)
		return Fallback()
	}

	assessment, err := Validate(res.raw)
	if err != nil {
		e.logFallback(err)
		return Fallback()
	}
	return assessment
}

func (e *Evaluator) logFallback(err error) {
	if e.logger == nil {
		return
	}
	e.logger.Warn("risk classification unavailable, using fallback",
		slog.String("event_type", "classifier_fallback"),
		slog.Any("error", err))
}

// Validate coerces a backend payload into an Assessment. The threat level is
// always derived from the score; the backend's label is ignored.
func Validate(raw *RawAssessment) (Assessment, error) {
	if raw == nil {
		return Assessment{}, fmt.Errorf("%w: empty response", apperrors.ErrClassificationUnavailable)
	}
	if raw.RiskScore == nil {
		return Assessment{}, fmt.Errorf("%w: missing riskScore", apperrors.ErrClassificationUnavailable)
	}
	score := *raw.RiskScore
	if !inRange(score) {
		return Assessment{}, fmt.Errorf("%w: riskScore %v out of range", apperrors.ErrClassificationUnavailable, score)
	}
	if strings.TrimSpace(raw.Analysis) == "" {
		return Assessment{}, fmt.Errorf("%w: missing analysis", apperrors.ErrClassificationUnavailable)
	}

	factors, err := validateFactors(raw.RiskFactors)
	if err != nil {
		return Assessment{}, err
	}
	if score > MediumThreshold && factors.Max() == 0 {
		return Assessment{}, fmt.Errorf("%w: elevated score with no contributing factor", apperrors.ErrClassificationUnavailable)
	}

	suggestions := make([]string, 0, len(raw.Suggestions))
	for _, s := range raw.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}

	return Assessment{
		RiskScore:   score,
		ThreatLevel: Classify(score),
		Analysis:    strings.TrimSpace(raw.Analysis),
		Suggestions: suggestions,
		RiskFactors: factors,
	}, nil
}

var errMissingFactor = errors.New("missing risk factor")

func validateFactors(raw *RawFactors) (models.RiskFactors, error) {
	if raw == nil {
		return models.RiskFactors{}, fmt.Errorf("%w: missing riskFactors", apperrors.ErrClassificationUnavailable)
	}
	values := map[string]*float64{
		"content":    raw.Content,
		"attachment": raw.Attachment,
		"links":      raw.Links,
		"context":    raw.Context,
	}
	for name, v := range values {
		if v == nil {
			return models.RiskFactors{}, fmt.Errorf("%w: %w %q", apperrors.ErrClassificationUnavailable, errMissingFactor, name)
		}
		if !inRange(*v) {
			return models.RiskFactors{}, fmt.Errorf("%w: factor %q = %v out of range", apperrors.ErrClassificationUnavailable, name, *v)
		}
	}
	return models.RiskFactors{
		Content:    *raw.Content,
		Attachment: *raw.Attachment,
		Links:      *raw.Links,
		Context:    *raw.Context,
	}, nil
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= MinScore && v <= MaxScore
}
