package risk

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Analyze(ctx context.Context, req Request) (*RawAssessment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RawAssessment), args.Error(1)
}

type slowBackend struct{ delay time.Duration }

func (b slowBackend) Analyze(ctx context.Context, req Request) (*RawAssessment, error) {
	time.Sleep(b.delay)
	return validRaw(90), nil
}

type panicBackend struct{}

func (panicBackend) Analyze(ctx context.Context, req Request) (*RawAssessment, error) {
	panic("classifier exploded")
}

func f(v float64) *float64 { return &v }

func validRaw(score float64) *RawAssessment {
	return &RawAssessment{
		RiskScore:   f(score),
		ThreatLevel: "Low",
		Analysis:    "Contains credential harvesting link.",
		Suggestions: []string{"Quarantine immediately", " "},
		RiskFactors: &RawFactors{Content: f(30), Attachment: f(40), Links: f(20), Context: f(10)},
	}
}

var req = Request{Subject: "Urgent", Body: "click here", AttachmentName: "update.zip"}

func TestEvaluate_BackendError_ReturnsFallback(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Analyze", mock.Anything, req).Return(nil, errors.New("connection refused"))

	e := NewEvaluator(EvaluatorConfig{Backend: backend})
	got := e.Evaluate(context.Background(), req)

	assert.Equal(t, Fallback(), got)
	assert.Equal(t, 15.0, got.RiskScore)
	assert.Equal(t, models.ThreatLow, got.ThreatLevel)
	assert.Equal(t, "Standard heuristic scan complete.", got.Analysis)
	assert.Equal(t, []string{"Double-check recipient identity"}, got.Suggestions)
	assert.Equal(t, models.RiskFactors{Content: 10, Attachment: 0, Links: 5, Context: 0}, got.RiskFactors)
	backend.AssertExpectations(t)
}

func TestEvaluate_Timeout_ReturnsFallback(t *testing.T) {
	e := NewEvaluator(EvaluatorConfig{Backend: slowBackend{delay: 200 * time.Millisecond}, Timeout: 20 * time.Millisecond})

	start := time.Now()
	got := e.Evaluate(context.Background(), req)

	assert.True(t, got.Fallback)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestEvaluate_Panic_ReturnsFallback(t *testing.T) {
	e := NewEvaluator(EvaluatorConfig{Backend: panicBackend{}})
	assert.Equal(t, Fallback(), e.Evaluate(context.Background(), req))
}

func TestEvaluate_NilBackend_ReturnsFallback(t *testing.T) {
	e := NewEvaluator(EvaluatorConfig{})
	assert.Equal(t, Fallback(), e.Evaluate(context.Background(), req))
}

func TestEvaluate_ValidPayload_DerivesThreatLevelFromScore(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Analyze", mock.Anything, req).Return(validRaw(92), nil)

	e := NewEvaluator(EvaluatorConfig{Backend: backend})
	got := e.Evaluate(context.Background(), req)

	assert.False(t, got.Fallback)
	assert.Equal(t, 92.0, got.RiskScore)
	// backend said "Low", score says Critical
	assert.Equal(t, models.ThreatCritical, got.ThreatLevel)
	assert.Equal(t, []string{"Quarantine immediately"}, got.Suggestions)
	assert.Equal(t, 40.0, got.RiskFactors.Attachment)
}

func TestValidate_RejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawAssessment
	}{
		{"nil", nil},
		{"missing score", &RawAssessment{Analysis: "x", RiskFactors: validRaw(10).RiskFactors}},
		{"score above range", func() *RawAssessment { r := validRaw(10); r.RiskScore = f(101); return r }()},
		{"negative score", func() *RawAssessment { r := validRaw(10); r.RiskScore = f(-1); return r }()},
		{"nan score", func() *RawAssessment { r := validRaw(10); r.RiskScore = f(math.NaN()); return r }()},
		{"empty analysis", func() *RawAssessment { r := validRaw(10); r.Analysis = "  "; return r }()},
		{"missing factors", func() *RawAssessment { r := validRaw(10); r.RiskFactors = nil; return r }()},
		{"missing one factor", func() *RawAssessment { r := validRaw(10); r.RiskFactors.Links = nil; return r }()},
		{"negative factor", func() *RawAssessment { r := validRaw(10); r.RiskFactors.Context = f(-3); return r }()},
		{"elevated score without factors", func() *RawAssessment {
			r := validRaw(80)
			r.RiskFactors = &RawFactors{Content: f(0), Attachment: f(0), Links: f(0), Context: f(0)}
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestEvaluate_MalformedPayload_ReturnsFallback(t *testing.T) {
	raw := validRaw(50)
	raw.RiskScore = f(250)

	backend := new(mockBackend)
	backend.On("Analyze", mock.Anything, req).Return(raw, nil)

	e := NewEvaluator(EvaluatorConfig{Backend: backend})
	assert.Equal(t, Fallback(), e.Evaluate(context.Background(), req))
}

func TestValidate_NilSuggestionsBecomeEmpty(t *testing.T) {
	raw := validRaw(20)
	raw.Suggestions = nil

	got, err := Validate(raw)
	assert.NoError(t, err)
	assert.NotNil(t, got.Suggestions)
	assert.Empty(t, got.Suggestions)
}
