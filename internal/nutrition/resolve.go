package nutrition

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayush/nutrilog/internal/metrics"
	"github.com/ayush/nutrilog/internal/models"
)

// Estimator produces a macro estimate for a free-text meal description.
type Estimator interface {
	Estimate(ctx context.Context, description string) (*Estimate, error)
	Model() string
}

// Recorder persists AI attempts. The MongoDB analysis log implements it.
type Recorder interface {
	Record(ctx context.Context, rec *models.AnalysisRecord) error
}

// Result is the outcome of resolving a meal's nutrition.
type Result struct {
	Macros  models.Macros
	Source  string
	Note    string
	Raw     string
	Model   string
	Err     error
	Latency time.Duration
}

// Resolver picks manual values when complete and falls back to the AI
// estimator otherwise. Estimator failures never fail the request.
type Resolver struct {
	est     Estimator
	rec     Recorder
	metrics *metrics.Metrics
}

// NewResolver builds a resolver. rec and m may be nil.
func NewResolver(est Estimator, rec Recorder, m *metrics.Metrics) *Resolver {
	return &Resolver{est: est, rec: rec, metrics: m}
}

// Resolve returns in verbatim when all seven values are present. Otherwise
// the AI estimate is used, with any supplied values overriding it; on failure
// the estimate is all zeros and Note explains why.
func (r *Resolver) Resolve(ctx context.Context, description string, in models.MacroInput) Result {
	if in.Complete() {
		r.metrics.AIEstimate(metrics.AIManual)
		return Result{Macros: in.ApplyTo(models.Macros{}), Source: models.SourceManual}
	}
	res := r.Estimate(ctx, description)
	res.Macros = in.ApplyTo(res.Macros)
	return res
}

// Estimate always consults the AI estimator.
func (r *Resolver) Estimate(ctx context.Context, description string) Result {
	res := Result{Source: models.SourceAI}
	if r.est == nil {
		res.Err = ErrDisabled
	} else {
		res.Model = r.est.Model()
		start := time.Now()
		est, err := r.est.Estimate(ctx, description)
		res.Latency = time.Since(start)
		if est != nil {
			res.Raw = est.Raw
			if err == nil {
				res.Macros = est.Macros.Clamp()
			}
		}
		res.Err = err
	}

	switch {
	case errors.Is(res.Err, ErrDisabled):
		r.metrics.AIEstimate(metrics.AIDisabled)
		res.Note = "nutrition estimate unavailable: AI service not configured"
	case res.Err != nil:
		r.metrics.AIEstimate(metrics.AIFailure)
		logrus.WithError(res.Err).WithField("latency", res.Latency.String()).Warn("nutrition estimate failed")
		res.Macros = models.Macros{}
		if errors.Is(res.Err, context.DeadlineExceeded) {
			res.Note = "nutrition estimate failed: AI service timed out"
		} else {
			res.Note = "nutrition estimate failed: " + res.Err.Error()
		}
	default:
		r.metrics.AIEstimate(metrics.AISuccess)
	}
	return res
}

// Record writes an AI attempt to the analysis log. Manual results and a nil
// recorder are skipped; log failures are only logged.
func (r *Resolver) Record(ctx context.Context, userID, mealID int64, description string, res Result) {
	if r.rec == nil || res.Source != models.SourceAI || errors.Is(res.Err, ErrDisabled) {
		return
	}
	rec := &models.AnalysisRecord{
		UserID:      userID,
		MealID:      mealID,
		Description: description,
		Model:       res.Model,
		Macros:      res.Macros,
		Raw:         res.Raw,
		LatencyMS:   res.Latency.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := r.rec.Record(ctx, rec); err != nil {
		logrus.WithError(err).WithField("meal_id", mealID).Warn("record meal analysis")
	}
}
