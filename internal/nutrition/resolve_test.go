package nutrition

import (
	"context"
	"errors"
	"testing"

	"github.com/ayush/nutrilog/internal/models"
)

type fakeEstimator struct {
	est   *Estimate
	err   error
	calls int
}

func (f *fakeEstimator) Estimate(context.Context, string) (*Estimate, error) {
	f.calls++
	return f.est, f.err
}

func (f *fakeEstimator) Model() string { return "fake" }

type fakeRecorder struct{ recs []*models.AnalysisRecord }

func (f *fakeRecorder) Record(_ context.Context, rec *models.AnalysisRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func ptr(v float64) *float64 { return &v }

func fullInput() models.MacroInput {
	return models.MacroInput{
		Calories: ptr(500), Protein: ptr(30), Carbs: ptr(50), Fat: ptr(20),
		Fiber: ptr(5), Sugar: ptr(10), Sodium: ptr(400),
	}
}

func TestResolveManualSkipsAI(t *testing.T) {
	est := &fakeEstimator{}
	r := NewResolver(est, nil, nil)
	res := r.Resolve(context.Background(), "pasta", fullInput())
	if est.calls != 0 {
		t.Fatal("estimator should not be called")
	}
	want := models.Macros{Calories: 500, Protein: 30, Carbs: 50, Fat: 20, Fiber: 5, Sugar: 10, Sodium: 400}
	if res.Source != models.SourceManual || res.Macros != want || res.Note != "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestResolvePartialUsesAIWithOverrides(t *testing.T) {
	est := &fakeEstimator{est: &Estimate{Macros: models.Macros{Calories: 300, Protein: 10, Fat: -4}}}
	r := NewResolver(est, nil, nil)
	res := r.Resolve(context.Background(), "toast", models.MacroInput{Calories: ptr(250)})
	if est.calls != 1 || res.Source != models.SourceAI {
		t.Fatalf("result = %+v", res)
	}
	if res.Macros.Calories != 250 || res.Macros.Protein != 10 || res.Macros.Fat != 0 {
		t.Fatalf("macros = %+v", res.Macros)
	}
}

func TestResolveFailureStoresZerosWithNote(t *testing.T) {
	est := &fakeEstimator{est: &Estimate{Raw: "garbage"}, err: errors.New("no JSON object in completion")}
	rec := &fakeRecorder{}
	r := NewResolver(est, rec, nil)
	res := r.Resolve(context.Background(), "mystery", models.MacroInput{})
	if res.Macros != (models.Macros{}) || res.Note == "" || res.Source != models.SourceAI {
		t.Fatalf("result = %+v", res)
	}

	r.Record(context.Background(), 1, 9, "mystery", res)
	if len(rec.recs) != 1 || rec.recs[0].Error == "" || rec.recs[0].MealID != 9 || rec.recs[0].Raw != "garbage" {
		t.Fatalf("recorded = %+v", rec.recs)
	}
}

func TestResolveTimeoutNote(t *testing.T) {
	r := NewResolver(&fakeEstimator{err: context.DeadlineExceeded}, nil, nil)
	res := r.Estimate(context.Background(), "x")
	if res.Note != "nutrition estimate failed: AI service timed out" {
		t.Fatalf("note = %q", res.Note)
	}
}

func TestRecordSkipsManualAndDisabled(t *testing.T) {
	rec := &fakeRecorder{}
	r := NewResolver(&fakeEstimator{err: ErrDisabled}, rec, nil)
	r.Record(context.Background(), 1, 1, "x", r.Resolve(context.Background(), "x", fullInput()))
	r.Record(context.Background(), 1, 1, "x", r.Estimate(context.Background(), "x"))
	if len(rec.recs) != 0 {
		t.Fatalf("recorded %d entries", len(rec.recs))
	}
}
