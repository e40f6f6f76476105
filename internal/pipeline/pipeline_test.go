package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nao1215/mdcrawl/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	final     bool
	doFunc    func(ctx context.Context, session *model.Session) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, session *model.Session) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, session)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// Final implements Finalizer.
func (m *mockStep) Final() bool {
	return m.final
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	if p.StepCount() != 3 {
		t.Fatalf("expected 3 steps, got %d", p.StepCount())
	}

	expected := []string{"first", "second", "third"}
	for i, name := range p.StepNames() {
		if name != expected[i] {
			t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
		}
	}
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) func(context.Context, *model.Session) error {
			return func(context.Context, *model.Session) error {
				order = append(order, name)
				return nil
			}
		}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(
			&mockStep{name: "step-1", doFunc: record("step-1")},
			&mockStep{name: "step-2", doFunc: record("step-2")},
		)

		if err := p.Execute(context.Background(), model.NewSession("http://example.com/", 1, 1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 2 || order[0] != "step-1" || order[1] != "step-2" {
			t.Errorf("wrong execution order: %v", order)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		next := &mockStep{name: "should-not-run"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(
			&mockStep{name: "failing", doFunc: func(context.Context, *model.Session) error { return expectedErr }},
			next,
		)

		session := model.NewSession("http://example.com/", 1, 1)
		err := p.Execute(context.Background(), session)
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected %v, got %v", expectedErr, err)
		}
		if !errors.Is(session.Err, expectedErr) {
			t.Errorf("expected error recorded in session, got %v", session.Err)
		}
		if next.callCount != 0 {
			t.Error("second step should not have been called")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		next := &mockStep{name: "should-run"}

		p := New(WithContinueOnError(true), WithLogger(quietLogger()))
		p.AddSteps(
			&mockStep{name: "failing", doFunc: func(context.Context, *model.Session) error { return expectedErr }},
			next,
		)

		err := p.Execute(context.Background(), model.NewSession("http://example.com/", 1, 1))
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected first error to be returned, got %v", err)
		}
		if next.callCount != 1 {
			t.Error("second step should have been called")
		}
	})

	t.Run("runs only final steps after cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		crawl := &mockStep{name: "crawl", doFunc: func(context.Context, *model.Session) error {
			cancel()
			return nil
		}}
		skipped := &mockStep{name: "skipped"}
		write := &mockStep{name: "write", final: true}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(crawl, skipped, write)

		session := model.NewSession("http://example.com/", 1, 1)
		err := p.Execute(ctx, session)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if skipped.callCount != 0 {
			t.Error("non-final step should be skipped after cancellation")
		}
		if write.callCount != 1 {
			t.Error("final step should run after cancellation")
		}
		if !session.Cancelled {
			t.Error("expected session to be marked cancelled")
		}
	})

	t.Run("cancelled crawl is reported by the session", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		p := New(WithLogger(quietLogger()))
		p.AddStep(&mockStep{name: "crawl", doFunc: func(_ context.Context, s *model.Session) error {
			s.Cancelled = true
			cancel()
			return nil
		}})

		if err := p.Execute(ctx, model.NewSession("http://example.com/", 1, 1)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
