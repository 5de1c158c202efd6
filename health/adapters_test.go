package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestNewFuncDependency(t *testing.T) {
	if _, err := NewFuncDependency(testDescriptor("db"), nil); !errors.Is(err, ErrNoCheckFunc) {
		t.Errorf("nil check error = %v, want ErrNoCheckFunc", err)
	}
	if _, err := NewFuncDependency(Descriptor{}, func(context.Context) (CheckStatus, string, error) {
		return StatusOK, "", nil
	}); !errors.Is(err, ErrMissingID) {
		t.Errorf("missing id error = %v, want ErrMissingID", err)
	}

	desc := testDescriptor("disk")
	desc.Type = ""
	dep, err := NewFuncDependency(desc, func(context.Context) (CheckStatus, string, error) {
		return StatusMinor, "80% full", nil
	})
	if err != nil {
		t.Fatalf("NewFuncDependency() error = %v", err)
	}
	if dep.Descriptor().Type != TypeOther {
		t.Errorf("Type = %q, want %q", dep.Descriptor().Type, TypeOther)
	}

	r, err := dep.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.Status() != StatusMinor || r.ErrorMessage() != "80% full" {
		t.Errorf("Evaluate() = %v %q, want MINOR 80%% full", r.Status(), r.ErrorMessage())
	}
	if r.Timestamp().IsZero() {
		t.Error("Timestamp() should be set")
	}
}

func TestNewPingDependency(t *testing.T) {
	var fail atomic.Bool
	boom := errors.New("no route to host")
	dep, err := NewPingDependency(testDescriptor("api"), func(context.Context) error {
		if fail.Load() {
			return boom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("NewPingDependency() error = %v", err)
	}

	r, _ := dep.Evaluate(context.Background())
	if r.Status() != StatusOK {
		t.Errorf("Status() = %v, want OK", r.Status())
	}

	fail.Store(true)
	r, _ = dep.Evaluate(context.Background())
	if r.Status() != StatusOutage || !errors.Is(r.Err(), boom) {
		t.Errorf("Evaluate() = %v (%v), want OUTAGE with %v", r.Status(), r.Err(), boom)
	}
	if r.ErrorMessage() != boom.Error() {
		t.Errorf("ErrorMessage() = %q, want %q", r.ErrorMessage(), boom.Error())
	}

	if _, err := NewPingDependency(testDescriptor("api"), nil); !errors.Is(err, ErrNoCheckFunc) {
		t.Errorf("nil ping error = %v, want ErrNoCheckFunc", err)
	}
}

func TestNewPingDependency_Toggle(t *testing.T) {
	var enabled atomic.Bool
	var calls atomic.Int32
	dep, _ := NewPingDependency(testDescriptor("api"), func(context.Context) error {
		calls.Add(1)
		return errors.New("down")
	}, WithToggle(&enabled))

	r, _ := dep.Evaluate(context.Background())
	if r.Status() != StatusOK || calls.Load() != 0 {
		t.Errorf("disabled Evaluate() = %v after %d calls, want OK without calling", r.Status(), calls.Load())
	}

	enabled.Store(true)
	r, _ = dep.Evaluate(context.Background())
	if r.Status() != StatusOutage || calls.Load() != 1 {
		t.Errorf("enabled Evaluate() = %v after %d calls, want OUTAGE after 1", r.Status(), calls.Load())
	}
}

func TestThresholds_Grade(t *testing.T) {
	th := Thresholds[float64]{OK: 0.5, Minor: 0.8, Major: 0.95}

	tests := []struct {
		value float64
		want  CheckStatus
	}{
		{0.1, StatusOK},
		{0.5, StatusOK},
		{0.6, StatusMinor},
		{0.8, StatusMinor},
		{0.9, StatusMajor},
		{0.99, StatusOutage},
	}
	for _, tt := range tests {
		if got := th.Grade(tt.value); got != tt.want {
			t.Errorf("Grade(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestNewThresholdDependency(t *testing.T) {
	measure := func(v int) func(context.Context) (int, error) {
		return func(context.Context) (int, error) { return v, nil }
	}

	if _, err := NewThresholdDependency(testDescriptor("q"), Thresholds[int]{OK: 10, Minor: 5, Major: 20}, measure(1)); !errors.Is(err, ErrInvalidThresholds) {
		t.Errorf("unordered thresholds error = %v, want ErrInvalidThresholds", err)
	}
	if _, err := NewThresholdDependency[int](testDescriptor("q"), Thresholds[int]{}, nil); !errors.Is(err, ErrNoCheckFunc) {
		t.Errorf("nil measure error = %v, want ErrNoCheckFunc", err)
	}

	th := Thresholds[int]{OK: 100, Minor: 500, Major: 1000}
	dep, err := NewThresholdDependency(testDescriptor("queue-depth"), th, measure(700))
	if err != nil {
		t.Fatalf("NewThresholdDependency() error = %v", err)
	}
	r, _ := dep.Evaluate(context.Background())
	if r.Status() != StatusMajor {
		t.Errorf("Status() = %v, want MAJOR", r.Status())
	}
	if r.ErrorMessage() != "700 exceeds 100" {
		t.Errorf("ErrorMessage() = %q", r.ErrorMessage())
	}

	failing, _ := NewThresholdDependency(testDescriptor("queue-depth"), th, func(context.Context) (int, error) {
		return 0, errors.New("broker unavailable")
	})
	if r, _ := failing.Evaluate(context.Background()); r.Status() != StatusOutage {
		t.Errorf("measurement error Status() = %v, want OUTAGE", r.Status())
	}
}
