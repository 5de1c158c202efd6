package health

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func testDescriptor(id string) Descriptor {
	return Descriptor{
		ID:               id,
		Description:      "test dependency " + id,
		DocumentationURL: "https://runbooks.example.com/" + id,
		Timeout:          time.Second,
		PingPeriod:       5 * time.Second,
		Urgency:          UrgencyRequired,
		Type:             TypeOtherService,
		ServicePool:      "pool-a",
	}
}

func TestResultBuilder_RoundTrip(t *testing.T) {
	desc := testDescriptor("db")
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	lkg := ts.Add(-time.Minute)
	cause := errors.New("connection refused")

	r := NewResult(desc, StatusMajor, "slow").
		WithTimestamp(ts).
		WithDuration(250 * time.Millisecond).
		WithLastKnownGood(lkg).
		WithPeriod(desc.PingPeriod).
		WithErr(cause).
		Build()

	copied := ResultFrom(r.Descriptor(), r).Build()

	checks := []struct {
		name      string
		got, want any
	}{
		{"ID", copied.ID(), "db"},
		{"Description", copied.Description(), desc.Description},
		{"DocumentationURL", copied.DocumentationURL(), desc.DocumentationURL},
		{"Urgency", copied.Urgency(), UrgencyRequired},
		{"Type", copied.Type(), TypeOtherService},
		{"ServicePool", copied.ServicePool(), "pool-a"},
		{"Status", copied.Status(), StatusMajor},
		{"ErrorMessage", copied.ErrorMessage(), "slow"},
		{"Timestamp", copied.Timestamp(), ts},
		{"Duration", copied.Duration(), 250 * time.Millisecond},
		{"LastKnownGood", copied.LastKnownGood(), lkg},
		{"Period", copied.Period(), 5 * time.Second},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if !errors.Is(copied.Err(), cause) {
		t.Errorf("Err() = %v, want %v", copied.Err(), cause)
	}
	if copied.Thrown() == nil || copied.Thrown().Message != cause.Error() {
		t.Errorf("Thrown() = %+v, want message %q", copied.Thrown(), cause.Error())
	}
}

func TestResultBuilder_BuildCopies(t *testing.T) {
	b := NewResult(testDescriptor("db"), StatusOK, "")
	first := b.Build()
	second := b.WithStatus(StatusOutage).Build()

	if first.Status() != StatusOK {
		t.Errorf("first.Status() = %v, want OK", first.Status())
	}
	if second.Status() != StatusOutage {
		t.Errorf("second.Status() = %v, want OUTAGE", second.Status())
	}
}

func TestResultBuilder_ClampsNegative(t *testing.T) {
	r := NewResult(testDescriptor("db"), StatusOK, "").
		WithDuration(-time.Second).
		WithPeriod(-time.Second).
		Build()

	if r.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", r.Duration())
	}
	if r.Period() != 0 {
		t.Errorf("Period() = %v, want 0", r.Period())
	}
}

func TestResultBuilder_WithErrNilClears(t *testing.T) {
	r := NewResult(testDescriptor("db"), StatusOK, "").
		WithErr(errors.New("boom")).
		WithErr(nil).
		Build()

	if r.Err() != nil || r.Thrown() != nil {
		t.Errorf("Err() = %v, Thrown() = %v, want nil", r.Err(), r.Thrown())
	}
}

func TestCheckResult_String(t *testing.T) {
	r := NewResult(testDescriptor("cache"), StatusMinor, "").Build()
	if got := r.String(); got != "{id:cache status:MINOR}" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewThrown(t *testing.T) {
	root := errors.New("dial tcp: refused")
	err := fmt.Errorf("ping orders-db: %w", root)

	th := NewThrown(err)
	if th == nil {
		t.Fatal("NewThrown() = nil")
	}
	if th.Message != err.Error() {
		t.Errorf("Message = %q, want %q", th.Message, err.Error())
	}
	if th.Cause == nil || th.Cause.Message != root.Error() {
		t.Errorf("Cause = %+v, want message %q", th.Cause, root.Error())
	}
	if th.Depth() != 2 {
		t.Errorf("Depth() = %d, want 2", th.Depth())
	}
	if NewThrown(nil) != nil {
		t.Error("NewThrown(nil) should be nil")
	}
}

func TestNewThrown_BoundsDepth(t *testing.T) {
	err := errors.New("root")
	for i := range 50 {
		err = fmt.Errorf("layer %d: %w", i, err)
	}

	if got := NewThrown(err).Depth(); got != maxThrownDepth+1 {
		t.Errorf("Depth() = %d, want %d", got, maxThrownDepth+1)
	}
}

func TestNewThrown_PanicStack(t *testing.T) {
	th := NewThrown(newPanicError("kaboom"))

	if !strings.Contains(th.Message, "kaboom") {
		t.Errorf("Message = %q, want it to mention the panic value", th.Message)
	}
	if len(th.Stack) == 0 || len(th.Stack) > maxThrownStack {
		t.Errorf("len(Stack) = %d, want 1..%d", len(th.Stack), maxThrownStack)
	}
	if !errors.Is(newPanicError("x"), ErrCheckPanic) {
		t.Error("panic error should match ErrCheckPanic")
	}
}
