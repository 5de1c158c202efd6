package health

import (
	"errors"
	"testing"
	"time"
)

func TestResultSet_InitTwiceFails(t *testing.T) {
	rs := NewResultSet(nil)
	desc := testDescriptor("db")

	if err := rs.Init(desc); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := rs.Execute(desc); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := rs.Init(desc); !errors.Is(err, ErrAlreadyExecuting) {
		t.Errorf("Init() while executing error = %v, want ErrAlreadyExecuting", err)
	}

	rs.Complete(NewResult(desc, StatusOK, "").Build())
	if err := rs.Init(desc); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("Init() after completion error = %v, want ErrAlreadyCompleted", err)
	}
}

func TestResultSet_ExecuteTwiceFails(t *testing.T) {
	rs := NewResultSet(nil)
	desc := testDescriptor("db")

	if err := rs.Execute(desc); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := rs.Execute(desc); !errors.Is(err, ErrAlreadyExecuting) {
		t.Errorf("Execute() error = %v, want ErrAlreadyExecuting", err)
	}
}

func TestResultSet_CompleteWithoutExecuteIsLogged(t *testing.T) {
	logger := &recordingLogger{}
	rs := NewResultSet(logger)
	desc := testDescriptor("db")

	rs.Complete(NewResult(desc, StatusOK, "").Build())

	if got := logger.count("error", "OK result completed for a check that never started executing"); got != 1 {
		t.Errorf("inconsistency logged %d times, want 1", got)
	}
	if _, ok := rs.Result("db"); !ok {
		t.Error("result should still be recorded")
	}
}

func TestResultSet_FirstResultWins(t *testing.T) {
	logger := &recordingLogger{}
	rs := NewResultSet(logger)
	desc := testDescriptor("db")

	_ = rs.Execute(desc)
	rs.Complete(NewResult(desc, StatusMinor, "first").Build())
	rs.Complete(NewResult(desc, StatusOutage, "second").Build())

	r, _ := rs.Result("db")
	if r.ErrorMessage() != "first" {
		t.Errorf("ErrorMessage() = %q, want first", r.ErrorMessage())
	}
	if got := logger.count("error", "attempted to record a second result"); got != 1 {
		t.Errorf("duplicate logged %d times, want 1", got)
	}
	if got := rs.Executing(); len(got) != 0 {
		t.Errorf("Executing() = %v, want empty", got)
	}
}

func TestResultSet_FinalizeSkipsDiscardedResult(t *testing.T) {
	logger := &recordingLogger{}
	rs := NewResultSet(logger)
	desc := testDescriptor("db")

	_ = rs.Init(desc)
	_ = rs.Execute(desc)
	first := NewResult(desc, StatusOK, "").Build()
	second := NewResult(desc, StatusOutage, "late").Build()
	rs.Complete(first)
	rs.Complete(second)
	rs.Finalize(first)
	rs.Finalize(second)

	if got := rs.SystemStatus(); got != StatusOK {
		t.Errorf("SystemStatus() = %v, want OK", got)
	}
	if got := logger.count("error", "ignoring finalization of a result that was not recorded"); got != 1 {
		t.Errorf("skipped finalization logged %d times, want 1", got)
	}
}

func TestResultSet_FinalizeFoldsThroughUrgency(t *testing.T) {
	rs := NewResultSet(nil)

	steps := []struct {
		urgency Urgency
		status  CheckStatus
		want    CheckStatus
	}{
		{UrgencyNone, StatusOutage, StatusOK},
		{UrgencyWeak, StatusOutage, StatusMinor},
		{UrgencyRequired, StatusOK, StatusMinor},
		{UrgencyStrong, StatusOutage, StatusMajor},
		{UrgencyWeak, StatusOK, StatusMajor},
	}
	for i, s := range steps {
		desc := testDescriptor(string(rune('a' + i)))
		desc.Urgency = s.urgency
		r := NewResult(desc, s.status, "").Build()

		_ = rs.Init(desc)
		_ = rs.Execute(desc)
		rs.Complete(r)
		rs.Finalize(r)

		if got := rs.SystemStatus(); got != s.want {
			t.Fatalf("step %d: SystemStatus() = %v, want %v", i, got, s.want)
		}
	}
}

func TestResultSet_FinalizeRestoresMissingRecord(t *testing.T) {
	logger := &recordingLogger{}
	rs := NewResultSet(logger)
	desc := testDescriptor("db")

	rs.Finalize(NewResult(desc, StatusOutage, "down").Build())

	if _, ok := rs.Result("db"); !ok {
		t.Error("Finalize() should restore the completion record")
	}
	if got := logger.count("warn", "restored missing completion record"); got != 1 {
		t.Errorf("restore logged %d times, want 1", got)
	}
	if rs.SystemStatus() != StatusOutage {
		t.Errorf("SystemStatus() = %v, want OUTAGE", rs.SystemStatus())
	}

	rs.Finalize(NewResult(testDescriptor("cache"), StatusOK, "").Build())
	if got := logger.count("error", "restored missing completion record with OK status"); got != 1 {
		t.Errorf("OK restore logged %d times, want 1", got)
	}
}

func TestResultSet_Snapshot(t *testing.T) {
	clock := newFakeClock()
	rs := newResultSet(nil, clock.Now)
	rs.SetAppName("orders")

	old := clock.Now().Add(-time.Minute)
	for _, id := range []string{"b", "a"} {
		desc := testDescriptor(id)
		_ = rs.Init(desc)
		_ = rs.Execute(desc)
		r := NewResult(desc, StatusOK, "").WithTimestamp(old).Build()
		rs.Complete(r)
		rs.Finalize(r)
	}
	_ = rs.Execute(testDescriptor("slow"))
	clock.Advance(2 * time.Second)

	s := rs.Snapshot()
	if s.AppName != "orders" {
		t.Errorf("AppName = %q, want orders", s.AppName)
	}
	if s.Duration != 2*time.Second {
		t.Errorf("Duration = %v, want 2s", s.Duration)
	}
	if len(s.Results) != 2 || s.Results[0].ID() != "a" || s.Results[1].ID() != "b" {
		t.Errorf("Results = %v, want [a b]", s.Results)
	}
	if len(s.Executing) != 1 || s.Executing[0] != "slow" {
		t.Errorf("Executing = %v, want [slow]", s.Executing)
	}
	if !s.LeastRecentlyExecuted.Equal(old) {
		t.Errorf("LeastRecentlyExecuted = %v, want %v", s.LeastRecentlyExecuted, old)
	}
	if s.DCStatus() != "OK" {
		t.Errorf("DCStatus() = %q, want OK", s.DCStatus())
	}

	if _, ok := s.Result("a"); !ok {
		t.Error("Result(a) not found")
	}
	if got := len(s.ByStatus()[StatusOK]); got != 2 {
		t.Errorf("ByStatus()[OK] has %d results, want 2", got)
	}
}

func TestResultSet_SnapshotWithoutTimestamps(t *testing.T) {
	clock := newFakeClock()
	rs := newResultSet(nil, clock.Now)

	if s := rs.Snapshot(); !s.LeastRecentlyExecuted.Equal(clock.Now()) {
		t.Errorf("LeastRecentlyExecuted = %v, want snapshot time", s.LeastRecentlyExecuted)
	}
}
