package health

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	maxThrownDepth = 20
	maxThrownStack = 20
)

// Thrown is a flattened, bounded view of an error chain for reports.
type Thrown struct {
	Type    string   `json:"exception"`
	Message string   `json:"message"`
	Stack   []string `json:"stack,omitempty"`
	Cause   *Thrown  `json:"thrown,omitempty"`
}

// stackCarrier is implemented by errors that captured a stack trace.
type stackCarrier interface {
	StackLines() []string
}

// NewThrown flattens err and its wrapped causes. It returns nil for a nil error.
func NewThrown(err error) *Thrown {
	return newThrown(err, 0)
}

func newThrown(err error, depth int) *Thrown {
	if err == nil {
		return nil
	}

	t := &Thrown{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}
	var sc stackCarrier
	if errors.As(err, &sc) && depth == 0 {
		t.Stack = sc.StackLines()
		if len(t.Stack) > maxThrownStack {
			t.Stack = t.Stack[:maxThrownStack]
		}
	}

	if depth < maxThrownDepth {
		t.Cause = newThrown(unwrapFirst(err), depth+1)
	}
	return t
}

func unwrapFirst(err error) error {
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case interface{ Unwrap() []error }:
		if errs := u.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}

// Depth returns the number of levels in the chain.
func (t *Thrown) Depth() int {
	n := 0
	for c := t; c != nil; c = c.Cause {
		n++
	}
	return n
}

// panicError records a recovered panic together with the goroutine stack.
type panicError struct {
	value any
	stack []string
}

func newPanicError(value any) *panicError {
	return &panicError{
		value: value,
		stack: strings.Split(strings.TrimSpace(string(debug.Stack())), "\n"),
	}
}

func (p *panicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCheckPanic, p.value)
}

func (p *panicError) Unwrap() error {
	if err, ok := p.value.(error); ok {
		return err
	}
	return ErrCheckPanic
}

func (p *panicError) Is(target error) bool {
	return target == ErrCheckPanic
}

func (p *panicError) StackLines() []string {
	return p.stack
}
