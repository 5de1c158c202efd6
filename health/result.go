package health

import (
	"fmt"
	"time"
)

// CheckResult is the immutable outcome of one dependency evaluation.
//
// A result copies the dependency's descriptor fields at evaluation time so it
// remains self-describing after the dependency leaves the registry.
type CheckResult struct {
	id               string
	description      string
	documentationURL string
	urgency          Urgency
	depType          DependencyType
	servicePool      string

	status        CheckStatus
	errorMessage  string
	err           error
	thrown        *Thrown
	timestamp     time.Time
	duration      time.Duration
	lastKnownGood time.Time
	period        time.Duration
}

// Accessors for the captured descriptor fields and outcome.
func (r *CheckResult) ID() string { return r.id }
func (r *CheckResult) Description() string { return r.description }
func (r *CheckResult) DocumentationURL() string { return r.documentationURL }
func (r *CheckResult) Urgency() Urgency { return r.urgency }
func (r *CheckResult) Type() DependencyType { return r.depType }
func (r *CheckResult) ServicePool() string { return r.servicePool }
func (r *CheckResult) Status() CheckStatus { return r.status }
func (r *CheckResult) ErrorMessage() string { return r.errorMessage }
func (r *CheckResult) Timestamp() time.Time { return r.timestamp }
func (r *CheckResult) Duration() time.Duration { return r.duration }
func (r *CheckResult) LastKnownGood() time.Time { return r.lastKnownGood }
func (r *CheckResult) Period() time.Duration { return r.period }
func (r *CheckResult) Thrown() *Thrown { return r.thrown }

// Err returns the failure captured by the result, if any. It supports errors.Is
// against the sentinel errors of this package.
func (r *CheckResult) Err() error { return r.err }

// Descriptor reconstructs the descriptor fields captured by the result.
func (r *CheckResult) Descriptor() Descriptor {
	return Descriptor{
		ID:               r.id,
		Description:      r.description,
		DocumentationURL: r.documentationURL,
		Urgency:          r.urgency,
		Type:             r.depType,
		ServicePool:      r.servicePool,
		PingPeriod:       r.period,
	}
}

func (r *CheckResult) String() string {
	return fmt.Sprintf("{id:%s status:%s}", r.id, r.status)
}

// ResultBuilder assembles a CheckResult. A builder is not safe for concurrent use.
type ResultBuilder struct {
	r CheckResult
}

// NewResult starts a result for the dependency described by desc.
func NewResult(desc Descriptor, status CheckStatus, message string) *ResultBuilder {
	b := &ResultBuilder{}
	b.r.status = status
	b.r.errorMessage = message
	return b.WithDescriptor(desc)
}

// ResultFrom starts a result for desc that copies the outcome fields of src.
func ResultFrom(desc Descriptor, src *CheckResult) *ResultBuilder {
	b := NewResult(desc, src.status, src.errorMessage)
	b.r.err = src.err
	b.r.thrown = src.thrown
	b.r.timestamp = src.timestamp
	b.r.duration = src.duration
	b.r.lastKnownGood = src.lastKnownGood
	b.r.period = src.period
	return b
}

// WithDescriptor replaces the descriptor fields copied into the result.
func (b *ResultBuilder) WithDescriptor(desc Descriptor) *ResultBuilder {
	b.r.id = desc.ID
	b.r.description = desc.Description
	b.r.documentationURL = desc.DocumentationURL
	b.r.urgency = desc.Urgency
	b.r.depType = desc.Type
	b.r.servicePool = desc.ServicePool
	return b
}

// WithStatus sets the status.
func (b *ResultBuilder) WithStatus(status CheckStatus) *ResultBuilder {
	b.r.status = status
	return b
}

// WithMessage sets the human error message.
func (b *ResultBuilder) WithMessage(message string) *ResultBuilder {
	b.r.errorMessage = message
	return b
}

// WithTimestamp sets when the evaluation started.
func (b *ResultBuilder) WithTimestamp(ts time.Time) *ResultBuilder {
	b.r.timestamp = ts
	return b
}

// WithDuration sets how long the evaluation took. Negative values are clamped to zero.
func (b *ResultBuilder) WithDuration(d time.Duration) *ResultBuilder {
	b.r.duration = max(d, 0)
	return b
}

// WithLastKnownGood sets when the dependency last evaluated OK.
func (b *ResultBuilder) WithLastKnownGood(ts time.Time) *ResultBuilder {
	b.r.lastKnownGood = ts
	return b
}

// WithPeriod sets the sampling period the result was produced under.
func (b *ResultBuilder) WithPeriod(p time.Duration) *ResultBuilder {
	b.r.period = max(p, 0)
	return b
}

// WithErr captures a failure. A nil err clears any captured failure.
func (b *ResultBuilder) WithErr(err error) *ResultBuilder {
	b.r.err = err
	b.r.thrown = NewThrown(err)
	return b
}

// Build returns the finished result. The builder may be reused afterwards.
func (b *ResultBuilder) Build() *CheckResult {
	r := b.r
	return &r
}
