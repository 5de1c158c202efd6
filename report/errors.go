package report

import "errors"

// ErrMissingSource indicates a Handler configured without a Source.
var ErrMissingSource = errors.New("report: source is required")
