package report

import "errors"

var (
	// ErrUnsupportedView is returned for a view View cannot assemble.
	ErrUnsupportedView = errors.New("unsupported view")
	// ErrNotConfigured indicates a view has no configuration for the company.
	ErrNotConfigured = errors.New("view not configured")
	// ErrDataUnavailable indicates the backing worksheet could not be read.
	ErrDataUnavailable = errors.New("data unavailable")
)
