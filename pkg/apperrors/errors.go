package apperrors

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrValidation            = errors.New("validation failed")
	ErrNoDatasourceSelected  = errors.New("no datasource selected")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrTransport             = errors.New("transport failure")
	ErrMalformedResponse     = errors.New("malformed response")
	ErrUnsupportedFilterKind = errors.New("unsupported filter kind")

	// ErrNoResults is a terminal state rather than a failure: the query
	// succeeded but returned zero records, so there is nothing to export.
	ErrNoResults = errors.New("query returned no results")
)
