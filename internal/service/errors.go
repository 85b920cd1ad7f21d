package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	ErrUpstream = errors.New("upstream call failed")
)

// maxErrorDetail caps the length of upstream error messages surfaced
// to the user; proxies occasionally echo whole stack traces.
const maxErrorDetail = 300

// UpstreamError carries the structured detail extracted from a failed
// metadata RPC response.
type UpstreamError struct {
	Method     string
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: upstream returned status %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Detail)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// truncateDetail trims a surfaced message to maxErrorDetail runes.
func truncateDetail(detail string) string {
	runes := []rune(detail)
	if len(runes) <= maxErrorDetail {
		return detail
	}
	return string(runes[:maxErrorDetail]) + "..."
}
