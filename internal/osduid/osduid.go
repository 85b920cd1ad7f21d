// Package osduid reconciles the identifier formats returned by search
// with those expected by single-record endpoints, which reject the
// trailing version stamp that search results carry.
package osduid

import (
	"regexp"
	"strconv"
)

// Digit-run thresholds for the version-stamp heuristic. OSDU version
// stamps are millisecond timestamps (10+ digits); the shorter fallback
// catches truncated stamps seen in older partitions. The backend does
// not publish a formal id grammar, so both are explicit and overridable
// via NormalizeWith.
const (
	MinVersionDigits  = 10
	MinFallbackDigits = 4
)

var (
	versionSuffix  = regexp.MustCompile(`:\d{10,}$`)
	fallbackSuffix = regexp.MustCompile(`:\d{4,9}$`)
)

// Normalize strips a trailing ":"-separated version stamp from rawID:
// a 10+ digit run always, a 4-9 digit run as fallback. Identifiers
// without such a suffix are returned unchanged. Apply before
// single-record fetch/update/delete calls, never before list or search
// calls, which key rows by the full versioned id.
func Normalize(rawID string) string {
	if stripped := versionSuffix.ReplaceAllString(rawID, ""); stripped != rawID {
		return stripped
	}
	return fallbackSuffix.ReplaceAllString(rawID, "")
}

// NormalizeWith is Normalize with explicit digit thresholds, for
// backends whose id format deviates from the defaults.
func NormalizeWith(rawID string, minVersionDigits, minFallbackDigits int) string {
	if minVersionDigits <= 0 || minFallbackDigits <= 0 || minFallbackDigits >= minVersionDigits {
		return rawID
	}
	version := regexp.MustCompile(`:\d{` + strconv.Itoa(minVersionDigits) + `,}$`)
	if stripped := version.ReplaceAllString(rawID, ""); stripped != rawID {
		return stripped
	}
	fallback := regexp.MustCompile(`:\d{` + strconv.Itoa(minFallbackDigits) + `,` + strconv.Itoa(minVersionDigits-1) + `}$`)
	return fallback.ReplaceAllString(rawID, "")
}
