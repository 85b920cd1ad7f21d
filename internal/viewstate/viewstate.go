// Package viewstate models the navigable UI state of the console as an
// explicit struct with a pure patch reducer, so that back/forward
// navigation and shareable links reproduce the exact view.
package viewstate

import (
	"net/url"
	"strconv"
)

// Wire names of the navigable URL parameters.
const (
	ParamService  = "service"
	ParamRecordID = "recordId"
	ParamKind     = "kind"
	ParamQuery    = "q"
	ParamOffset   = "offset"
	ParamCursor   = "cursor"
)

// ProSource links spell the filter parameters differently. They are
// accepted on read when the canonical key is absent; writes always use
// the canonical names.
const (
	ParamKindAlias  = "asset"
	ParamQueryAlias = "sql"
)

// State is the complete navigable view state. Offset and Cursor are
// mutually exclusive continuation strategies: the cursor is honored
// only when Offset > 0 and the server previously returned one,
// otherwise paging falls back to the numeric offset.
type State struct {
	ActiveService string
	RecordID      string
	FilterKey     string
	FilterText    string
	Offset        int
	Cursor        string
}

// Patch is a set of parameter mutations. A nil value removes the key,
// any other value replaces it. Keys absent from the patch are
// preserved unchanged.
type Patch map[string]*string

func set(v string) *string { return &v }

// Apply merges patch into state and returns the result. It is a pure
// function; the input state is not modified.
func Apply(state State, patch Patch) State {
	values := state.Values()
	for key, value := range patch {
		if value == nil {
			values.Del(key)
		} else {
			values.Set(key, *value)
		}
	}
	return FromValues(values)
}

// Values encodes the state as URL query parameters. Zero values are
// omitted so shared links stay minimal.
func (s State) Values() url.Values {
	values := url.Values{}
	if s.ActiveService != "" {
		values.Set(ParamService, s.ActiveService)
	}
	if s.RecordID != "" {
		values.Set(ParamRecordID, s.RecordID)
	}
	if s.FilterKey != "" {
		values.Set(ParamKind, s.FilterKey)
	}
	if s.FilterText != "" {
		values.Set(ParamQuery, s.FilterText)
	}
	if s.Offset > 0 {
		values.Set(ParamOffset, strconv.Itoa(s.Offset))
	}
	if s.Cursor != "" {
		values.Set(ParamCursor, s.Cursor)
	}
	return values
}

// FromValues decodes a state from URL query parameters. A malformed or
// negative offset decodes as zero.
func FromValues(values url.Values) State {
	offset := 0
	if raw := values.Get(ParamOffset); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}
	filterKey := values.Get(ParamKind)
	if filterKey == "" {
		filterKey = values.Get(ParamKindAlias)
	}
	filterText := values.Get(ParamQuery)
	if filterText == "" {
		filterText = values.Get(ParamQueryAlias)
	}
	state := State{
		ActiveService: values.Get(ParamService),
		RecordID:      values.Get(ParamRecordID),
		FilterKey:     filterKey,
		FilterText:    filterText,
		Offset:        offset,
		Cursor:        values.Get(ParamCursor),
	}
	if state.Offset == 0 {
		// A cursor without an offset is a stale continuation token.
		state.Cursor = ""
	}
	return state
}

// SelectFilterKey selects a new structural filter key. Pagination is
// reset, any selected record is cleared, and the free-text filter is
// cleared as well: a stale text filter combined with a new key
// produced confusing result sets in practice.
func SelectFilterKey(state State, key string) State {
	return Apply(state, Patch{
		ParamKind:     set(key),
		ParamQuery:    nil,
		ParamOffset:   nil,
		ParamCursor:   nil,
		ParamRecordID: nil,
	})
}

// SetFilterText replaces the free-text filter and resets pagination,
// keeping the structural filter key.
func SetFilterText(state State, text string) State {
	patch := Patch{
		ParamQuery:  set(text),
		ParamOffset: nil,
		ParamCursor: nil,
	}
	if text == "" {
		patch[ParamQuery] = nil
	}
	return Apply(state, patch)
}

// SelectRecord marks a record as selected for inspection.
func SelectRecord(state State, recordID string) State {
	return Apply(state, Patch{ParamRecordID: set(recordID)})
}

// ClearRecord drops the record selection, e.g. after a fetch failure
// so the view does not get stuck on an uninspectable record.
func ClearRecord(state State) State {
	return Apply(state, Patch{ParamRecordID: nil})
}

// NextPage advances pagination by limit. When the server returned a
// continuation cursor it is carried along and takes precedence over
// the offset on the next fetch.
func NextPage(state State, limit int, cursor string) State {
	patch := Patch{
		ParamOffset: set(strconv.Itoa(state.Offset + limit)),
	}
	if cursor != "" {
		patch[ParamCursor] = set(cursor)
	} else {
		patch[ParamCursor] = nil
	}
	return Apply(state, patch)
}

// PrevPage steps pagination back by limit, never below zero. Cursors
// are forward-only, so stepping back always clears the cursor.
func PrevPage(state State, limit int) State {
	offset := state.Offset - limit
	patch := Patch{ParamCursor: nil}
	if offset > 0 {
		patch[ParamOffset] = set(strconv.Itoa(offset))
	} else {
		patch[ParamOffset] = nil
	}
	return Apply(state, patch)
}

// CanNextPage reports whether a next page may exist. A short final
// page (currentCount < limit) disables forward paging.
func CanNextPage(currentCount, limit int) bool {
	return limit > 0 && currentCount >= limit
}

// CanPrevPage reports whether stepping back is possible.
func (s State) CanPrevPage() bool {
	return s.Offset > 0
}

// UseCursor reports whether the next fetch should continue via the
// cursor instead of the numeric offset.
func (s State) UseCursor() bool {
	return s.Cursor != "" && s.Offset > 0
}
