// Package listing builds the ranked, filtered, paginated conversation list.
package listing

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hollisk/lectern/internal/models"
)

// DefaultPageSize is the listing page size when the request names none.
const DefaultPageSize = 20

// MaxPageSize caps the per-request page size.
const MaxPageSize = 100

// Filters is the decoded, in-memory filter set for one listing request.
// A nil pointer or empty slice means "no filter applied" for that dimension.
type Filters struct {
	Search    string
	Unread    *bool // true: unread only; false: fully-read only
	Types     []string
	Resolved  *bool // question conversations only
	Pinned    *bool
	StaffOnly *bool
	TagRefs   []string
}

// ParseFilters decodes raw query parameters into a filter set. Malformed or
// unrecognized values drop their own dimension and never fail the request.
func ParseFilters(values url.Values) Filters {
	f := Filters{
		Search:    strings.TrimSpace(values.Get("search")),
		Unread:    parseBool(values.Get("unread")),
		Resolved:  parseBool(values.Get("resolved")),
		Pinned:    parseBool(values.Get("pinned")),
		StaffOnly: parseBool(values.Get("staff_only")),
	}
	for _, t := range values["type"] {
		if models.ValidType(t) {
			f.Types = append(f.Types, t)
		}
	}
	for _, ref := range values["tag"] {
		if ref = strings.TrimSpace(ref); ref != "" {
			f.TagRefs = append(f.TagRefs, ref)
		}
	}
	if quick := values.Get("quick"); quick != "" {
		f = expandQuickFilter(quick, f)
	}
	return f
}

// ParsePage decodes a page number, degrading invalid input to page 1.
func ParsePage(values url.Values) int {
	n, err := strconv.Atoi(values.Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParsePageSize decodes a page size, degrading invalid input to the default.
func ParsePageSize(values url.Values) int {
	n, err := strconv.Atoi(values.Get("page_size"))
	if err != nil || n < 1 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// parseBool returns nil for anything that isn't a recognizable boolean, so
// the dimension stays unfiltered.
func parseBool(s string) *bool {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}

func boolPtr(v bool) *bool { return &v }

// quickFilters are named preset bundles of primitive filter dimensions.
// They expand through the same composer path as hand-built filters.
var quickFilters = map[string]Filters{
	"unread":             {Unread: boolPtr(true)},
	"unread-questions":   {Unread: boolPtr(true), Types: []string{models.TypeQuestion}},
	"unresolved":         {Types: []string{models.TypeQuestion}, Resolved: boolPtr(false)},
	"pinned":             {Pinned: boolPtr(true)},
	"staff-only":         {StaffOnly: boolPtr(true)},
	"notes":              {Types: []string{models.TypeNote}},
	"chats":              {Types: []string{models.TypeChat}},
}

// expandQuickFilter overlays a preset onto f, filling only dimensions the
// request left unset. Unknown preset names are dropped like any other
// malformed value.
func expandQuickFilter(name string, f Filters) Filters {
	preset, ok := quickFilters[name]
	if !ok {
		return f
	}
	if f.Unread == nil {
		f.Unread = preset.Unread
	}
	if len(f.Types) == 0 {
		f.Types = preset.Types
	}
	if f.Resolved == nil {
		f.Resolved = preset.Resolved
	}
	if f.Pinned == nil {
		f.Pinned = preset.Pinned
	}
	if f.StaffOnly == nil {
		f.StaffOnly = preset.StaffOnly
	}
	return f
}
