// Package window slices one conversation's messages into bounded, ordered
// pages and records reads for the viewing participant.
package window

import (
	"net/url"
	"strconv"
)

// Cursor kinds.
const (
	CursorNone   = "none"
	CursorBefore = "before"
	CursorAfter  = "after"
	CursorJump   = "jump"
)

// Cursor positions a message window within a conversation. Ref is the
// conversation-relative message reference the cursor is anchored on.
type Cursor struct {
	Kind string
	Ref  uint
}

// ParseCursor decodes a cursor from raw query parameters. Malformed values
// degrade to no cursor. When both are present, before wins over after.
func ParseCursor(values url.Values) Cursor {
	if ref, ok := parseRef(values.Get("before")); ok {
		return Cursor{Kind: CursorBefore, Ref: ref}
	}
	if ref, ok := parseRef(values.Get("after")); ok {
		return Cursor{Kind: CursorAfter, Ref: ref}
	}
	if ref, ok := parseRef(values.Get("around")); ok {
		return Cursor{Kind: CursorJump, Ref: ref}
	}
	return Cursor{Kind: CursorNone}
}

func parseRef(s string) (uint, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
