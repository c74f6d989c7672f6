package models

import "strings"

// DeriveInviteCode maps a room identifier to its short shareable code.
// The code is a pure function of the identifier: separators stripped,
// uppercased, last 8 characters (or the whole string if shorter), so every
// caller recomputes the exact same code without coordination.
func DeriveInviteCode(roomID string) string {
	normalized := strings.ToUpper(strings.ReplaceAll(roomID, "-", ""))
	if len(normalized) <= 8 {
		return normalized
	}
	return normalized[len(normalized)-8:]
}

// NormalizeInviteCode canonicalizes a user-supplied code for lookup.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
