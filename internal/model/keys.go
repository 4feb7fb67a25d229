package model

import "strings"

// normalizeKey lowercases and collapses whitespace so logical-identity keys
// survive formatting differences between documents
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// lastN returns the last n characters of s (account numbers are frequently
// masked, so only the tail is comparable across documents)
func lastN(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
