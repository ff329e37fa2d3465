package utils

import "strings"

// MaskTail replaces every rune of s except the last keep with '*'.
// Strings no longer than keep are fully masked.
//
//	utils.MaskTail("+911234567", 4) // "******4567"
func MaskTail(s string, keep int) string {
	r := []rune(s)
	if keep < 0 {
		keep = 0
	}
	if len(r) <= keep {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-keep) + string(r[len(r)-keep:])
}

// MaskEmail keeps the first rune of the local part and the domain.
//
//	utils.MaskEmail("john@example.com") // "j***@example.com"
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return MaskTail(email, 0)
	}
	local := []rune(email[:at])
	return string(local[0]) + strings.Repeat("*", len(local)-1) + email[at:]
}
