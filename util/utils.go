// Package util holds small helpers shared by the rest of the module.
package util

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// PrefixHex adds the '0x' prefix to a hex string if it is missing.
func PrefixHex(s string) string {
	return "0x" + TrimHex(s)
}
