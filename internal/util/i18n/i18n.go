// Package i18n is a placeholder seam for message translation. Every user
// facing string flows through T so a real message catalog can be dropped
// in later without touching the call sites.
package i18n

// T translates a message key to a string. The key identifies the message;
// the second parameter is returned while no catalog is wired in.
func T(_ string, defaultValue string) string {
	return defaultValue
}
