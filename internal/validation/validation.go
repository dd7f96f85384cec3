package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// KeyPattern defines the valid key format: exactly five digits, zero-padded.
var KeyPattern = regexp.MustCompile(`^[0-9]{5}$`)

// ValidateKey checks if a key matches the 5-digit format.
func ValidateKey(key string) bool {
	return KeyPattern.MatchString(key)
}

// NormalizeKey trims whitespace and drops a ZIP+4 suffix ("12345-6789" -> "12345").
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.IndexByte(key, '-'); i == 5 {
		key = key[:i]
	}
	return key
}

// ValidateURL checks if a URL is valid and uses an allowed scheme (http/https only).
func ValidateURL(urlStr string) (bool, string) {
	if urlStr == "" {
		return false, "URL is required"
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return false, "Invalid URL format"
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "URL must use http:// or https:// scheme"
	}

	if u.Host == "" {
		return false, "URL must have a valid host"
	}

	return true, ""
}
