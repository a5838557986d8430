// Package logging provides helpers for keeping credentials out of log output.
package logging

import "regexp"

// RedactedText replaces sensitive values in sanitized output.
const RedactedText = "[REDACTED]"

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host credentials embedded in connection URLs
	urlCredsPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// api_key=xxx style keys
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey)=[A-Za-z0-9-_]{8,}`)
)

// SanitizeDSN removes credentials from a connection string before logging.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	sanitized = urlCredsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return sanitized
}

// SanitizeError sanitizes an error message that may echo a connection string
// or API key, such as driver connect failures.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = urlCredsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return sanitized
}
