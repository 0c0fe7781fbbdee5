package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data
const RedactedText = "[REDACTED]"

var (
	// Pattern to match PAT secrets in request bodies or error text
	// Matches: personalAccessTokenSecret":"xxx" and secret=xxx forms
	patSecretPattern   = regexp.MustCompile(`(?i)(personalAccessTokenSecret"\s*:\s*")[^"]+`)
	secretParamPattern = regexp.MustCompile(`(?i)(secret|token_secret|pat_secret)=[^;&\s]+`)

	// Pattern to match session tokens in auth headers
	authHeaderPattern = regexp.MustCompile(`(?i)(X-Tableau-Auth:?\s+)[A-Za-z0-9\-_|]+`)

	// Pattern to match credentials embedded in URLs (user:pass@host format)
	urlCredsPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeError redacts credential material from error text before it is
// logged. Every error coming back from the HTTP layer goes through this.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize redacts PAT secrets, session tokens and URL-embedded
// credentials from s.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	out := patSecretPattern.ReplaceAllString(s, "${1}"+RedactedText)
	out = secretParamPattern.ReplaceAllString(out, "${1}="+RedactedText)
	out = authHeaderPattern.ReplaceAllString(out, "${1}"+RedactedText)
	out = urlCredsPattern.ReplaceAllString(out, "://"+RedactedText+"@"+RedactedText)
	return out
}
