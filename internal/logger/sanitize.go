package logger

import (
	"strings"
	"unicode"
)

const (
	// MaxPathLength bounds URL paths in logs
	MaxPathLength = 500
	// MaxIDLength bounds user and todo ids in logs
	MaxIDLength = 128
	// MaxErrorMessageLength bounds error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is used when no other bound applies
	MaxGeneralStringLength = 2000
	// MaxBodyPreviewLength bounds response body previews
	MaxBodyPreviewLength = 512

	truncationMarker   = "..."
	visibleTokenSuffix = 4
)

// SanitizeString strips invalid UTF-8 and control characters other than whitespace,
// then truncates to at most maxLength bytes on a rune boundary.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}

	var b strings.Builder
	b.Grow(min(len(s), maxLength+len(truncationMarker)))
	for _, r := range strings.ToValidUTF8(s, "") {
		if !unicode.IsPrint(r) && r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		if b.Len()+len(string(r)) > maxLength {
			b.WriteString(truncationMarker)
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizePath prepares a URL path for logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeID prepares a user or todo id for logging
func SanitizeID(id string) string {
	return SanitizeString(id, MaxIDLength)
}

// SanitizeError prepares an error for logging. A nil error yields "".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeErrorString(err.Error())
}

// SanitizeErrorString prepares an error message for logging
func SanitizeErrorString(msg string) string {
	return SanitizeString(msg, MaxErrorMessageLength)
}

// SanitizeBodyPreview turns a response body into a short printable preview
func SanitizeBodyPreview(body []byte) string {
	return SanitizeString(string(body), MaxBodyPreviewLength)
}

// RedactToken hides a bearer or refresh token, keeping only its last characters
func RedactToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) <= visibleTokenSuffix*2:
		return "***"
	}
	return "***" + token[len(token)-visibleTokenSuffix:]
}
