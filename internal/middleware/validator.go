package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

var (
	tenantPattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	frameworkPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)
)

// DefaultMaxDocumentBytes caps the document submitted for analysis.
const DefaultMaxDocumentBytes = 256 << 10

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	// Allow alphanumeric, dash, underscore (max 64 chars)
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateFrameworkID validates framework identifiers used in paths
func ValidateFrameworkID(id string) error {
	if id == "" {
		return fmt.Errorf("framework ID cannot be empty")
	}
	if !frameworkPattern.MatchString(id) {
		return fmt.Errorf("invalid framework ID format")
	}
	return nil
}

// ValidateAuditRef checks the reference is a UUID as issued by the audit logger
func ValidateAuditRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("audit reference cannot be empty")
	}
	if _, err := uuid.Parse(ref); err != nil {
		return fmt.Errorf("invalid audit reference format")
	}
	return nil
}

// ValidateDocument checks the submitted document is non-empty UTF-8 within maxBytes.
func ValidateDocument(text string, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("document text cannot be empty")
	}
	if len(text) > maxBytes {
		return fmt.Errorf("document exceeds %d bytes", maxBytes)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("document must be valid UTF-8")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates pagination page
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
