package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateTypeName validates a node or slot type name.
//
// Type names come from documents and registry files, so the rules only
// reject values that cannot round-trip safely:
//   - No empty names
//   - No control characters
//   - No null bytes
//   - Maximum length of 256 characters
//
// Comma-separated alternatives ("INT,FLOAT") and the wildcard "*" are valid.
func ValidateTypeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidTypeName, "type name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidTypeName, "type name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidTypeName, "type name contains invalid control characters")
		}
	}

	return nil
}

// documentIDRegex matches store keys: letters, digits, dash, underscore and dot.
var documentIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateDocumentID validates a workflow document id used as a store key
// or URL path segment. It prevents path traversal in the file store.
//
// Validation rules:
//   - ID cannot be empty
//   - Maximum length of 128 characters
//   - No path separators or traversal sequences (..)
//   - Only letters, digits, '.', '_' and '-'
func ValidateDocumentID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidDocumentID, "document id cannot be empty")
	}

	const maxIDLength = 128
	if len(id) > maxIDLength {
		return New(ErrCodeInvalidDocumentID, "document id too long (max %d characters)", maxIDLength)
	}

	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidDocumentID, "document id cannot contain path traversal sequences (..)")
	}

	if !documentIDRegex.MatchString(id) {
		return New(ErrCodeInvalidDocumentID, "invalid document id: %q", id)
	}

	return nil
}
