package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateNodeName validates a node name taken from a network file or a
// command line node list.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - Maximum length of 256 characters
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidNetwork, "node name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidNetwork, "node name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidNetwork, "node name %q contains whitespace or control characters", name)
		}
	}

	return nil
}

// ValidatePath validates a relative file path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// runIDRegex matches the canonical textual form of a UUID.
var runIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateRunID validates a run identifier received from the API or CLI.
func ValidateRunID(id string) error {
	if !runIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid run id: %q", id)
	}
	return nil
}

// ValidateMode validates a transform mode bitmask (1 through 7).
func ValidateMode(mode int) error {
	if mode < 1 || mode > 7 {
		return New(ErrCodeInvalidConfig, "mode %d outside 1-7 (bit0 repower, bit1 unbalanced, bit2 balanced)", mode)
	}
	return nil
}
