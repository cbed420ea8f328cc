package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// nodeIDRegex matches node identifiers usable in recipes and URLs.
var nodeIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateNodeID validates a caller-chosen node identifier.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node ID cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "node ID too long (max 128 characters)")
	}
	if !nodeIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid node ID: %q", id)
	}
	return nil
}

// ValidateKey validates a storage key. Keys are slash-separated relative names
// such as "sheets/hero.png".
//
// Validation rules:
//   - Key cannot be empty
//   - Maximum length of 500 characters
//   - No control characters
//   - No leading slash, empty segments or ".." segments
//   - No backslashes
func ValidateKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidKey, "key cannot be empty")
	}

	const maxKeyLength = 500
	if len(key) > maxKeyLength {
		return New(ErrCodeInvalidKey, "key too long (max %d characters)", maxKeyLength)
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidKey, "key contains invalid characters")
		}
	}

	if strings.Contains(key, "\\") {
		return New(ErrCodeInvalidKey, "key cannot contain backslashes")
	}

	for _, seg := range strings.Split(key, "/") {
		switch seg {
		case "":
			return New(ErrCodeInvalidKey, "key %q has an empty segment", key)
		case ".", "..":
			return New(ErrCodeInvalidKey, "key cannot contain %q segments", seg)
		}
	}

	return nil
}

// ValidatePath validates a local file path named in a recipe.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
