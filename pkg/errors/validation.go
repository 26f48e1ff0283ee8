package errors

import (
	"strings"
	"unicode"
)

// maxArtifactNameLength bounds step names, which end up inside file names.
const maxArtifactNameLength = 128

// ValidateArtifactName validates an export step name.
// Step names become part of the artifact file name, so they must not be
// able to escape the output directory.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators (/ or \)
//   - No "." or ".." names
//   - Maximum length of 128 characters
func ValidateArtifactName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidArtifact, "artifact name cannot be empty")
	}

	if len(name) > maxArtifactNameLength {
		return New(ErrCodeInvalidArtifact, "artifact name %q too long (max %d characters)", name, maxArtifactNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidArtifact, "artifact name %q contains invalid control characters", name)
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidArtifact, "artifact name %q cannot contain path separators", name)
	}

	if name == "." || name == ".." {
		return New(ErrCodeInvalidArtifact, "artifact name %q is reserved", name)
	}

	return nil
}

// ValidateDiagramKey validates a diagram key from the override file.
// Keys are relative, slash separated paths such as "fig.drawio" or
// "chapter1/fig.drawio".
//
// Validation rules:
//   - Key cannot be empty
//   - No null bytes or control characters
//   - Must be relative (cannot start with /)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateDiagramKey(key string) error {
	if key == "" {
		return New(ErrCodeConfigLoad, "diagram name cannot be empty")
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeConfigLoad, "diagram %q: name contains invalid characters", key)
		}
	}

	if strings.HasPrefix(key, "/") {
		return New(ErrCodeConfigLoad, "diagram %q: name must be relative (cannot start with /)", key)
	}

	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return New(ErrCodeConfigLoad, "diagram %q: name cannot contain path traversal sequences (..)", key)
		}
	}

	if strings.Contains(key, "\\") {
		return New(ErrCodeConfigLoad, "diagram %q: name cannot contain backslashes", key)
	}

	return nil
}
