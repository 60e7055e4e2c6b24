// Package utils provides filename sanitization, UUIDs and object keys.
//
// Functions:
//   - SanitizeFilename: Returns a safe filename for storage.
//     Input: string (filename)
//     Output: string (sanitized filename)
//   - GenerateUUID: Returns a new UUID string.
//   - StampedKey: Returns a fresh object key for a stamped document.
//     Input: document ID, attachment name
//     Output: "stamped/<id>/<uuid>-<name>.pdf"
//
// Used throughout the backend for safe file handling and unique IDs.
package utils

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	safe := unsafeChars.ReplaceAllString(base, "_")
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

func GenerateUUID() string {
	return uuid.New().String()
}

// StampedKey builds the object key for a new stamped version of name. Every
// call returns a different key so earlier versions and CDN copies never
// collide with the new object.
func StampedKey(documentID int64, name string) string {
	base := strings.TrimSuffix(SanitizeFilename(path.Base(name)), ".pdf")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "document"
	}
	return fmt.Sprintf("stamped/%d/%s-%s.pdf", documentID, GenerateUUID(), base)
}
