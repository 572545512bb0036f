package constants

import "strings"

// AllowedExtensions holds the document extensions eligible for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// MinTextLength is the minimum extracted-text length for a document to be
// considered readable. Shorter output means a blank, image-only or corrupted
// file masquerading as success.
const MinTextLength = 50

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether a path carries an ingestible extension.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
