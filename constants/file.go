package constants

import "strings"

// AllowedExtensions holds the default allowed file extensions for tender ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// SidecarExt is the extension of the optional metadata file stored next to a PDF.
const SidecarExt = "json"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
