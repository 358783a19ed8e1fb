package media

import (
	"mime"
	"path/filepath"
	"strings"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".ogv":  "video/ogg",
}

// ContentTypeFor guesses a content type from a file name or extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := videoContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
