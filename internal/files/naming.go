package files

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MaxUploadSize  = 16 << 20 // 16 MiB
	maxFilenameLen = 255
)

var allowedExtensions = map[string]bool{
	"txt": true, "pdf": true, "png": true, "jpg": true, "jpeg": true, "gif": true,
	"doc": true, "docx": true, "ppt": true, "pptx": true, "xls": true, "xlsx": true, "md": true,
}

// Allowed reports whether the filename carries a permitted extension.
func Allowed(name string) bool {
	return allowedExtensions[extension(name)]
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// SanitizeFilename reduces a client-supplied name to a safe base name made of
// letters, digits, dots, dashes and underscores. It returns "" when nothing
// usable is left.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	clean := strings.TrimLeft(b.String(), "._")
	if strings.Contains(clean, "..") {
		clean = strings.ReplaceAll(clean, "..", ".")
	}
	if len(clean) > maxFilenameLen {
		ext := filepath.Ext(clean)
		clean = clean[:maxFilenameLen-len(ext)] + ext
	}
	return clean
}

// UniqueName builds <stem>_<unix-ms>_<8 hex>.<ext> so repeated uploads of the
// same file never collide.
func UniqueName(clean string, now time.Time) string {
	ext := filepath.Ext(clean)
	stem := strings.TrimSuffix(clean, ext)
	if stem == "" {
		stem = "file"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s%s", stem, now.UnixMilli(), suffix, strings.ToLower(ext))
}

func validStoredName(name string) bool {
	return name != "" && SanitizeFilename(name) == name
}

// DetectType sniffs the content and falls back to the extension when the
// bytes are not conclusive.
func DetectType(data []byte, name string) string {
	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") {
		return docconv.MimeTypeByExtension(name)
	}
	return detected.String()
}
