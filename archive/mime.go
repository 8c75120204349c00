package archive

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// resolveMimeType picks the best available MIME type for an attachment:
// the container's stored value, else content sniffing when bytes are at hand,
// else a filename extension guess. It never fails; the zero value means the
// type could not be determined.
func resolveMimeType(stored, name string, content []byte) string {
	if s := strings.TrimSpace(stored); s != "" && strings.Contains(s, "/") {
		return s
	}

	if len(content) > 0 {
		if mt := mimetype.Detect(content); mt != nil {
			return mt.String()
		}
	}

	if ext := filepath.Ext(name); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			// Drop parameters such as charset, keep the bare type.
			if i := strings.IndexByte(t, ';'); i >= 0 {
				t = strings.TrimSpace(t[:i])
			}
			return t
		}
	}

	return ""
}
