// Package blob stores uploaded media and hands back the URL clients use to
// fetch it.
package blob

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Kind is the top-level folder an object is filed under.
type Kind string

const (
	KindVideo     Kind = "videos"
	KindThumbnail Kind = "thumbnails"
)

// Store writes size bytes from r under objectPath and returns the public
// URL. Failures are reported as upstream_failure.
type Store interface {
	Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) (string, error)
}

// ObjectPath builds {kind}/{uid}/{uuid}{ext}. ext may be empty.
func ObjectPath(kind Kind, uid, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(string(kind), uid, uuid.NewString()+ext)
}

func joinURL(base, objectPath string) string {
	return strings.TrimRight(base, "/") + "/" + objectPath
}
