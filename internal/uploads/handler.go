// Package uploads accepts media from signed-in users and files it in blob
// storage.
package uploads

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	apihttp "github.com/cutroom/cutroom-backend/internal/api/http"
	"github.com/cutroom/cutroom-backend/internal/auth"
	"github.com/cutroom/cutroom-backend/internal/logging"
	"github.com/cutroom/cutroom-backend/internal/metrics"
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
	"github.com/cutroom/cutroom-backend/internal/storage/blob"
)

const (
	DefaultMaxVideoBytes = 100 << 20
	MaxThumbnailBytes    = 10 << 20
)

var (
	videoTypes = []string{"video/mp4", "video/quicktime", "video/x-msvideo"}
	imageTypes = []string{"image/jpeg", "image/png", "image/webp"}
)

type Handler struct {
	store         blob.Store
	maxVideoBytes int64
	metrics       *metrics.Metrics
}

func New(store blob.Store, maxVideoBytes int64, m *metrics.Metrics) *Handler {
	if maxVideoBytes <= 0 {
		maxVideoBytes = DefaultMaxVideoBytes
	}
	return &Handler{store: store, maxVideoBytes: maxVideoBytes, metrics: m}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.Upload)
}

type part struct {
	field   string
	kind    blob.Kind
	max     int64
	allowed []string
}

// Upload stores the "video" and/or "thumbnail" parts of a multipart form.
// Content types are sniffed from the bytes; the client's header is ignored.
func (h *Handler) Upload(c *gin.Context) {
	const op = "upload.create"
	uid := auth.UserFirebaseUID(c)

	// room for both parts plus form overhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxVideoBytes+MaxThumbnailBytes+1<<20)

	form, err := c.MultipartForm()
	if err != nil {
		apihttp.WriteError(c, domain.Validation(op, "video", "multipart form too large or malformed"))
		return
	}

	parts := []part{
		{field: "video", kind: blob.KindVideo, max: h.maxVideoBytes, allowed: videoTypes},
		{field: "thumbnail", kind: blob.KindThumbnail, max: MaxThumbnailBytes, allowed: imageTypes},
	}
	// every part is checked before anything is stored
	var checked []*checkedPart
	defer func() {
		for _, cp := range checked {
			_ = cp.file.Close()
		}
	}()
	for _, p := range parts {
		files := form.File[p.field]
		if len(files) == 0 {
			continue
		}
		cp, err := checkPart(op, p, files[0])
		if err != nil {
			apihttp.WriteError(c, err)
			return
		}
		checked = append(checked, cp)
	}
	if len(checked) == 0 {
		apihttp.WriteError(c, domain.Validation(op, "video", "video or thumbnail is required"))
		return
	}

	resp := gin.H{"ok": true}
	for _, cp := range checked {
		url, err := h.storePart(c, op, uid, cp)
		if err != nil {
			apihttp.WriteError(c, err)
			return
		}
		resp[cp.field+"_url"] = url
	}
	c.JSON(http.StatusCreated, resp)
}

type checkedPart struct {
	part
	file        multipart.File
	size        int64
	contentType string
	ext         string
}

// checkPart enforces the size limit and sniffs the content type. The
// returned file is rewound and still open.
func checkPart(op string, p part, fh *multipart.FileHeader) (*checkedPart, error) {
	if fh.Size > p.max {
		return nil, domain.Validation(op, p.field, "file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, domain.Wrap(domain.KindValidation, op, err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, domain.Wrap(domain.KindValidation, op, err)
	}
	contentType, ok := lo.Find(p.allowed, func(t string) bool { return mt.Is(t) })
	if !ok {
		_ = f.Close()
		return nil, domain.Validation(op, p.field, "unsupported media type "+mt.String())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, domain.Wrap(domain.KindUpstream, op, err)
	}
	return &checkedPart{part: p, file: f, size: fh.Size, contentType: contentType, ext: mt.Extension()}, nil
}

func (h *Handler) storePart(c *gin.Context, op, uid string, cp *checkedPart) (string, error) {
	objectPath := blob.ObjectPath(cp.kind, uid, cp.ext)
	url, err := h.store.Put(c.Request.Context(), objectPath, cp.file, cp.size, cp.contentType)
	if err != nil {
		return "", err
	}
	h.metrics.Uploaded(string(cp.kind), cp.size)
	logging.New(c.Request.Context()).Infof(op, "stored %s (%d bytes) for %s", objectPath, cp.size, uid)
	return url, nil
}
