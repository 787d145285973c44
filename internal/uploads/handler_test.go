package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutroom/cutroom-backend/internal/auth"
	"github.com/cutroom/cutroom-backend/internal/auth/middleware"
	"github.com/cutroom/cutroom-backend/internal/metrics"
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

var (
	mp4Bytes = append([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}, make([]byte, 64)...)
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
)

type stored struct {
	path        string
	contentType string
	data        []byte
}

type fakeStore struct {
	mu   sync.Mutex
	puts []stored
	err  error
}

func (f *fakeStore) Put(_ context.Context, objectPath string, r io.Reader, _ int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, _ := io.ReadAll(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, stored{path: objectPath, contentType: contentType, data: data})
	return "https://cdn.example.com/" + objectPath, nil
}

func setup(store *fakeStore, maxVideo int64) (*gin.Engine, *prometheus.Registry) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	r := gin.New()
	New(store, maxVideo, metrics.New(reg)).Register(r.Group("/api/v1/uploads", middleware.Authenticate(auth.HeaderVerifier{})))
	return r, reg
}

func uploadedBytes(t *testing.T, reg *prometheus.Registry, kind string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "cutroom_uploaded_bytes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == kind {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func multipartBody(t *testing.T, parts map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, data := range parts {
		// lie about the type; the handler must sniff
		fw, err := mw.CreateFormFile(field, field+".bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func post(r http.Handler, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer yt-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpload_VideoAndThumbnail(t *testing.T) {
	store := &fakeStore{}
	r, reg := setup(store, 0)

	body, ct := multipartBody(t, map[string][]byte{"video": mp4Bytes, "thumbnail": pngBytes})
	w := post(r, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, `^https://cdn\.example\.com/videos/yt-1/[0-9a-f-]{36}\.mp4$`, resp["video_url"])
	assert.Regexp(t, `^https://cdn\.example\.com/thumbnails/yt-1/[0-9a-f-]{36}\.png$`, resp["thumbnail_url"])

	require.Len(t, store.puts, 2)
	assert.Equal(t, "video/mp4", store.puts[0].contentType)
	assert.Equal(t, mp4Bytes, store.puts[0].data)
	assert.Equal(t, "image/png", store.puts[1].contentType)
	assert.Equal(t, float64(len(mp4Bytes)), uploadedBytes(t, reg, "videos"))
}

func TestUpload_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		parts map[string][]byte
		field string
	}{
		{"nothing", map[string][]byte{"other": pngBytes}, "video"},
		{"text as video", map[string][]byte{"video": []byte("just some text, not a video")}, "video"},
		{"video as thumbnail", map[string][]byte{"thumbnail": mp4Bytes}, "thumbnail"},
		{"image as video", map[string][]byte{"video": pngBytes}, "video"},
		{"good video, bad thumbnail", map[string][]byte{"video": mp4Bytes, "thumbnail": []byte("not an image at all")}, "thumbnail"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			r, _ := setup(store, 0)
			body, ct := multipartBody(t, tc.parts)
			w := post(r, body, ct)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"field":"`+tc.field+`"`)
			assert.Empty(t, store.puts)
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	store := &fakeStore{}
	r, _ := setup(store, 32)

	body, ct := multipartBody(t, map[string][]byte{"video": mp4Bytes})
	w := post(r, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.puts)
}

func TestUpload_StoreFailure(t *testing.T) {
	store := &fakeStore{err: domain.Wrap(domain.KindUpstream, "blob.s3_put", errors.New("SlowDown"))}
	r, _ := setup(store, 0)

	body, ct := multipartBody(t, map[string][]byte{"video": mp4Bytes})
	w := post(r, body, ct)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)
}

func TestUpload_NotMultipart(t *testing.T) {
	r, _ := setup(&fakeStore{}, 0)
	w := post(r, bytes.NewBufferString(`{"video":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
