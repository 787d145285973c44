package blob

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

type writerFunc func(ctx context.Context, objectPath, contentType string) io.WriteCloser

// FirebaseStore writes objects to the Firebase project's Cloud Storage
// bucket.
type FirebaseStore struct {
	open    writerFunc
	baseURL string
}

func NewFirebaseStore(ctx context.Context, app *firebase.App, bucketName, publicBaseURL string) (*FirebaseStore, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Storage client: %w", err)
	}
	var bucket *gcs.BucketHandle
	if bucketName == "" {
		bucket, err = client.DefaultBucket()
	} else {
		bucket, err = client.Bucket(bucketName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}

	base := publicBaseURL
	if base == "" {
		base = "https://storage.googleapis.com/" + bucket.BucketName()
	}
	return &FirebaseStore{
		open: func(ctx context.Context, objectPath, contentType string) io.WriteCloser {
			w := bucket.Object(objectPath).NewWriter(ctx)
			w.ContentType = contentType
			return w
		},
		baseURL: base,
	}, nil
}

func (s *FirebaseStore) Put(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) (string, error) {
	const op = "blob.gcs_put"
	w := s.open(ctx, objectPath, contentType)
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return "", domain.Wrap(domain.KindUpstream, op, err)
	}
	// the object is only committed by Close
	if err := w.Close(); err != nil {
		return "", domain.Wrap(domain.KindUpstream, op, err)
	}
	if size >= 0 && n != size {
		return "", domain.E(domain.KindUpstream, op, fmt.Sprintf("wrote %d of %d bytes", n, size))
	}
	return joinURL(s.baseURL, objectPath), nil
}
