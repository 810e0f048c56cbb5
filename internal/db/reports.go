package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/ukydev/vehicle-maintenance/internal/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSReportStore keeps report blobs in a GridFS bucket, using the report
// key as the GridFS filename.
type GridFSReportStore struct {
	bucket *gridfs.Bucket

	// gridfs.Bucket carries its deadlines as mutable state, so calls are serialized.
	mu sync.Mutex
}

type gridfsFile struct {
	ID       primitive.ObjectID `bson:"_id"`
	Filename string             `bson:"filename"`
}

// NewGridFSReportStore opens (lazily creating) the reports bucket.
func NewGridFSReportStore(database *mongo.Database) (*GridFSReportStore, error) {
	bucket, err := gridfs.NewBucket(database, options.GridFSBucket().SetName(ReportsBucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFSReportStore{bucket: bucket}, nil
}

// PutReport uploads body under key and then removes older files with the same
// name, so readers always find at least one revision.
func (s *GridFSReportStore) PutReport(ctx context.Context, key string, body []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyDeadline(ctx)

	existing, err := s.find(ctx, bson.M{"filename": key}, nil)
	if err != nil {
		return false, err
	}

	upload := options.GridFSUpload().SetMetadata(bson.M{"content_type": "application/json"})
	if _, err := s.bucket.UploadFromStream(key, bytes.NewReader(body), upload); err != nil {
		return false, storeErr("upload report", err)
	}

	for _, f := range existing {
		if err := s.bucket.Delete(f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return true, storeErr("delete superseded report", err)
		}
	}
	return len(existing) > 0, nil
}

// GetReport downloads the latest revision stored under key.
func (s *GridFSReportStore) GetReport(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyDeadline(ctx)

	var buf bytes.Buffer
	if _, err := s.bucket.DownloadToStreamByName(key, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: report %s", errs.ErrNotFound, key)
		}
		return nil, storeErr("download report", err)
	}
	return buf.Bytes(), nil
}

// ListReports returns the distinct report keys that start with prefix.
func (s *GridFSReportStore) ListReports(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyDeadline(ctx)

	filter := bson.M{"filename": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	files, err := s.find(ctx, filter, options.GridFSFind().SetSort(bson.D{{Key: "filename", Value: 1}}))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for i, f := range files {
		if i > 0 && files[i-1].Filename == f.Filename {
			continue
		}
		keys = append(keys, f.Filename)
	}
	return keys, nil
}

func (s *GridFSReportStore) find(ctx context.Context, filter bson.M, opts *options.GridFSFindOptions) ([]gridfsFile, error) {
	var findOpts []*options.GridFSFindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	cursor, err := s.bucket.Find(filter, findOpts...)
	if err != nil {
		return nil, storeErr("find reports", err)
	}
	defer cursor.Close(ctx)

	var files []gridfsFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, storeErr("decode reports", err)
	}
	return files, nil
}

// applyDeadline maps the context deadline onto the bucket. A context without a
// deadline clears any previous one.
func (s *GridFSReportStore) applyDeadline(ctx context.Context) {
	deadline, _ := ctx.Deadline()
	_ = s.bucket.SetReadDeadline(deadline)
	_ = s.bucket.SetWriteDeadline(deadline)
}
