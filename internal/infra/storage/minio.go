package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/newsgate/internal/domain/analyses"
)

// lostPrefix menampung record yang gagal disimpan ke database
const lostPrefix = "lost"

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	now        func() time.Time
}

type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// New buat koneksi MinIO
func New(ctx context.Context, o Options) (*Store, error) {
	cli, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
		Region: o.Region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, o.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", o.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, o.Bucket, minio.MakeBucketOptions{Region: o.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", o.Bucket, err)
		}
	}

	return &Store{client: cli, bucketName: o.Bucket, region: o.Region, now: time.Now}, nil
}

type archivedRecord struct {
	Record     *domain.Record `json:"record"`
	Cause      string         `json:"cause"`
	ArchivedAt time.Time      `json:"archivedAt"`
}

// Put implementasi analyses.Archive. It returns the object key.
func (s *Store) Put(ctx context.Context, r *domain.Record, cause error) (string, error) {
	body, err := encodeArchived(r, cause, s.now())
	if err != nil {
		return "", err
	}
	key := ObjectKey(r)
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// ObjectKey returns lost/<owner>/<id>.json.
func ObjectKey(r *domain.Record) string {
	owner := r.OwnerID
	if owner == "" {
		owner = "_"
	}
	return path.Join(lostPrefix, owner, string(r.ID)+".json")
}

func encodeArchived(r *domain.Record, cause error, at time.Time) ([]byte, error) {
	a := archivedRecord{Record: r, ArchivedAt: at.UTC()}
	if cause != nil {
		a.Cause = cause.Error()
	}
	return json.Marshal(a)
}
