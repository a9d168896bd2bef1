package blob

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	objectsBucket      = []byte("objects")
	contentTypesBucket = []byte("content_types")
)

// BoltStore keeps objects inside a single bbolt file.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open blob db")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{objectsBucket, contentTypesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "create bucket %q", name)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db}, nil
}

func (s *BoltStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read object")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		objects := tx.Bucket(objectsBucket)
		if objects.Get([]byte(key)) != nil {
			return errors.Wrapf(ErrExists, "%q", key)
		}
		if err := objects.Put([]byte(key), data); err != nil {
			return errors.Wrap(err, "put object")
		}
		return tx.Bucket(contentTypesBucket).Put([]byte(key), []byte(contentType))
	})
}

func (s *BoltStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, "", err
	}
	var data []byte
	var contentType string
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(objectsBucket).Get([]byte(key))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "%q", key)
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		contentType = string(tx.Bucket(contentTypesBucket).Get([]byte(key)))
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}
	return io.NopCloser(bytes.NewReader(data)), contentType, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
