package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hitoshi/trainboard/internal/model"
)

var (
	bucketCredentials = []byte("credentials")
	keyCurrent        = []byte("current")
)

// ErrNoCredential は保存済みの資格情報がないことを表す。
var ErrNoCredential = errors.New("no cached credential")

// CredentialCache はサインイン中の資格情報をBoltDBファイルに保存する。
type CredentialCache struct {
	db *bolt.DB
}

// OpenCredentialCache は指定パスのキャッシュファイルを開く。ディレクトリがなければ作成する。
func OpenCredentialCache(path string) (*CredentialCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open credential cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCredentials); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketCredentials, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CredentialCache{db: db}, nil
}

// Close はキャッシュファイルを閉じる。
func (c *CredentialCache) Close() error {
	return c.db.Close()
}

// Load は保存済みの資格情報を返す。未保存の場合はErrNoCredentialを返す。
func (c *CredentialCache) Load() (*model.Credential, error) {
	var cred model.Credential
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCredentials).Get(keyCurrent)
		if data == nil {
			return ErrNoCredential
		}
		return json.Unmarshal(data, &cred)
	})
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Save は資格情報を上書き保存する。
func (c *CredentialCache) Save(cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCredentials).Put(keyCurrent, data)
	})
}

// Clear は保存済みの資格情報を削除する。未保存でもエラーにしない。
func (c *CredentialCache) Clear() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCredentials).Delete(keyCurrent)
	})
}
