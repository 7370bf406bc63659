package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/course-storefront/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sessionFileName = "session.json"
	keyInfo         = "course-storefront session"
	nonceSize       = 24
)

// FileRepo stores the session as JSON in the data folder. When a storage key is
// configured the file is sealed with secretbox and base64 encoded.
type FileRepo struct {
	mu   sync.Mutex
	path string
	key  *[32]byte
}

var _ Repo = (*FileRepo)(nil)

func NewFileRepo(folder, storageKey string) (*FileRepo, error) {
	if folder == "" {
		return nil, errors.New("[NewFileRepo] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileRepo] creating data folder")
	}
	r := &FileRepo{path: filepath.Join(folder, sessionFileName)}
	if storageKey != "" {
		key, err := deriveKey(storageKey)
		if err != nil {
			return nil, errors.Wrap(err, "[NewFileRepo] deriving storage key")
		}
		r.key = key
	}
	return r, nil
}

func deriveKey(secret string) (*[32]byte, error) {
	var key [32]byte
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key[:]); err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *FileRepo) Path() string {
	return r.path
}

func (r *FileRepo) Load() (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, apperrors.ErrNoSession
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.Load] reading session file")
	}
	if r.key != nil {
		if data, err = r.open(data); err != nil {
			return nil, err
		}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[FileRepo.Load] session file is corrupt")
	}
	return &rec, nil
}

func (r *FileRepo) Save(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Save] encoding session")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.key != nil {
		if data, err = r.seal(data); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), sessionFileName+".*")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Save] creating temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileRepo.Save] writing session")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileRepo.Save] closing temp file")
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return errors.Wrap(err, "[FileRepo.Save] replacing session file")
	}
	return nil
}

// Clear removes the session file; a missing file is not an error.
func (r *FileRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileRepo.Clear] removing session file")
	}
	return nil
}

func (r *FileRepo) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "[FileRepo.seal] generating nonce")
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, r.key)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

func (r *FileRepo) open(encoded []byte) ([]byte, error) {
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(sealed, encoded)
	if err != nil || n < nonceSize {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[FileRepo.open] session file is not sealed")
	}
	sealed = sealed[:n]
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, r.key)
	if !ok {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "[FileRepo.open] session file could not be opened")
	}
	return plain, nil
}
