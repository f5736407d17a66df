// Package filestore provides a durable keyed record store backed by one file per key.
//
// Every key maps to a single file under the store root. Creates and updates hold an
// exclusive per-key file lock for their whole read-modify-write sequence and commit by
// renaming a fully written temp file over the record, so readers never observe a torn value
// and concurrent writers in any process on the same host never lose an update.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by Update when the key has no record.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by CreateIfAbsent when the key already has a record.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrCorruptData is returned when a stored record cannot be decoded.
	ErrCorruptData = errors.New("corrupt record data")
	// ErrStorageFailure wraps every I/O error raised while reading or persisting records.
	ErrStorageFailure = errors.New("storage failure")
	// ErrInvalidKey is returned for keys that cannot be mapped to a file safely.
	ErrInvalidKey = errors.New("invalid key")
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// Codec converts values of type T to and from their on-disk form.
type Codec[T any] interface {
	// Ext is the file extension for records, without the leading dot.
	Ext() string
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// Store is a keyed record store rooted at a directory.
// All methods are safe for concurrent use by goroutines and by other processes sharing root.
type Store[T any] struct {
	root   string
	codec  Codec[T]
	logger *zap.Logger
}

// New creates a Store rooted at root. The directory is created lazily on first write.
//
// Precondition: root must be non-empty; codec and logger must be non-nil.
func New[T any](root string, codec Codec[T], logger *zap.Logger) *Store[T] {
	return &Store[T]{root: root, codec: codec, logger: logger}
}

// Root returns the base directory of the store.
func (s *Store[T]) Root() string {
	return s.root
}

// Get returns the record stored under key.
//
// Postcondition: Returns (value, true, nil) if present, (zero, false, nil) if absent,
// ErrCorruptData if the bytes cannot be decoded, or ErrStorageFailure on I/O errors.
func (s *Store[T]) Get(key string) (T, bool, error) {
	var zero T
	path, err := s.path(key)
	if err != nil {
		return zero, false, err
	}
	v, err := s.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// CreateIfAbsent persists the value produced by supply under key if no record exists yet.
//
// supply is called only after the key's lock is held and the key is known to be absent.
//
// Postcondition: Returns the persisted value, ErrAlreadyExists without writing anything,
// the error returned by supply, or ErrStorageFailure.
func (s *Store[T]) CreateIfAbsent(key string, supply func() (T, error)) (T, error) {
	var zero T
	path, err := s.path(key)
	if err != nil {
		return zero, err
	}
	unlock, err := s.lock(path)
	if err != nil {
		return zero, err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return zero, fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return zero, fmt.Errorf("%w: checking %s: %w", ErrStorageFailure, key, err)
	}

	v, err := supply()
	if err != nil {
		return zero, err
	}
	if err := s.write(path, v); err != nil {
		return zero, err
	}
	s.logger.Debug("record created", zap.String("key", key))
	return v, nil
}

// Update atomically replaces the record under key with mutate(current).
//
// The key's lock is held from the read until the new value is committed, so updates of the
// same key never interleave. If mutate returns an error nothing is written.
//
// Postcondition: Returns the persisted value, ErrNotFound, ErrCorruptData, the error
// returned by mutate, or ErrStorageFailure.
func (s *Store[T]) Update(key string, mutate func(T) (T, error)) (T, error) {
	var zero T
	path, err := s.path(key)
	if err != nil {
		return zero, err
	}
	unlock, err := s.lock(path)
	if err != nil {
		return zero, err
	}
	defer unlock()

	cur, err := s.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return zero, err
	}
	next, err := mutate(cur)
	if err != nil {
		return zero, err
	}
	if err := s.write(path, next); err != nil {
		return zero, err
	}
	s.logger.Debug("record updated", zap.String("key", key))
	return next, nil
}

// ListKeys returns every stored key beginning with prefix, sorted ascending.
//
// Postcondition: Returns an empty slice, not an error, when the namespace does not exist.
func (s *Store[T]) ListKeys(prefix string) ([]string, error) {
	// Walk from the deepest directory fully named by prefix.
	dir := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = prefix[:i]
	}
	start := filepath.Join(s.root, filepath.FromSlash(dir))
	suffix := "." + s.codec.Ext()

	keys := make([]string, 0)
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == start {
				return fs.SkipAll
			}
			return err
		}
		name := d.Name()
		if path != start && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(name, suffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), suffix)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing %q: %w", ErrStorageFailure, prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// path maps key to its record file, rejecting keys that could escape root or collide with
// lock and temp files.
func (s *Store[T]) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.ContainsAny(key, "\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(key)) + "." + s.codec.Ext(), nil
}

// read loads and decodes the record at path. A missing file is reported as fs.ErrNotExist.
func (s *Store[T]) read(path string) (T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, err
	}
	if err != nil {
		return zero, fmt.Errorf("%w: reading %s: %w", ErrStorageFailure, path, err)
	}
	v, err := s.codec.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrCorruptData, path, err)
	}
	return v, nil
}

// write commits v to path all-or-nothing: temp file, fsync, rename, directory fsync.
func (s *Store[T]) write(path string, v T) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrStorageFailure, dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrStorageFailure, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: writing %s: %w", ErrStorageFailure, tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: syncing %s: %w", ErrStorageFailure, tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrStorageFailure, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: committing %s: %w", ErrStorageFailure, path, err)
	}
	committed = true
	return syncDir(dir)
}

// lock takes the exclusive lock guarding path and returns its release func.
func (s *Store[T]) lock(path string) (func(), error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", ErrStorageFailure, dir, err)
	}
	lockPath := filepath.Join(dir, "."+filepath.Base(path)+".lock")
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, filePerm)
	if err != nil {
		return nil, fmt.Errorf("%w: opening lock %s: %w", ErrStorageFailure, lockPath, err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: locking %s: %w", ErrStorageFailure, lockPath, err)
	}
	return func() {
		if err := unlockFile(f); err != nil {
			s.logger.Warn("releasing record lock", zap.String("path", lockPath), zap.Error(err))
		}
		_ = f.Close()
	}, nil
}
