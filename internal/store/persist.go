package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Persister is the local key-value cache behind the stores.
type Persister interface {
	// Load returns the stored value, or found=false when the key is absent.
	Load(ctx context.Context, key string) (data []byte, found bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key suffixes under the configured namespace
const (
	profileKeySuffix   = "candidate-profile"
	savedJobsKeySuffix = "saved-jobs"
)

// ProfileKey is the key the candidate profile is cached under.
func ProfileKey(namespace string) string {
	return namespace + ":" + profileKeySuffix
}

// SavedJobsKey is the key saved job postings are cached under.
func SavedJobsKey(namespace string) string {
	return namespace + ":" + savedJobsKeySuffix
}

// FilePersister keeps every key in one JSON object on disk.
type FilePersister struct {
	mu   sync.Mutex
	path string
}

// NewFilePersister creates the parent directory of path if needed.
func NewFilePersister(path string) (*FilePersister, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FilePersister{path: path}, nil
}

// Path returns the backing file, for the watcher.
func (fp *FilePersister) Path() string {
	return fp.path
}

func (fp *FilePersister) Load(_ context.Context, key string) ([]byte, bool, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	entries, err := fp.read()
	if err != nil {
		return nil, false, err
	}
	raw, ok := entries[key]
	if !ok {
		return nil, false, nil
	}
	// values are indented on disk; hand back the compact form that was saved
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, false, fmt.Errorf("store value %s is corrupt: %w", key, err)
	}
	return compact.Bytes(), true, nil
}

func (fp *FilePersister) Save(_ context.Context, key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("refusing to store invalid JSON under %s", key)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	entries, err := fp.read()
	if err != nil {
		// an unreadable cache is replaced rather than blocking every write
		entries = map[string]json.RawMessage{}
	}
	entries[key] = json.RawMessage(data)
	return fp.write(entries)
}

func (fp *FilePersister) Delete(_ context.Context, key string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	entries, err := fp.read()
	if err != nil {
		entries = map[string]json.RawMessage{}
	}
	if _, ok := entries[key]; !ok && err == nil {
		return nil
	}
	delete(entries, key)
	return fp.write(entries)
}

func (fp *FilePersister) Close() error {
	return nil
}

func (fp *FilePersister) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(fp.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("store file %s is corrupt: %w", fp.path, err)
	}
	if entries == nil {
		entries = map[string]json.RawMessage{}
	}
	return entries, nil
}

// write replaces the file atomically so readers never see a partial object.
func (fp *FilePersister) write(entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fp.path), "."+filepath.Base(fp.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fp.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// RedisPersister stores each key as a plain Redis string.
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister wraps an existing client. A zero ttl keeps keys forever.
func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

// DialRedis connects and pings the server before returning a persister.
func DialRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisPersister, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisPersister(client, ttl), nil
}

func (rp *RedisPersister) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := rp.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (rp *RedisPersister) Save(ctx context.Context, key string, data []byte) error {
	if err := rp.client.Set(ctx, key, data, rp.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (rp *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := rp.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (rp *RedisPersister) Close() error {
	return rp.client.Close()
}

// MemoryPersister keeps values in a map. Used by tests and when caching is disabled.
type MemoryPersister struct {
	mu      sync.Mutex
	entries map[string][]byte
	writes  int
	fail    error
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{entries: make(map[string][]byte)}
}

// FailWith makes every subsequent call return err. A nil err restores normal behavior.
func (mp *MemoryPersister) FailWith(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.fail = err
}

// Writes counts successful Save and Delete calls.
func (mp *MemoryPersister) Writes() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.writes
}

func (mp *MemoryPersister) Load(_ context.Context, key string) ([]byte, bool, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.fail != nil {
		return nil, false, mp.fail
	}
	data, ok := mp.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (mp *MemoryPersister) Save(_ context.Context, key string, data []byte) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.fail != nil {
		return mp.fail
	}
	mp.entries[key] = append([]byte(nil), data...)
	mp.writes++
	return nil
}

func (mp *MemoryPersister) Delete(_ context.Context, key string) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.fail != nil {
		return mp.fail
	}
	delete(mp.entries, key)
	mp.writes++
	return nil
}

func (mp *MemoryPersister) Close() error {
	return nil
}
