// Package cache persists converted ValuesLists so a flight can be plotted
// again without re-parsing its log.
package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/uav-flightlog/backend/internal/metrics"
	"github.com/uav-flightlog/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Magic starts every cache artifact.
const Magic = "VLZ1"

// Ext is the file extension of cache artifacts.
const Ext = ".vlz"

const headerLen = len(Magic) + 8

// ErrCacheMiss is returned by Load when no usable artifact exists.
var ErrCacheMiss = errors.New("cache miss")

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// Store manages ValuesList artifacts in one directory. Artifacts are keyed
// by the identity of the workbook they were built for.
type Store struct {
	dir     string
	log     *zap.Logger
	metrics *metrics.Metrics

	mu sync.RWMutex
	// index tracks the known artifacts (key -> path)
	index map[string]string
}

// NewStore opens the cache directory, creating it if needed, and indexes
// the artifacts already present.
func NewStore(dir string, log *zap.Logger, m *metrics.Metrics) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	s := &Store{
		dir:     dir,
		log:     log.Named("cache"),
		metrics: m,
		index:   make(map[string]string),
	}
	s.scanExisting()
	return s, nil
}

// scanExisting indexes the artifacts found on startup.
func (s *Store) scanExisting() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("failed to scan cache directory", zap.String("dir", s.dir), zap.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), Ext)
		s.index[key] = filepath.Join(s.dir, entry.Name())
	}

	s.log.Info("cache directory scanned", zap.String("dir", s.dir), zap.Int("artifacts", len(s.index)))
}

// Key derives the cache key of a workbook: its base name plus a hash of its
// absolute path, so equal names in different folders do not collide.
func Key(workbookPath string) string {
	abs, err := filepath.Abs(workbookPath)
	if err != nil {
		abs = workbookPath
	}
	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	return fmt.Sprintf("%s-%016x", base, xxhash.Sum64String(abs))
}

// Path returns where the artifact of a key is stored.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key+Ext)
}

// Save encodes values and replaces the artifact of key. The write goes to a
// temporary file renamed into place, so readers never see a partial file.
func (s *Store) Save(key string, fingerprint uint64, values models.ValuesList) error {
	data, err := Encode(fingerprint, values)
	if err != nil {
		return err
	}

	path := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing cache file: %w", err)
	}

	s.mu.Lock()
	s.index[key] = path
	s.mu.Unlock()

	s.log.Debug("cache saved",
		zap.String("key", key),
		zap.Int("bytes", len(data)),
		zap.Int("entries", values.Len()))
	return nil
}

// Load returns the ValuesList stored under key when it was built from
// inputs with the same fingerprint. Absent, stale and corrupt artifacts
// all return ErrCacheMiss; corrupt ones are logged.
func (s *Store) Load(key string, fingerprint uint64) (models.ValuesList, error) {
	values, err := s.load(key, fingerprint)
	s.metrics.CacheLookup(err == nil)
	return values, err
}

func (s *Store) load(key string, fingerprint uint64) (models.ValuesList, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("cache file unreadable", zap.String("key", key), zap.Error(err))
		}
		return models.ValuesList{}, ErrCacheMiss
	}

	stored, values, err := Decode(data)
	if err != nil {
		s.log.Warn("cache file corrupt, rebuilding", zap.String("key", key), zap.Error(err))
		return models.ValuesList{}, ErrCacheMiss
	}
	if stored != fingerprint {
		s.log.Info("cache file stale, rebuilding", zap.String("key", key))
		return models.ValuesList{}, ErrCacheMiss
	}
	return values, nil
}

// Has reports whether an artifact exists for key, whatever its fingerprint.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	_, ok := s.index[key]
	s.mu.RUnlock()
	if ok {
		return true
	}

	// The file may have been written by another process.
	path := s.Path(key)
	if _, err := os.Stat(path); err == nil {
		s.mu.Lock()
		s.index[key] = path
		s.mu.Unlock()
		return true
	}
	return false
}

// Delete removes the artifact of key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	delete(s.index, key)
	s.mu.Unlock()

	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting cache file: %w", err)
	}
	s.log.Debug("cache deleted", zap.String("key", key))
	return nil
}

// List returns the known keys in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.index))
	for key := range s.index {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Stats describes the cache directory.
type Stats struct {
	Count     int    `json:"count"`
	TotalSize int64  `json:"totalSize"`
	Dir       string `json:"dir"`
}

// Stats returns the number and total size of the artifacts. Artifacts
// removed behind the store's back are dropped from the index.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for key, path := range s.index {
		info, err := os.Stat(path)
		if err != nil {
			delete(s.index, key)
			continue
		}
		total += info.Size()
	}
	return Stats{Count: len(s.index), TotalSize: total, Dir: s.dir}
}

// Encode builds an artifact: magic, big-endian fingerprint, then the
// zstd-compressed msgpack encoding of values.
func Encode(fingerprint uint64, values models.ValuesList) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(&values); err != nil {
		return nil, fmt.Errorf("encoding values: %w", err)
	}

	out := make([]byte, headerLen, headerLen+buf.Len()/2)
	copy(out, Magic)
	binary.BigEndian.PutUint64(out[len(Magic):], fingerprint)
	return encoder.EncodeAll(buf.Bytes(), out), nil
}

// Decode reads an artifact built by Encode.
func Decode(data []byte) (uint64, models.ValuesList, error) {
	var values models.ValuesList
	if len(data) < headerLen || string(data[:len(Magic)]) != Magic {
		return 0, values, errors.New("bad magic")
	}
	fingerprint := binary.BigEndian.Uint64(data[len(Magic):headerLen])

	raw, err := decoder.DecodeAll(data[headerLen:], nil)
	if err != nil {
		return 0, values, fmt.Errorf("decompressing: %w", err)
	}
	if err := msgpack.Unmarshal(raw, &values); err != nil {
		return 0, values, fmt.Errorf("decoding values: %w", err)
	}
	return fingerprint, values, nil
}
