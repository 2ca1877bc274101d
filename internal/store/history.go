package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// City is one entry of the search history.
type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewCity creates a City with a fresh random id.
func NewCity(name string) City {
	return City{ID: uuid.NewString(), Name: name}
}

// LoadResult is the outcome of reading the history file. Reason is nil when
// the file was read and parsed; otherwise Cities is empty and Reason says why.
type LoadResult struct {
	Cities []City
	Reason error
}

// Degraded reports whether the result is empty because the read failed.
func (r LoadResult) Degraded() bool {
	return r.Reason != nil
}

// HistoryStore persists the search history as a JSON array in a single file.
// Every mutation reads the whole file, changes it in memory and rewrites it.
// Mutations are serialized, and each rewrite goes through a temp file and a
// rename so readers never observe a partial file.
type HistoryStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewHistoryStore creates a store backed by path. The file and its directory
// are created on the first write.
func NewHistoryStore(path string, logger *slog.Logger) *HistoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStore{
		path:   path,
		logger: logger.With(slog.String("component", "history"), slog.String("file", path)),
	}
}

// Path returns the backing file location.
func (s *HistoryStore) Path() string {
	return s.path
}

// Load reads the full collection. A missing, unreadable or malformed file
// yields an empty collection with a non-nil Reason.
func (s *HistoryStore) Load() LoadResult {
	res := s.read()
	if res.Degraded() {
		if errors.Is(res.Reason, os.ErrNotExist) {
			s.logger.Debug("history file not found; starting empty")
		} else {
			s.logger.Warn("history file unreadable; treating as empty", slog.Any("error", res.Reason))
		}
	}
	return res
}

// List returns the full collection in insertion order. It never fails.
func (s *HistoryStore) List() []City {
	return s.Load().Cities
}

// Add records name unless a case-insensitive match already exists, in which
// case the existing record is returned and nothing is written. A write
// failure is logged and returned along with the record that was not persisted.
func (s *HistoryStore) Add(name string) (City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cities := s.read().Cities
	for _, c := range cities {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}

	city := NewCity(name)
	cities = append(cities, city)
	if err := s.write(cities); err != nil {
		s.logger.Error("failed to write search history", slog.String("op", "add"), slog.Any("error", err))
		return city, err
	}
	return city, nil
}

// Remove drops every record whose id equals id and rewrites the file, even
// when nothing matched. Unknown ids are not an error.
func (s *HistoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cities := slices.DeleteFunc(s.read().Cities, func(c City) bool {
		return c.ID == id
	})
	if err := s.write(cities); err != nil {
		s.logger.Error("failed to write search history", slog.String("op", "remove"), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *HistoryStore) read() LoadResult {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return LoadResult{Cities: []City{}, Reason: err}
	}

	var cities []City
	if err := json.Unmarshal(data, &cities); err != nil {
		return LoadResult{Cities: []City{}, Reason: fmt.Errorf("parse %s: %w", s.path, err)}
	}
	if cities == nil {
		cities = []City{}
	}
	return LoadResult{Cities: cities}
}

func (s *HistoryStore) write(cities []City) error {
	if cities == nil {
		cities = []City{}
	}
	data, err := json.MarshalIndent(cities, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
