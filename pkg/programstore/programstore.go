// Package programstore provides persistent storage for IntCode programs.
//
// Programs are content addressed: the key of a program is the hash of its
// words, so storing the same program twice keeps one copy. Names are a
// separate index pointing at program IDs.
package programstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/tliron/commonlog"
	bolt "go.etcd.io/bbolt"
)

var log = commonlog.GetLogger("intcode.programstore")

var (
	// ErrProgramNotFound is returned when a program doesn't exist.
	ErrProgramNotFound = errors.New("program not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("program store closed")

	// ErrInvalidName is returned for names that cannot be stored.
	ErrInvalidName = errors.New("invalid program name")

	// ErrEmptyProgram is returned when storing a program with no words.
	ErrEmptyProgram = errors.New("empty program")
)

// MaxNameLength bounds program names in bytes.
const MaxNameLength = 255

// Bucket names for BoltDB.
var (
	// bucketPrograms stores program records keyed by program ID.
	bucketPrograms = []byte("programs")

	// bucketNames maps names to program IDs.
	bucketNames = []byte("names")

	// bucketMetadata stores store metadata.
	bucketMetadata = []byte("metadata")
)

// Metadata keys.
var (
	keyProgramCount = []byte("program_count")
)

// Config holds program store configuration options.
type Config struct {
	// Path is the database file path.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// ReadOnly opens the database in read-only mode.
	ReadOnly bool

	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// DefaultConfig returns the default program store configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:     path,
		NoSync:   false,
		ReadOnly: false,
		Timeout:  5 * time.Second,
	}
}

// Record is a stored program. Name is the name it was first stored under;
// GetByName reports the name it was looked up by.
type Record struct {
	ID       types.ProgramID
	Name     string
	Words    []int64
	StoredAt time.Time
}

// Info describes a stored program without its words.
type Info struct {
	ID       types.ProgramID
	Name     string
	Size     int
	StoredAt time.Time
}

// Stats contains program store statistics.
type Stats struct {
	// ProgramCount is the number of distinct programs stored.
	ProgramCount uint64

	// NameCount is the number of names in the index.
	NameCount uint64

	// DatabaseSize is the size of the database file in bytes.
	DatabaseSize int64
}

// Store is the program store interface.
type Store interface {
	Put(name string, program []int64) (types.ProgramID, error)
	Get(id types.ProgramID) (*Record, error)
	GetByName(name string) (*Record, error)
	Has(id types.ProgramID) bool
	List() ([]Info, error)
	Delete(id types.ProgramID) error
	Stats() (*Stats, error)
	Close() error
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db     *bolt.DB
	config Config

	mu     sync.RWMutex
	count  uint64
	closed bool
}

// Open creates or opens a program store.
func Open(config Config) (*BoltStore, error) {
	// Ensure directory exists.
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	opts := &bolt.Options{
		Timeout:  config.Timeout,
		NoSync:   config.NoSync,
		ReadOnly: config.ReadOnly,
	}

	db, err := bolt.Open(config.Path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &BoltStore{
		db:     db,
		config: config,
	}

	// Initialize buckets (skip in read-only mode).
	if !config.ReadOnly {
		if err := store.initBuckets(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init buckets: %w", err)
		}
	}

	if err := store.loadCount(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	log.Debugf("opened %s with %d programs", config.Path, store.count)
	return store, nil
}

// initBuckets creates all required buckets.
func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketPrograms, bucketNames, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) loadCount() error {
	return s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return nil // Empty database.
		}
		if v := meta.Get(keyProgramCount); v != nil {
			s.count = decodeCount(v)
		}
		return nil
	})
}

func (s *BoltStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// ValidateName checks that name can be used as a program name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidName, len(name), MaxNameLength)
	}
	return nil
}

// Put stores program under name and returns its ID. Storing a program that
// already exists only updates the name index. A name that pointed at a
// different program is moved to this one.
func (s *BoltStore) Put(name string, program []int64) (types.ProgramID, error) {
	if err := s.checkOpen(); err != nil {
		return types.ProgramID{}, err
	}
	if err := ValidateName(name); err != nil {
		return types.ProgramID{}, err
	}
	if len(program) == 0 {
		return types.ProgramID{}, ErrEmptyProgram
	}

	id := types.HashProgram(program)
	rec := &Record{
		ID:       id,
		Name:     name,
		Words:    program,
		StoredAt: time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return types.ProgramID{}, fmt.Errorf("encode program: %w", err)
	}

	added := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		programs := tx.Bucket(bucketPrograms)
		if programs.Get(id[:]) == nil {
			if err := programs.Put(id[:], buf.Bytes()); err != nil {
				return err
			}
			added = true
		}

		if err := tx.Bucket(bucketNames).Put([]byte(name), id[:]); err != nil {
			return err
		}

		if added {
			s.mu.RLock()
			count := s.count + 1
			s.mu.RUnlock()
			return tx.Bucket(bucketMetadata).Put(keyProgramCount, encodeCount(count))
		}
		return nil
	})
	if err != nil {
		return types.ProgramID{}, err
	}

	if added {
		s.mu.Lock()
		s.count++
		s.mu.Unlock()
		log.Infof("stored program %s (%d words) as %q", id, len(program), name)
	} else {
		log.Debugf("program %s already stored; named %q", id, name)
	}
	return id, nil
}

// Get retrieves a program by ID.
func (s *BoltStore) Get(id types.ProgramID) (*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrograms)
		if b == nil {
			return ErrProgramNotFound
		}
		data := b.Get(id[:])
		if data == nil {
			return ErrProgramNotFound
		}
		return gob.NewDecoder(bytes.NewReader(data)).Decode(&rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByName retrieves the program a name points at.
func (s *BoltStore) GetByName(name string) (*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var id types.ProgramID
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNames)
		if b == nil {
			return ErrProgramNotFound
		}
		v := b.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w: %q", ErrProgramNotFound, name)
		}
		var err error
		id, err = types.ProgramIDFromBytes(v)
		return err
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	rec.Name = name
	return rec, nil
}

// Has checks if a program is stored.
func (s *BoltStore) Has(id types.ProgramID) bool {
	if s.checkOpen() != nil {
		return false
	}

	exists := false
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrograms)
		if b != nil && b.Get(id[:]) != nil {
			exists = true
		}
		return nil
	})
	return exists
}

// List returns every stored program in ID order. Info.Name lists the names
// currently pointing at a program, comma separated; it is empty when every
// name has moved elsewhere.
func (s *BoltStore) List() ([]Info, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var infos []Info
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrograms)
		if b == nil {
			return nil
		}

		named := make(map[types.ProgramID][]string)
		if nb := tx.Bucket(bucketNames); nb != nil {
			err := nb.ForEach(func(k, v []byte) error {
				id, err := types.ProgramIDFromBytes(v)
				if err != nil {
					return fmt.Errorf("name %q: %w", k, err)
				}
				named[id] = append(named[id], string(k))
				return nil
			})
			if err != nil {
				return err
			}
		}

		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
				return fmt.Errorf("decode program %x: %w", k, err)
			}
			infos = append(infos, Info{
				ID:       rec.ID,
				Name:     strings.Join(named[rec.ID], ","),
				Size:     len(rec.Words),
				StoredAt: rec.StoredAt,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Delete removes a program and every name pointing at it.
func (s *BoltStore) Delete(id types.ProgramID) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		programs := tx.Bucket(bucketPrograms)
		if programs.Get(id[:]) == nil {
			return ErrProgramNotFound
		}
		if err := programs.Delete(id[:]); err != nil {
			return err
		}

		// Collect first; deleting while iterating skips keys.
		names := tx.Bucket(bucketNames)
		var stale [][]byte
		err := names.ForEach(func(k, v []byte) error {
			if bytes.Equal(v, id[:]) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := names.Delete(k); err != nil {
				return err
			}
		}

		s.mu.RLock()
		count := s.count
		s.mu.RUnlock()
		if count > 0 {
			count--
		}
		return tx.Bucket(bucketMetadata).Put(keyProgramCount, encodeCount(count))
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.count > 0 {
		s.count--
	}
	s.mu.Unlock()

	log.Infof("deleted program %s", id)
	return nil
}

// Stats returns program store statistics.
func (s *BoltStore) Stats() (*Stats, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	stats := &Stats{ProgramCount: s.count}
	s.mu.RUnlock()

	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketNames); b != nil {
			stats.NameCount = uint64(b.Stats().KeyN)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Get database size.
	if info, err := os.Stat(s.config.Path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// Close shuts down the program store.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.db.Close()
}

func encodeCount(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)
	return key
}

func decodeCount(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Verify interface compliance.
var _ Store = (*BoltStore)(nil)
