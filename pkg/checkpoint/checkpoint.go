// Package checkpoint persists suspended IntCode machines in BadgerDB so a
// session can stop while awaiting input and continue in a later process.
package checkpoint

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.checkpoint")

var (
	// ErrCheckpointNotFound is returned when a checkpoint doesn't exist.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("checkpoint store closed")

	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("checkpoint corrupt")

	// ErrInvalidID is returned for empty checkpoint IDs.
	ErrInvalidID = errors.New("invalid checkpoint id")
)

// prefixCheckpoint is the key prefix for checkpoints.
// Key format: prefixCheckpoint + session id
var prefixCheckpoint = []byte{0x01}

// Config contains configuration for the checkpoint store.
type Config struct {
	// Path is the directory path for the database.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites ensures writes are synced to disk.
	SyncWrites bool

	// Verbose routes BadgerDB's own logging through the package logger.
	Verbose bool
}

// DefaultConfig returns default configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		InMemory:   false,
		SyncWrites: true,
		Verbose:    false,
	}
}

// Info describes a stored checkpoint.
type Info struct {
	ID     string
	Status intcode.Status
	IP     int64
	Steps  uint64
	Size   int // Encoded bytes
}

// Store is a BadgerDB-backed checkpoint store.
type Store struct {
	db *badger.DB

	// mu serializes writers so Save and Delete see a consistent view.
	mu sync.Mutex

	closed atomic.Bool
}

// Open opens a checkpoint store.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)
	if cfg.Verbose {
		opts = opts.WithLogger(commonlog.GetLogger("intcode.checkpoint.badger"))
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func checkpointKey(id string) []byte {
	key := make([]byte, 0, len(prefixCheckpoint)+len(id))
	key = append(key, prefixCheckpoint...)
	return append(key, id...)
}

// Save stores s under id, replacing any earlier checkpoint.
func (st *Store) Save(id string, s *intcode.State) error {
	if st.closed.Load() {
		return ErrClosed
	}
	if id == "" {
		return ErrInvalidID
	}

	data, err := Encode(s)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	err = st.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(id), data)
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %q: %w", id, err)
	}

	log.Infof("saved checkpoint %q: %s at %d after %d steps (%d bytes)", id, s.Status, s.IP, s.Steps, len(data))
	return nil
}

// SaveMachine stores the current state of m under id.
func (st *Store) SaveMachine(id string, m *intcode.Machine) error {
	return st.Save(id, m.State())
}

// Load retrieves the checkpoint stored under id.
func (st *Store) Load(id string) (*intcode.State, error) {
	if st.closed.Load() {
		return nil, ErrClosed
	}

	var s *intcode.State
	err := st.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %q", ErrCheckpointNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			s, err = Decode(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadMachine rebuilds the machine stored under id.
func (st *Store) LoadMachine(id string) (*intcode.Machine, error) {
	s, err := st.Load(id)
	if err != nil {
		return nil, err
	}
	return intcode.Restore(s)
}

// Has reports whether a checkpoint exists for id.
func (st *Store) Has(id string) (bool, error) {
	if st.closed.Load() {
		return false, ErrClosed
	}

	err := st.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(checkpointKey(id))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

// Delete removes the checkpoint stored under id.
func (st *Store) Delete(id string) error {
	if st.closed.Load() {
		return ErrClosed
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	return st.db.Update(func(txn *badger.Txn) error {
		key := checkpointKey(id)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %q", ErrCheckpointNotFound, id)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// List returns every checkpoint in id order.
func (st *Store) List() ([]Info, error) {
	if st.closed.Load() {
		return nil, ErrClosed
	}

	var infos []Info
	err := st.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixCheckpoint
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefixCheckpoint):])

			err := item.Value(func(val []byte) error {
				s, err := Decode(val)
				if err != nil {
					return fmt.Errorf("checkpoint %q: %w", id, err)
				}
				infos = append(infos, Info{
					ID:     id,
					Status: s.Status,
					IP:     s.IP,
					Steps:  s.Steps,
					Size:   len(val),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Close closes the store.
func (st *Store) Close() error {
	if st.closed.Swap(true) {
		return nil
	}
	return st.db.Close()
}
