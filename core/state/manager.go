package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"intentsettle/storage"
)

var errReadOnly = errors.New("state: write in read-only view")

// Manager owns the settlement key-value state. Every mutation runs inside
// Update, which stages writes in a journal and flushes them through a single
// storage batch, so a failing operation leaves the database untouched.
//
// Update calls are serialised. Callers must not invoke external collaborators
// (token transfers, AMM hosts) from inside the Update callback: a collaborator
// re-entering the manager would deadlock.
type Manager struct {
	db storage.Database
	mu sync.Mutex
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Update runs fn against a journaled transaction and commits the staged writes
// atomically when fn returns nil. Any error discards every staged write.
func (m *Manager) Update(fn func(tx *Tx) error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newTx(m.db, false)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// View runs fn against a read-only view of committed state.
func (m *Manager) View(fn func(tx *Tx) error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	return fn(newTx(m.db, true))
}

// Tx is a journal layered over the database. Reads observe staged writes made
// earlier in the same transaction.
type Tx struct {
	db       storage.Database
	readOnly bool
	writes   map[string][]byte
	deletes  map[string]struct{}
}

func newTx(db storage.Database, readOnly bool) *Tx {
	return &Tx{
		db:       db,
		readOnly: readOnly,
		writes:   make(map[string][]byte),
		deletes:  make(map[string]struct{}),
	}
}

// Staged reports how many keys the transaction would write on commit.
func (tx *Tx) Staged() int {
	return len(tx.writes) + len(tx.deletes)
}

func (tx *Tx) commit() error {
	if tx.Staged() == 0 {
		return nil
	}
	batch := tx.db.NewBatch()
	for key, value := range tx.writes {
		batch.Put([]byte(key), value)
	}
	for key := range tx.deletes {
		batch.Delete([]byte(key))
	}
	return batch.Write()
}

func (tx *Tx) getRaw(key []byte) ([]byte, bool, error) {
	k := string(key)
	if _, deleted := tx.deletes[k]; deleted {
		return nil, false, nil
	}
	if value, ok := tx.writes[k]; ok {
		return value, true, nil
	}
	value, err := tx.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// KVPut RLP-encodes value and stages it under key.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if tx.readOnly {
		return errReadOnly
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	k := string(key)
	delete(tx.deletes, k)
	tx.writes[k] = encoded
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := tx.getRaw(key)
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("kv: decode %q: %w", key, err)
	}
	return true, nil
}

// KVDelete stages the removal of key. Missing keys are ignored.
func (tx *Tx) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if tx.readOnly {
		return errReadOnly
	}
	k := string(key)
	delete(tx.writes, k)
	tx.deletes[k] = struct{}{}
	return nil
}
