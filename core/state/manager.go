package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"ideacapital/storage"
)

var (
	kvPrefix = []byte("kv/")

	errReadOnly  = errors.New("state: write in read-only transaction")
	errEmptyKey  = errors.New("kv: key must not be empty")
	errNilTx     = errors.New("state: transaction closed")
	errNilUpdate = errors.New("state: update function required")
)

// Manager owns the protocol state. Every mutating operation runs inside
// Update under a single writer lock; its writes and emitted events are
// buffered and land in one storage batch, so a failing operation leaves no
// trace. Reads run under View and never observe a half-applied update.
type Manager struct {
	db    storage.Database
	mu    sync.RWMutex
	nowFn func() time.Time

	subsMu  sync.Mutex
	subs    map[uint64]chan Record
	nextSub uint64
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:    db,
		nowFn: func() time.Time { return time.Now().UTC() },
		subs:  make(map[uint64]chan Record),
	}
}

// SetNowFunc overrides the clock used to stamp committed events. Nil restores
// the default UTC clock.
func (m *Manager) SetNowFunc(now func() time.Time) {
	if now == nil {
		m.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	m.nowFn = now
}

func kvKey(key []byte) []byte {
	hashed := ethcrypto.Keccak256(key)
	out := make([]byte, 0, len(kvPrefix)+len(hashed))
	out = append(out, kvPrefix...)
	return append(out, hashed...)
}

// View runs fn against a read-only transaction.
func (m *Manager) View(fn func(tx *Tx) error) error {
	if fn == nil {
		return errNilUpdate
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx := newTx(m, true)
	defer tx.close()
	return fn(tx)
}

// Update runs fn against a buffered transaction and commits its writes and
// events atomically when fn returns nil. The committed event records are
// returned in emission order.
func (m *Manager) Update(fn func(tx *Tx) error) ([]Record, error) {
	if fn == nil {
		return nil, errNilUpdate
	}
	m.mu.Lock()
	tx := newTx(m, false)
	if err := fn(tx); err != nil {
		tx.close()
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()
	records, err := m.commit(tx)
	tx.close()
	if err != nil {
		return nil, err
	}
	m.publish(records)
	return records, nil
}

func (m *Manager) commit(tx *Tx) ([]Record, error) {
	batch := storage.NewBatch()
	for key, value := range tx.writes {
		if value == nil {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), value)
	}
	records, err := m.appendEvents(batch, tx.events)
	if err != nil {
		return nil, err
	}
	if err := m.db.Write(batch); err != nil {
		return nil, fmt.Errorf("state: commit: %w", err)
	}
	return records, nil
}

func (m *Manager) get(hashed []byte) ([]byte, error) {
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}
