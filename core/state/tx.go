package state

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"ideacapital/core/events"
	"ideacapital/core/types"
)

// Tx is a buffered view of state. Engines read and write through it via
// KVGet/KVPut; nothing reaches storage until the owning Update commits.
type Tx struct {
	m        *Manager
	readOnly bool
	writes   map[string][]byte
	events   []*types.Event
	closed   bool
}

func newTx(m *Manager, readOnly bool) *Tx {
	return &Tx{m: m, readOnly: readOnly, writes: make(map[string][]byte)}
}

func (tx *Tx) close() { tx.closed = true }

func (tx *Tx) raw(key []byte) ([]byte, error) {
	if tx == nil || tx.closed {
		return nil, errNilTx
	}
	if len(key) == 0 {
		return nil, errEmptyKey
	}
	hashed := kvKey(key)
	if value, ok := tx.writes[string(hashed)]; ok {
		return value, nil
	}
	return tx.m.get(hashed)
}

func (tx *Tx) writable() error {
	if tx == nil || tx.closed {
		return errNilTx
	}
	if tx.readOnly {
		return errReadOnly
	}
	return nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches storage.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if err := tx.writable(); err != nil {
		return err
	}
	if len(key) == 0 {
		return errEmptyKey
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	tx.writes[string(kvKey(key))] = encoded
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	data, err := tx.raw(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the key.
func (tx *Tx) KVDelete(key []byte) error {
	if err := tx.writable(); err != nil {
		return err
	}
	if len(key) == 0 {
		return errEmptyKey
	}
	tx.writes[string(kvKey(key))] = nil
	return nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (tx *Tx) KVAppend(key []byte, value []byte) error {
	if err := tx.writable(); err != nil {
		return err
	}
	var list [][]byte
	if _, err := tx.KVGet(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return tx.KVPut(key, list)
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice.
func (tx *Tx) KVGetList(key []byte, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("kv: destination must be a non-nil pointer")
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Slice {
		return fmt.Errorf("kv: destination must point to a slice")
	}
	found, err := tx.KVGet(key, out)
	if err != nil {
		return err
	}
	if !found {
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
	}
	return nil
}

// Emit buffers an event for the outbox. Tx satisfies events.Emitter so
// engines can be wired straight to it; events emitted by a failed update are
// discarded with its writes.
func (tx *Tx) Emit(evt events.Event) {
	if tx == nil || tx.closed || tx.readOnly {
		return
	}
	payload, ok := evt.(events.Payload)
	if !ok || payload.Event() == nil {
		return
	}
	src := payload.Event()
	attrs := make(map[string]string, len(src.Attributes))
	for k, v := range src.Attributes {
		attrs[k] = v
	}
	tx.events = append(tx.events, &types.Event{Type: src.Type, Attributes: attrs})
}

// Events returns the events buffered so far.
func (tx *Tx) Events() []*types.Event {
	out := make([]*types.Event, len(tx.events))
	copy(out, tx.events)
	return out
}
