package state

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"ideacapital/core/types"
	"ideacapital/storage"
)

var (
	eventPrefix = []byte("outbox/evt/")
	eventSeqKey = []byte("outbox/seq")
)

// Record is a committed event together with its position in the outbox.
// Sequence numbers start at 1 and have no gaps.
type Record struct {
	Seq   uint64       `json:"seq"`
	Time  time.Time    `json:"time"`
	Event *types.Event `json:"event"`
}

type storedEvent struct {
	Seq    uint64
	UnixMs uint64
	Type   string
	Keys   []string
	Values []string
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], seq)
	return key
}

func (m *Manager) lastSeq() (uint64, error) {
	data, err := m.db.Get(eventSeqKey)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.New("state: corrupt outbox sequence")
	}
	return binary.BigEndian.Uint64(data), nil
}

// LatestSeq returns the sequence number of the newest committed event.
func (m *Manager) LatestSeq() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeq()
}

func (m *Manager) appendEvents(batch *storage.Batch, evts []*types.Event) ([]Record, error) {
	if len(evts) == 0 {
		return nil, nil
	}
	seq, err := m.lastSeq()
	if err != nil {
		return nil, err
	}
	now := m.nowFn().UTC().Truncate(time.Millisecond)
	records := make([]Record, 0, len(evts))
	for _, evt := range evts {
		seq++
		stored := storedEvent{Seq: seq, UnixMs: uint64(now.UnixMilli()), Type: evt.Type}
		for _, k := range evt.SortedKeys() {
			stored.Keys = append(stored.Keys, k)
			stored.Values = append(stored.Values, evt.Attributes[k])
		}
		encoded, err := rlp.EncodeToBytes(&stored)
		if err != nil {
			return nil, err
		}
		batch.Put(eventKey(seq), encoded)
		records = append(records, Record{Seq: seq, Time: now, Event: evt})
	}
	seqBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBuf, seq)
	batch.Put(eventSeqKey, seqBuf)
	return records, nil
}

func decodeRecord(data []byte) (Record, error) {
	var stored storedEvent
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return Record{}, err
	}
	attrs := make(map[string]string, len(stored.Keys))
	for i, k := range stored.Keys {
		if i < len(stored.Values) {
			attrs[k] = stored.Values[i]
		}
	}
	return Record{
		Seq:   stored.Seq,
		Time:  time.UnixMilli(int64(stored.UnixMs)).UTC(),
		Event: &types.Event{Type: stored.Type, Attributes: attrs},
	}, nil
}

// EventsSince returns up to limit committed events with a sequence number
// greater than after, oldest first. A non-positive limit means no limit.
func (m *Manager) EventsSince(after uint64, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := make([]byte, 8)
	binary.BigEndian.PutUint64(start, after+1)
	var (
		out    []Record
		decErr error
	)
	err := m.db.Iterate(eventPrefix, start, func(_, value []byte) bool {
		rec, err := decodeRecord(value)
		if err != nil {
			decErr = err
			return false
		}
		out = append(out, rec)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	if decErr != nil {
		return nil, decErr
	}
	return out, nil
}

// Subscribe registers a live feed of committed events. The channel is closed
// when cancel is called or when the subscriber falls more than buffer events
// behind; a closed feed should resume from EventsSince.
func (m *Manager) Subscribe(buffer int) (<-chan Record, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Record, buffer)
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subsMu.Unlock()
	cancel := func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if existing, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (m *Manager) publish(records []Record) {
	if len(records) == 0 {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for id, ch := range m.subs {
		for _, rec := range records {
			select {
			case ch <- rec:
				continue
			default:
			}
			delete(m.subs, id)
			close(ch)
			break
		}
	}
}
