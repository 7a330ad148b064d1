package relay

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"

	"ideacapital/core/state"
)

// Digest fingerprints a record as BLAKE3 over its sequence number, type and
// attributes in key order. Every field is length prefixed.
func Digest(rec state.Record) string {
	buf := bytes.NewBuffer(nil)
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], rec.Seq)
	buf.Write(seq[:])
	if rec.Event != nil {
		writeDelimited(buf, []byte(rec.Event.Type))
		keys := rec.Event.SortedKeys()
		var count [4]byte
		binary.BigEndian.PutUint32(count[:], uint32(len(keys)))
		buf.Write(count[:])
		for _, k := range keys {
			writeDelimited(buf, []byte(k))
			writeDelimited(buf, []byte(rec.Event.Attributes[k]))
		}
	}
	sum := blake3.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func writeDelimited(buf *bytes.Buffer, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])
	buf.Write(data)
}
