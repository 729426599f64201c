package witness

import (
	"encoding/binary"
	"fmt"

	"github.com/blockberries/rollberry/types"
)

// Wire format, all integers big-endian:
//
//	u32 entry count
//	per entry: u32 keyLen || key || u8 presence || [u32 valLen || value]
//
// The value fields are omitted entirely for absent keys. The format is
// byte-deterministic and strictly order-preserving; decode rejects
// trailing bytes.

const (
	presenceAbsent  = 0x00
	presencePresent = 0x01
)

// Encode serializes a witness to its wire format.
func Encode(w *Witness) []byte {
	size := 4
	for _, e := range w.entries {
		size += 4 + len(e.Key) + 1
		if e.Present {
			size += 4 + len(e.Value)
		}
	}

	buf := make([]byte, 0, size)
	var scratch [4]byte

	binary.BigEndian.PutUint32(scratch[:], uint32(len(w.entries)))
	buf = append(buf, scratch[:]...)

	for _, e := range w.entries {
		binary.BigEndian.PutUint32(scratch[:], uint32(len(e.Key)))
		buf = append(buf, scratch[:]...)
		buf = append(buf, e.Key...)

		if e.Present {
			buf = append(buf, presencePresent)
			binary.BigEndian.PutUint32(scratch[:], uint32(len(e.Value)))
			buf = append(buf, scratch[:]...)
			buf = append(buf, e.Value...)
		} else {
			buf = append(buf, presenceAbsent)
		}
	}
	return buf
}

// Decode deserializes a witness from its wire format.
// Returns types.ErrWitnessCorrupt for truncated input, unknown presence
// markers, or trailing bytes.
func Decode(data []byte) (*Witness, error) {
	r := reader{data: data}

	count, err := r.uint32("entry count")
	if err != nil {
		return nil, err
	}

	// A valid entry takes at least 5 bytes on the wire, which bounds how
	// many the remaining input can hold. The count field alone is never
	// trusted for allocation.
	capHint := int(count)
	if limit := (len(data) - 4) / 5; capHint > limit {
		capHint = limit
	}

	entries := make([]Entry, 0, capHint)
	for i := uint32(0); i < count; i++ {
		keyLen, err := r.uint32("key length")
		if err != nil {
			return nil, err
		}
		key, err := r.bytes(int(keyLen), "key")
		if err != nil {
			return nil, err
		}

		marker, err := r.byte("presence")
		if err != nil {
			return nil, err
		}

		entry := Entry{Key: types.StorageKey(key)}
		switch marker {
		case presencePresent:
			valLen, err := r.uint32("value length")
			if err != nil {
				return nil, err
			}
			value, err := r.bytes(int(valLen), "value")
			if err != nil {
				return nil, err
			}
			entry.Value = types.StorageValue(value)
			entry.Present = true
		case presenceAbsent:
		default:
			return nil, fmt.Errorf("entry %d: presence marker 0x%02x: %w", i, marker, types.ErrWitnessCorrupt)
		}
		entries = append(entries, entry)
	}

	if len(r.data) != r.pos {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(r.data)-r.pos, types.ErrWitnessCorrupt)
	}
	return FromEntries(entries), nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) uint32(what string) (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("truncated %s: %w", what, types.ErrWitnessCorrupt)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) byte(what string) (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("truncated %s: %w", what, types.ErrWitnessCorrupt)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int, what string) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("truncated %s: %w", what, types.ErrWitnessCorrupt)
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}
