package tiered

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNonCanonical is returned by Decode for input that no Encode call
// produces.
var ErrNonCanonical = errors.New("tiered: non-canonical encoding")

// maxTiers bounds decoding allocations. 64 powers of two already exceed
// the uint64 range.
const maxTiers = 64

// Encode writes the tier count followed by each (amount, value) pair in
// ascending amount order. Counts and lengths are uvarints, amounts are
// big-endian uint64.
func Encode[T encoding.BinaryMarshaler](t Tiered[T]) ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(t.Len()))
	for _, a := range t.Tiers() {
		v, err := t.m[a].MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("tier %s: %w", a, err)
		}
		buf = binary.BigEndian.AppendUint64(buf, uint64(a))
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, v...)
	}
	return buf, nil
}

// Decode parses the output of Encode. Amounts must be strictly ascending and
// the input fully consumed.
func Decode[T any, PT interface {
	*T
	encoding.BinaryUnmarshaler
}](data []byte) (Tiered[T], error) {
	count, n := uvarint(data)
	if n <= 0 {
		return Tiered[T]{}, fmt.Errorf("%w: bad tier count", ErrNonCanonical)
	}
	if count > maxTiers {
		return Tiered[T]{}, fmt.Errorf("%w: %d tiers exceeds %d", ErrNonCanonical, count, maxTiers)
	}
	data = data[n:]

	out := Tiered[T]{m: make(map[Amount]T, count)}
	var prev Amount
	for i := uint64(0); i < count; i++ {
		if len(data) < 8 {
			return Tiered[T]{}, fmt.Errorf("%w: truncated amount", ErrNonCanonical)
		}
		a := Amount(binary.BigEndian.Uint64(data))
		data = data[8:]
		if i > 0 && a <= prev {
			return Tiered[T]{}, fmt.Errorf("%w: amounts not strictly ascending", ErrNonCanonical)
		}
		prev = a

		size, n := uvarint(data)
		if n <= 0 || size > uint64(len(data)-n) {
			return Tiered[T]{}, fmt.Errorf("%w: truncated value for tier %s", ErrNonCanonical, a)
		}
		data = data[n:]

		var v T
		if err := PT(&v).UnmarshalBinary(data[:size]); err != nil {
			return Tiered[T]{}, fmt.Errorf("tier %s: %w", a, err)
		}
		data = data[size:]
		out.m[a] = v
	}
	if len(data) != 0 {
		return Tiered[T]{}, fmt.Errorf("%w: %d trailing bytes", ErrNonCanonical, len(data))
	}
	return out, nil
}

// uvarint is binary.Uvarint rejecting padded encodings.
func uvarint(data []byte) (uint64, int) {
	v, n := binary.Uvarint(data)
	if n > 0 && n != len(binary.AppendUvarint(nil, v)) {
		return 0, -1
	}
	return v, n
}
