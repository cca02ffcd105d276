// Package tiered maps note denominations to per-denomination values, such as
// one aggregate public key per amount tier of the mint.
package tiered

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Amount is a value in millisatoshi.
type Amount uint64

// FromMsats returns an amount of msats millisatoshi.
func FromMsats(msats uint64) Amount { return Amount(msats) }

// FromSats returns an amount of sats satoshi.
func FromSats(sats uint64) Amount { return Amount(sats * 1000) }

// Msats returns the amount in millisatoshi.
func (a Amount) Msats() uint64 { return uint64(a) }

func (a Amount) String() string {
	return fmt.Sprintf("%d msat", uint64(a))
}

// InvalidAmountTierError is returned when looking up a denomination the mint
// does not issue.
type InvalidAmountTierError struct {
	Amount Amount
}

func (e InvalidAmountTierError) Error() string {
	return fmt.Sprintf("amount tier unknown to mint: %s", e.Amount)
}

// Tiered holds one value per denomination, iterated in ascending amount
// order. The zero value is an empty set ready to use.
type Tiered[T any] struct {
	m map[Amount]T
}

// FromMap copies m into a new Tiered.
func FromMap[T any](m map[Amount]T) Tiered[T] {
	t := Tiered[T]{m: make(map[Amount]T, len(m))}
	for a, v := range m {
		t.m[a] = v
	}
	return t
}

// Len returns the number of tiers.
func (t Tiered[T]) Len() int {
	return len(t.m)
}

// Tiers returns the denominations in ascending order.
func (t Tiered[T]) Tiers() []Amount {
	out := make([]Amount, 0, len(t.m))
	for a := range t.m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Values returns the values in ascending amount order.
func (t Tiered[T]) Values() []T {
	tiers := t.Tiers()
	out := make([]T, len(tiers))
	for i, a := range tiers {
		out[i] = t.m[a]
	}
	return out
}

// MaxTier returns the highest denomination, or false when empty.
func (t Tiered[T]) MaxTier() (Amount, bool) {
	var max Amount
	if len(t.m) == 0 {
		return 0, false
	}
	for a := range t.m {
		if a > max {
			max = a
		}
	}
	return max, true
}

// Get returns the value for amount a.
func (t Tiered[T]) Get(a Amount) (T, bool) {
	v, ok := t.m[a]
	return v, ok
}

// Tier is Get with an InvalidAmountTierError for unknown denominations.
func (t Tiered[T]) Tier(a Amount) (T, error) {
	v, ok := t.m[a]
	if !ok {
		return v, InvalidAmountTierError{Amount: a}
	}
	return v, nil
}

// Insert sets the value for a, returning the previous one if any.
func (t *Tiered[T]) Insert(a Amount, v T) (T, bool) {
	if t.m == nil {
		t.m = make(map[Amount]T)
	}
	old, ok := t.m[a]
	t.m[a] = v
	return old, ok
}

// Range calls fn for each tier in ascending order until fn returns false.
func (t Tiered[T]) Range(fn func(Amount, T) bool) {
	for _, a := range t.Tiers() {
		if !fn(a, t.m[a]) {
			return
		}
	}
}

// StructuralEq reports whether a and b have exactly the same denominations.
func StructuralEq[A, B any](a Tiered[A], b Tiered[B]) bool {
	if len(a.m) != len(b.m) {
		return false
	}
	for amt := range a.m {
		if _, ok := b.m[amt]; !ok {
			return false
		}
	}
	return true
}

// Map builds a Tiered with the same denominations by applying fn in
// ascending order. The first error aborts.
func Map[T, U any](t Tiered[T], fn func(Amount, T) (U, error)) (Tiered[U], error) {
	out := Tiered[U]{m: make(map[Amount]U, len(t.m))}
	for _, a := range t.Tiers() {
		u, err := fn(a, t.m[a])
		if err != nil {
			return Tiered[U]{}, fmt.Errorf("tier %s: %w", a, err)
		}
		out.m[a] = u
	}
	return out, nil
}

// GenDenominations returns the powers of base starting at 1 msat, up to and
// including max.
func GenDenominations(base uint16, max Amount) (Tiered[struct{}], error) {
	if base < 2 {
		return Tiered[struct{}]{}, fmt.Errorf("denomination base must be at least 2, got %d", base)
	}
	var out Tiered[struct{}]
	for d := Amount(1); d <= max; d *= Amount(base) {
		out.Insert(d, struct{}{})
		if d > max/Amount(base) {
			break
		}
	}
	return out, nil
}

// MarshalJSON encodes the tiers as an object keyed by decimal msat amounts.
func (t Tiered[T]) MarshalJSON() ([]byte, error) {
	obj := make(map[string]T, len(t.m))
	for a, v := range t.m {
		obj[strconv.FormatUint(uint64(a), 10)] = v
	}
	return json.Marshal(obj)
}

// UnmarshalJSON decodes an object keyed by decimal msat amounts.
func (t *Tiered[T]) UnmarshalJSON(data []byte) error {
	var obj map[string]T
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	m := make(map[Amount]T, len(obj))
	for k, v := range obj {
		a, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tier amount %q: %w", k, err)
		}
		m[Amount(a)] = v
	}
	t.m = m
	return nil
}
