// Package table provides an array-backed ordered sequence whose ordering,
// lookup and serialization behaviour is supplied by the caller as functions.
package table

import (
	"io"
	"slices"
)

// Compare returns a negative number when a sorts before b, zero when they
// are equivalent and a positive number otherwise.
type Compare[T any] func(a, b T) int

// Encoder writes one element.
type Encoder[T any] func(w io.Writer, v T) error

// Decoder reads one element.
type Decoder[T any] func(r io.Reader) (T, error)

type Table[T any] struct {
	items []T
}

func New[T any](capacity int) *Table[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Table[T]{items: make([]T, 0, capacity)}
}

// From wraps items without copying them.
func From[T any](items []T) *Table[T] {
	return &Table[T]{items: items}
}

func (t *Table[T]) Push(v T) {
	t.items = append(t.items, v)
}

func (t *Table[T]) Len() int {
	return len(t.items)
}

func (t *Table[T]) At(i int) T {
	return t.items[i]
}

func (t *Table[T]) Set(i int, v T) {
	t.items[i] = v
}

// Items exposes the backing slice. Callers must not append to it.
func (t *Table[T]) Items() []T {
	return t.items
}

func (t *Table[T]) Clone() *Table[T] {
	return &Table[T]{items: slices.Clone(t.items)}
}

// Sort orders the table in place. Equal elements keep their relative order.
func (t *Table[T]) Sort(cmp Compare[T]) {
	slices.SortStableFunc(t.items, cmp)
}

func (t *Table[T]) IsSorted(cmp Compare[T]) bool {
	return slices.IsSortedFunc(t.items, cmp)
}

// Search binary searches a table sorted consistently with cmp. It returns
// the index of the match, or the insertion point and false.
func Search[T, K any](t *Table[T], key K, cmp func(v T, key K) int) (int, bool) {
	return slices.BinarySearchFunc(t.items, key, cmp)
}

// FirstDuplicate returns the index of the first element equal to its
// predecessor in a sorted table, or -1.
func (t *Table[T]) FirstDuplicate(cmp Compare[T]) int {
	for i := 1; i < len(t.items); i++ {
		if cmp(t.items[i-1], t.items[i]) == 0 {
			return i
		}
	}
	return -1
}

// Encode writes every element with enc, in order.
func (t *Table[T]) Encode(w io.Writer, enc Encoder[T]) error {
	for _, v := range t.items {
		if err := enc(w, v); err != nil {
			return err
		}
	}
	return nil
}

// decodePrealloc caps the capacity reserved from an untrusted count.
const decodePrealloc = 1024

// Decode reads n elements with dec into a new table.
func Decode[T any](r io.Reader, n int, dec Decoder[T]) (*Table[T], error) {
	t := New[T](min(n, decodePrealloc))
	for i := 0; i < n; i++ {
		v, err := dec(r)
		if err != nil {
			return nil, err
		}
		t.Push(v)
	}
	return t, nil
}
