package core

import (
	"cmp"
	"slices"
)

// entry is a single value with a deterministic position. Lower Order values
// come first.
type entry[T any] struct {
	Value T
	Order int
}

// OrderedBuilder collects values and returns them sorted by order, keeping
// registration order for equal orders.
type OrderedBuilder[T any] struct {
	entries []entry[T]
}

// Add registers v at the given order.
func (b *OrderedBuilder[T]) Add(order int, v T) {
	b.entries = append(b.entries, entry[T]{Value: v, Order: order})
}

// Len reports the number of registered values.
func (b *OrderedBuilder[T]) Len() int {
	return len(b.entries)
}

// Build returns the registered values sorted by order (stable).
func (b *OrderedBuilder[T]) Build() []T {
	sorted := slices.Clone(b.entries)
	slices.SortStableFunc(sorted, func(a, c entry[T]) int {
		return cmp.Compare(a.Order, c.Order)
	})

	out := make([]T, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, e.Value)
	}
	return out
}
