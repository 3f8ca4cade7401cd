package util

// Batcher collects items and hands them out in fixed size batches.
type Batcher[T any] struct {
	size    int
	records []T
	total   int
}

// Add appends an item and returns a full batch when one is ready, otherwise nil.
func (b *Batcher[T]) Add(item T) []T {
	b.records = append(b.records, item)
	b.total++
	if len(b.records) >= b.size {
		return b.Flush()
	}
	return nil
}

// Flush returns the pending items and resets the batcher.
func (b *Batcher[T]) Flush() []T {
	records := b.records
	b.records = nil
	return records
}

// Len will return the number of records pending in the batcher.
func (b *Batcher[T]) Len() int {
	return len(b.records)
}

// Total returns the number of items added since creation.
func (b *Batcher[T]) Total() int {
	return b.total
}

// NewBatcher creates a new batcher which emits batches of size (at least 1).
func NewBatcher[T any](size int) *Batcher[T] {
	if size < 1 {
		size = 1
	}
	return &Batcher[T]{size: size}
}
