// Package pagination slices ordered result sets into fixed-size pages.
package pagination

import (
	"context"
	"strconv"
	"strings"
)

// DefaultPageSize is used when a caller passes a non-positive size.
const DefaultPageSize = 10

// Page is one page of an ordered collection.
type Page[T any] struct {
	Items    []T
	Number   int
	Size     int
	Total    int64
	NumPages int
}

// HasPrevious reports whether a page precedes this one.
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a page follows this one.
func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

// HasOtherPages reports whether the collection spans more than one page.
func (p *Page[T]) HasOtherPages() bool { return p.NumPages > 1 }

// PreviousNumber returns the previous page number.
func (p *Page[T]) PreviousNumber() int { return p.Number - 1 }

// NextNumber returns the next page number.
func (p *Page[T]) NextNumber() int { return p.Number + 1 }

// Range returns 1..NumPages for rendering page links.
func (p *Page[T]) Range() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// NumPages returns how many pages total items span. An empty collection still has one page.
func NumPages(total int64, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}

// ParseNumber reads a ?page= value. Anything that is not a positive integer means page 1.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Clamp bounds number to [1, numPages].
func Clamp(number, numPages int) int {
	if number < 1 {
		return 1
	}
	if number > numPages {
		return numPages
	}
	return number
}

// Bounds returns the clamped page number and the [offset, offset+size) window for it.
func Bounds(raw string, total int64, size int) (number, offset int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	number = Clamp(ParseNumber(raw), NumPages(total, size))
	return number, (number - 1) * size
}

// Counter returns the total size of the collection.
type Counter func(ctx context.Context) (int64, error)

// Lister returns the items in [offset, offset+limit).
type Lister[T any] func(ctx context.Context, limit, offset int) ([]T, error)

// Fetch counts the collection, clamps the requested page into range and loads that page.
func Fetch[T any](ctx context.Context, raw string, size int, count Counter, list Lister[T]) (*Page[T], error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	total, err := count(ctx)
	if err != nil {
		return nil, err
	}

	number, offset := Bounds(raw, total, size)
	page := &Page[T]{
		Number:   number,
		Size:     size,
		Total:    total,
		NumPages: NumPages(total, size),
	}
	if total == 0 {
		return page, nil
	}

	items, err := list(ctx, size, offset)
	if err != nil {
		return nil, err
	}
	page.Items = items
	return page, nil
}
