// Package store provides query building helpers shared by the gorm stores.
package store

import (
	"gorm.io/gorm"
)

const (
	defaultLimit = -1
	// MaxPageSize caps page sizes requested by callers.
	MaxPageSize = 100
)

// Where builds gorm query conditions.
type Where interface {
	Where(tx *gorm.DB) *gorm.DB
}

// Option configures an Options value.
type Option func(*Options)

// Options holds paging and equality filters.
type Options struct {
	// Offset is the start position of the query. Zero means no offset.
	Offset int `json:"offset"`
	// Limit is the maximum number of rows; -1 means no limit.
	Limit int `json:"limit"`
	// Filters are equality conditions keyed by column.
	Filters map[any]any
}

// WithPage converts a 1-based page number and size into offset and limit.
func WithPage(page int, pageSize int) Option {
	return func(whr *Options) {
		if page <= 0 {
			page = 1
		}
		if pageSize <= 0 {
			pageSize = defaultLimit
		}
		if pageSize > MaxPageSize {
			pageSize = MaxPageSize
		}
		whr.Offset = (page - 1) * pageSize
		if pageSize == defaultLimit {
			whr.Offset = 0
		}
		whr.Limit = pageSize
	}
}

// WithFilter merges equality conditions.
func WithFilter(filter map[any]any) Option {
	return func(whr *Options) {
		for k, v := range filter {
			whr.Filters[k] = v
		}
	}
}

// NewWhere constructs Options from the given options.
func NewWhere(opts ...Option) *Options {
	whr := &Options{
		Limit:   defaultLimit,
		Filters: map[any]any{},
	}

	for _, opt := range opts {
		opt(whr)
	}

	return whr
}

// F adds equality conditions from key/value pairs. An odd number of
// arguments is ignored.
func (whr *Options) F(kvs ...any) *Options {
	if len(kvs)%2 != 0 {
		return whr
	}

	for i := 0; i < len(kvs); i += 2 {
		whr.Filters[kvs[i]] = kvs[i+1]
	}

	return whr
}

// Where applies the filters and paging to tx.
func (whr *Options) Where(tx *gorm.DB) *gorm.DB {
	return whr.Count(tx).Offset(whr.Offset).Limit(whr.Limit)
}

// Count applies the filters but not paging, for total counts of paged
// listings.
func (whr *Options) Count(tx *gorm.DB) *gorm.DB {
	if len(whr.Filters) == 0 {
		return tx
	}
	return tx.Where(whr.Filters)
}

// P is a convenience function to create Options with paging.
func P(page int, pageSize int) *Options {
	return NewWhere(WithPage(page, pageSize))
}

// F is a convenience function to create Options with filters.
func F(kvs ...any) *Options {
	return NewWhere().F(kvs...)
}
