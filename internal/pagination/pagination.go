package pagination

import (
	"math"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Params is a 1-based page of at most Limit records.
type Params struct {
	Page  int
	Limit int
}

// New clamps page and limit to >= 1 and limit to maxLimit when maxLimit > 0.
// page is capped so Offset cannot overflow.
func New(page, limit, maxLimit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return Params{Page: page, Limit: limit}
}

// Parse reads raw query values. Missing or non-numeric values take the defaults.
func Parse(rawPage, rawLimit string, maxLimit int) Params {
	return New(atoi(rawPage, DefaultPage), atoi(rawLimit, DefaultLimit), maxLimit)
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func NewPage[T any](items []T, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: p.Page, Limit: p.Limit}
}

func atoi(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
