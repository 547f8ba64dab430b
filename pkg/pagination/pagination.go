// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package pagination provides shared types and helpers for list views.
//
// # Overview
//
// The backend returns complete lists, so pages are cut in memory. This package
// standardizes how the page is requested via query parameters and how the
// resulting metadata is delivered in the response envelope.
package pagination

import (
	"math"
	"net/http"
	"slices"
	"strconv"
)

const (
	// MaxLimit is the upper bound for items per page to prevent abuse.
	MaxLimit = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
	// MaxPage is the highest page a request can ask for.
	MaxPage = math.MaxInt32
)

// Params holds the parsed page and limit from a request's query string.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the slice offset derived from [Page] and [Limit].
//
// An offset that does not fit in an int saturates at [math.MaxInt], which is
// past the end of any list.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination metadata included in list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta constructs pagination metadata for a response.
//
// TotalPages is never below 1, so an empty list still renders as "page 1 of 1".
func NewMeta(page, limit, total int) Meta {
	totalPages := 1
	if limit > 0 && total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// FromRequest parses "page" and "limit" query parameters from an HTTP request.
//
// # Clamping
//
// Invalid or negative pages become [DefaultPage] and pages above [MaxPage]
// become MaxPage; an invalid, negative, or excessive limit becomes
// defaultLimit.
func FromRequest(r *http.Request, defaultLimit int) Params {
	page := parseIntParam(r, "page", DefaultPage)
	limit := parseIntParam(r, "limit", defaultLimit)

	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}

	if limit < 1 || limit > MaxLimit {
		limit = defaultLimit
	}

	return Params{Page: page, Limit: limit}
}

// Window cuts the requested page out of a complete list.
//
// A page past the end yields an empty (non-nil) slice with correct metadata.
func Window[T any](items []T, params Params) ([]T, Meta) {
	meta := NewMeta(params.Page, params.Limit, len(items))

	start := params.Offset()
	if start >= len(items) {
		return []T{}, meta
	}

	end := len(items)
	if params.Limit < end-start {
		end = start + params.Limit
	}

	return items[start:end], meta
}

// Gap marks elided pages in the output of [Links].
const Gap = 0

// Links returns the page numbers a pager shows: the first and last page plus
// the neighbours of the current one, with [Gap] wherever pages are skipped.
//
// # Example
//
//	Links(Meta{Page: 5, TotalPages: 9}) // [1 0 4 5 6 0 9]
func Links(meta Meta) []int {
	last := meta.TotalPages
	if last < 1 {
		last = 1
	}

	candidates := []int{1, meta.Page - 1, meta.Page, meta.Page + 1, last}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	links := []int{}
	previous := 0
	for _, page := range candidates {
		if page < 1 || page > last {
			continue
		}
		if page-previous > 1 {
			links = append(links, Gap)
		}
		links = append(links, page)
		previous = page
	}
	return links
}

// parseIntParam parses a single integer query parameter with a fallback default.
func parseIntParam(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}

	return n
}
