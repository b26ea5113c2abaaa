// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package pagination parses page requests for the admin listings and builds
// the meta block that accompanies them.
package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

// Page bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
	FirstPage    = 1
)

// Params is a 1-indexed page request.
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of records skipped before this page.
func (p Params) Offset() int {
	return max(p.Page-1, 0) * p.Limit
}

// Meta describes the page returned next to the data.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

// NewMeta derives the page count for total records split by limit.
func NewMeta(page, limit, total int) Meta {
	meta := Meta{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	meta.HasNext = page < meta.TotalPages
	return meta
}

// FromRequest reads "page" and "limit" from the query string. See [Parse].
func FromRequest(request *http.Request) Params {
	return Parse(request.URL.Query())
}

// Parse reads "page" and "limit" from query.
//
// A missing or unparsable page falls back to [FirstPage]. A missing or
// unparsable limit falls back to [DefaultLimit]; a limit above [MaxLimit] is
// capped rather than discarded.
func Parse(query url.Values) Params {
	params := Params{Page: FirstPage, Limit: DefaultLimit}

	if page, err := strconv.Atoi(query.Get("page")); err == nil && page >= FirstPage {
		params.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		params.Limit = min(limit, MaxLimit)
	}

	return params
}
