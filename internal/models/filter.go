package models

import (
	"fmt"
	"sort"
	"strings"
)

// SortKey is a field the query layer can sort Analyses by.
type SortKey string

const (
	SortByMarketCap           SortKey = "market_cap"
	SortByPriceChangePercent  SortKey = "price_change_percent"
	SortByRSI                 SortKey = "rsi"
	SortByPrice               SortKey = "price"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Filter describes a query over the current store snapshot.
type Filter struct {
	MinPrice     *float64
	MaxPrice     *float64
	MinRSI       *float64
	MaxRSI       *float64
	MinMarketCap *float64
	MaxMarketCap *float64
	MinVolume    *int64
	Sectors      []string
	OnlyOversold bool
	OnlyOverbought bool
	SortBy       SortKey
	SortOrder    SortOrder
	Page         int
	PageSize     int
}

// Canonicalize normalizes a Filter per §4.7 step 1: sorts the sector set,
// clamps page/page_size, and defaults the sort to market_cap desc.
func (f Filter) Canonicalize() Filter {
	cf := f

	if cf.SortBy == "" {
		cf.SortBy = SortByMarketCap
	}
	if cf.SortOrder == "" {
		cf.SortOrder = SortDesc
	}
	if cf.Page < 1 {
		cf.Page = 1
	}
	if cf.PageSize < 1 {
		cf.PageSize = DefaultPageSize
	}
	if cf.PageSize > MaxPageSize {
		cf.PageSize = MaxPageSize
	}

	if len(cf.Sectors) > 0 {
		sectors := make([]string, len(cf.Sectors))
		copy(sectors, cf.Sectors)
		sort.Strings(sectors)
		cf.Sectors = sectors
	}

	return cf
}

// CacheKey is a deterministic string key for the query cache. It assumes the
// Filter has already been canonicalized.
func (f Filter) CacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sort=%s:%s|page=%d:%d", f.SortBy, f.SortOrder, f.Page, f.PageSize)
	fmt.Fprintf(&b, "|price=%s:%s", floatPtrStr(f.MinPrice), floatPtrStr(f.MaxPrice))
	fmt.Fprintf(&b, "|rsi=%s:%s", floatPtrStr(f.MinRSI), floatPtrStr(f.MaxRSI))
	fmt.Fprintf(&b, "|mcap=%s:%s", floatPtrStr(f.MinMarketCap), floatPtrStr(f.MaxMarketCap))
	fmt.Fprintf(&b, "|vol=%s", intPtrStr(f.MinVolume))
	fmt.Fprintf(&b, "|sectors=%s", strings.Join(f.Sectors, ","))
	fmt.Fprintf(&b, "|oversold=%v|overbought=%v", f.OnlyOversold, f.OnlyOverbought)
	return b.String()
}

func floatPtrStr(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *p)
}

func intPtrStr(p *int64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}

// Pagination describes the page returned by a Filter query.
type Pagination struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// FilterResult is the materialized answer to a Filter query.
type FilterResult struct {
	Stocks     []Analysis
	Pagination Pagination
	Cached     bool
}

// HeatmapCell is a per-sector rollup over the current store snapshot.
type HeatmapCell struct {
	Sector         string
	SymbolCount    int
	AverageRSI     *float64
	OversoldCount  int
	OverboughtCount int
}
