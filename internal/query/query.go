// Package query implements the read path over the current store snapshot:
// filter canonicalization, predicate pipeline, sort, pagination, and the
// sector heatmap rollup described in §4.7/§4.9.
package query

import (
	"context"
	"math"
	"sort"

	"marketanalysis/internal/cache"
	"marketanalysis/internal/models"
	"marketanalysis/internal/store"
)

// unclassifiedSector is the bucket symbols with no sector metadata fall
// into in the heatmap rollup.
const unclassifiedSector = "Unclassified"

// Engine answers Filter and Heatmap queries against a Store, backed by the
// query cache.
type Engine struct {
	store store.Store
	cache *cache.Cache
}

// New builds a query Engine over the given store and cache.
func New(st store.Store, c *cache.Cache) *Engine {
	return &Engine{store: st, cache: c}
}

// Filter canonicalizes f, serves from the query cache on a hit, and
// otherwise materializes a snapshot, filters, sorts, paginates, and caches
// the result before returning it.
func (e *Engine) Filter(ctx context.Context, f models.Filter) (models.FilterResult, error) {
	cf := f.Canonicalize()
	key := cf.CacheKey()

	if cached, ok := e.cache.GetQuery(key); ok {
		cached.Cached = true
		return cached, nil
	}

	all, err := e.store.All(ctx)
	if err != nil {
		return models.FilterResult{}, err
	}

	filtered := make([]models.Analysis, 0, len(all))
	for _, a := range all {
		if matches(a, cf) {
			filtered = append(filtered, a)
		}
	}

	sortAnalyses(filtered, cf.SortBy, cf.SortOrder)
	result := paginate(filtered, cf.Page, cf.PageSize)
	result.Cached = false

	e.cache.PutQuery(key, result)
	return result, nil
}

// Get answers the single-symbol endpoint, preferring the symbol cache and
// falling back to the store on a miss.
func (e *Engine) Get(ctx context.Context, symbol string) (*models.Analysis, error) {
	if a, ok := e.cache.GetSymbol(symbol); ok {
		return &a, nil
	}
	return e.store.Get(ctx, symbol)
}

// Heatmap rolls the current snapshot up by sector. Symbols with no sector
// are grouped under unclassifiedSector. Cells are returned sorted by
// sector name for determinism; it is not itself cached, since it is cheap
// relative to the store.All scan it shares with Filter.
func (e *Engine) Heatmap(ctx context.Context) ([]models.HeatmapCell, error) {
	all, err := e.store.All(ctx)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		count, oversold, overbought int
		rsiSum                      float64
		rsiCount                    int
	}

	bySector := make(map[string]*bucket)
	for _, a := range all {
		sector := unclassifiedSector
		if a.Sector != nil && *a.Sector != "" {
			sector = *a.Sector
		}

		b, ok := bySector[sector]
		if !ok {
			b = &bucket{}
			bySector[sector] = b
		}
		b.count++
		if a.IsOversold {
			b.oversold++
		}
		if a.IsOverbought {
			b.overbought++
		}
		if a.RSI != nil {
			b.rsiSum += *a.RSI
			b.rsiCount++
		}
	}

	sectors := make([]string, 0, len(bySector))
	for sector := range bySector {
		sectors = append(sectors, sector)
	}
	sort.Strings(sectors)

	cells := make([]models.HeatmapCell, 0, len(sectors))
	for _, sector := range sectors {
		b := bySector[sector]
		cell := models.HeatmapCell{
			Sector:          sector,
			SymbolCount:     b.count,
			OversoldCount:   b.oversold,
			OverboughtCount: b.overbought,
		}
		if b.rsiCount > 0 {
			avg := b.rsiSum / float64(b.rsiCount)
			cell.AverageRSI = &avg
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// matches applies the predicate pipeline in the order the component design
// specifies: price, volume, market cap, then RSI bounds OR the
// oversold/overbought toggles — the toggles take precedence over the RSI
// bounds when set, rather than being ANDed with them, since a caller
// combining e.g. only_oversold with an explicit max_rsi=80 almost always
// means "oversold symbols" and not a doubly-redundant range.
func matches(a models.Analysis, f models.Filter) bool {
	if f.MinPrice != nil && a.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && a.Price > *f.MaxPrice {
		return false
	}
	if f.MinVolume != nil && (a.Volume == nil || *a.Volume < *f.MinVolume) {
		return false
	}
	if f.MinMarketCap != nil && (a.MarketCap == nil || *a.MarketCap < *f.MinMarketCap) {
		return false
	}
	if f.MaxMarketCap != nil && (a.MarketCap == nil || *a.MarketCap > *f.MaxMarketCap) {
		return false
	}

	if f.OnlyOversold || f.OnlyOverbought {
		if !((f.OnlyOversold && a.IsOversold) || (f.OnlyOverbought && a.IsOverbought)) {
			return false
		}
	} else {
		if f.MinRSI != nil && (a.RSI == nil || *a.RSI < *f.MinRSI) {
			return false
		}
		if f.MaxRSI != nil && (a.RSI == nil || *a.RSI > *f.MaxRSI) {
			return false
		}
	}

	if len(f.Sectors) > 0 {
		if a.Sector == nil || !containsSector(f.Sectors, *a.Sector) {
			return false
		}
	}

	return true
}

func containsSector(sectors []string, sector string) bool {
	for _, s := range sectors {
		if s == sector {
			return true
		}
	}
	return false
}

// sortAnalyses sorts in place by key/order, breaking ties by symbol
// ascending so repeated queries over an unchanged snapshot are
// deterministic.
func sortAnalyses(list []models.Analysis, key models.SortKey, order models.SortOrder) {
	sort.SliceStable(list, func(i, j int) bool {
		vi, vj := sortValue(list[i], key), sortValue(list[j], key)
		if vi == vj {
			return list[i].Symbol < list[j].Symbol
		}
		if order == models.SortDesc {
			return vi > vj
		}
		return vi < vj
	})
}

// sortValue extracts the comparable value for a sort key. A nil indicator
// sorts as negative infinity, pushing symbols lacking that field to the
// low end regardless of direction. price_change_percent has no backing
// field (the store keeps no historical snapshot to diff against), so it
// falls back to price, the closest available proxy.
func sortValue(a models.Analysis, key models.SortKey) float64 {
	switch key {
	case models.SortByRSI:
		if a.RSI == nil {
			return math.Inf(-1)
		}
		return *a.RSI
	case models.SortByMarketCap:
		if a.MarketCap == nil {
			return math.Inf(-1)
		}
		return *a.MarketCap
	default:
		return a.Price
	}
}

// paginate slices the filtered, sorted list by page/page_size. An
// out-of-range page yields an empty slice rather than an error.
func paginate(list []models.Analysis, page, pageSize int) models.FilterResult {
	total := len(list)
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	var pageItems []models.Analysis
	if start < end {
		pageItems = append(pageItems, list[start:end]...)
	}

	return models.FilterResult{
		Stocks: pageItems,
		Pagination: models.Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}
