package cache

import (
	"testing"
	"time"

	"marketanalysis/internal/models"
)

func TestCache_PutSymbolThenGet(t *testing.T) {
	c := New(time.Minute)
	price := 10.0
	c.PutSymbol(models.Analysis{Symbol: "AAPL", Price: price})

	got, ok := c.GetSymbol("AAPL")
	if !ok || got.Price != price {
		t.Fatalf("GetSymbol(AAPL) = (%+v, %v), want the cached Analysis", got, ok)
	}
}

func TestCache_GetSymbolMissIsFalse(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.GetSymbol("NOPE"); ok {
		t.Fatal("GetSymbol(NOPE) = true, want false on a cold cache")
	}
}

// Cache coherence (property 10): after cycle completion the query cache
// contains no entries; the symbol cache is untouched by that eviction.
func TestCache_InvalidateQueriesLeavesSymbolsAlone(t *testing.T) {
	c := New(time.Minute)
	c.PutSymbol(models.Analysis{Symbol: "AAPL", Price: 1})
	c.PutQuery("some-filter", models.FilterResult{Stocks: []models.Analysis{{Symbol: "AAPL"}}})

	c.InvalidateQueries()

	if _, ok := c.GetQuery("some-filter"); ok {
		t.Fatal("query cache entry survived InvalidateQueries")
	}
	if _, ok := c.GetSymbol("AAPL"); !ok {
		t.Fatal("symbol cache entry was evicted by InvalidateQueries, it should only be query entries")
	}
}

func TestCache_WarmSymbolsSeedsFromSnapshot(t *testing.T) {
	c := New(time.Minute)
	c.WarmSymbols([]models.Analysis{
		{Symbol: "AAPL", Price: 1},
		{Symbol: "MSFT", Price: 2},
	})

	for _, sym := range []string{"AAPL", "MSFT"} {
		if _, ok := c.GetSymbol(sym); !ok {
			t.Fatalf("GetSymbol(%s) missing after WarmSymbols", sym)
		}
	}
}
