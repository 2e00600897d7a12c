package store

import (
	"context"
	"testing"
	"time"

	"marketanalysis/internal/models"
)

func TestMemory_UpsertThenGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rsi := 55.5
	a := models.Analysis{Symbol: "AAPL", Price: 190.0, RSI: &rsi, AnalyzedAt: time.Now()}

	if err := m.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	got, err := m.Get(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got == nil || got.Symbol != "AAPL" || *got.RSI != 55.5 {
		t.Fatalf("Get(AAPL) = %+v, want the upserted record", got)
	}
}

func TestMemory_GetMissingSymbolIsNilNotError(t *testing.T) {
	m := NewMemory()
	got, err := m.Get(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("Get(NOPE) = %+v, want nil", got)
	}
}

func TestMemory_UpsertReplacesBySymbol(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Upsert(ctx, models.Analysis{Symbol: "AAPL", Price: 100})
	_ = m.Upsert(ctx, models.Analysis{Symbol: "AAPL", Price: 200})

	n, _ := m.Count(ctx)
	if n != 1 {
		t.Fatalf("Count = %d, want 1 (store holds at most one Analysis per symbol)", n)
	}

	got, _ := m.Get(ctx, "AAPL")
	if got.Price != 200 {
		t.Fatalf("Get(AAPL).Price = %v, want 200", got.Price)
	}
}

func TestMemory_AllIsSortedAndComplete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, sym := range []string{"C", "A", "B"} {
		_ = m.Upsert(ctx, models.Analysis{Symbol: sym, Price: 1})
	}

	all, err := m.All(ctx)
	if err != nil {
		t.Fatalf("All returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}
	for i, want := range []string{"A", "B", "C"} {
		if all[i].Symbol != want {
			t.Fatalf("All()[%d].Symbol = %s, want %s", i, all[i].Symbol, want)
		}
	}
}
