package universe

import (
	"context"

	"marketanalysis/internal/models"
)

// Static is a fixed-roster Provider, used by tests and as the fallback the
// caller can construct without a database at all.
type Static struct {
	Roster []models.SymbolMeta
}

// NewStatic builds a Static provider from a plain symbol list, with no
// market cap or sector metadata.
func NewStatic(symbols []string) *Static {
	roster := make([]models.SymbolMeta, len(symbols))
	for i, sym := range symbols {
		roster[i] = models.SymbolMeta{Symbol: sym}
	}
	return &Static{Roster: roster}
}

func (s *Static) Symbols(ctx context.Context) ([]models.SymbolMeta, error) {
	return s.Roster, nil
}
