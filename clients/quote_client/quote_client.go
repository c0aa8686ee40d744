package quote_client

import (
	"buffettbackend/types"
	"fmt"
	"strings"

	"github.com/piquette/finance-go/quote"
)

// GetCompanyMeta looks up the display name and last price for symbol.
func GetCompanyMeta(symbol string) (types.CompanyMeta, error) {
	q, err := quote.Get(strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return types.CompanyMeta{}, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if q == nil {
		return types.CompanyMeta{}, fmt.Errorf("no quote for %s", symbol)
	}

	return types.CompanyMeta{
		Name:         q.ShortName,
		CurrentPrice: q.RegularMarketPrice,
	}, nil
}

// MergeMeta fills the blanks of primary from fallback.
func MergeMeta(primary, fallback types.CompanyMeta) types.CompanyMeta {
	if primary.Name == "" {
		primary.Name = fallback.Name
	}
	if primary.Sector == "" {
		primary.Sector = fallback.Sector
	}
	if primary.Industry == "" {
		primary.Industry = fallback.Industry
	}
	if primary.CurrentPrice == 0 {
		primary.CurrentPrice = fallback.CurrentPrice
	}
	return primary
}
