// Package fetcher retrieves one listing page and the detail record of every listed item.
package fetcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// PageFetcher walks a single listing page. Requests are issued one at a time in listing order.
type PageFetcher struct {
	getter ingest.Getter
	logger *zap.Logger
}

// New constructs a PageFetcher.
func New(getter ingest.Getter, logger *zap.Logger) *PageFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageFetcher{getter: getter, logger: logger}
}

// FetchPage fetches the listing at url and then each listed detail record.
// Any failure aborts the whole page; no partial result is returned.
func (f *PageFetcher) FetchPage(ctx context.Context, url string) (ingest.Page, error) {
	var listing ingest.Listing
	if err := f.getter.GetJSON(ctx, url, &listing); err != nil {
		return ingest.Page{}, fmt.Errorf("fetch listing: %w", err)
	}
	f.logger.Info("fetched listing", zap.String("url", url), zap.Int("results", len(listing.Results)))

	items := make([]ingest.ItemRecord, 0, len(listing.Results))
	for _, summary := range listing.Results {
		f.logger.Debug("fetching detail", zap.String("name", summary.Name), zap.String("url", summary.URL))
		var item ingest.ItemRecord
		if err := f.getter.GetJSON(ctx, summary.URL, &item); err != nil {
			return ingest.Page{}, fmt.Errorf("fetch detail %q: %w", summary.Name, err)
		}
		items = append(items, item)
	}

	return ingest.Page{Items: items, Next: listing.NextURL()}, nil
}
