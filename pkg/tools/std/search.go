// Package std: адаптеры внешних возможностей для диспетчера:
// поиск, погода, OCR и разбор PDF.
//
// Каждый адаптер: тонкая обёртка над клиентом (pkg/search, pkg/weather,
// pkg/extract): строка на входе, строка на выходе.
package std

import (
	"context"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/search"
	"github.com/ilkoid/poncho-assist/pkg/tools"
)

// Searcher: веб-поиск.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// NewSearchTool оборачивает поиск в адаптер "search".
func NewSearchTool(s Searcher) *tools.Adapter {
	return tools.NewAdapter(config.ToolSearch,
		"Useful for searching the internet for recent news and information. Input should be a search query string.",
		func(ctx context.Context, query string) (string, error) {
			results, err := s.Search(ctx, query)
			if err != nil {
				return "", err
			}
			return search.Format(results), nil
		},
		tools.WithInputDescription("A search query string."))
}
