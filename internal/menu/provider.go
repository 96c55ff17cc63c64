package menu

import (
	"context"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Provider loads the catalog and degrades to DefaultItems when the source fails.
type Provider struct {
	source Source
	logger *logging.Logger
}

// NewProvider wraps source; a nil source serves DefaultItems.
func NewProvider(source Source, logger *logging.Logger) *Provider {
	if source == nil {
		source = NewStaticSource(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Provider{source: source, logger: logger}
}

// Catalog returns the current menu. degraded is true when the source was
// unavailable and the default menu is being served instead.
func (p *Provider) Catalog(ctx context.Context) (cat Catalog, degraded bool) {
	items, err := p.source.List(ctx)
	if err != nil {
		p.logger.Warn("menu source unavailable, serving default menu", "error", err)
		return NewCatalog(DefaultItems()), true
	}
	return NewCatalog(items), false
}
