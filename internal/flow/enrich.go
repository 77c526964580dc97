// Package flow provides affiliate link enrichment for parsed protocols.
package flow

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

// AffiliateConfig holds the per-storefront affiliate identifiers. Missing
// identifiers are logged at construction; URLs are still built without the
// affiliate parameter.
type AffiliateConfig struct {
	AmazonTag string
	IHerbCode string
}

// AffiliateEnricher deterministically constructs storefront search URLs for
// raw product mentions. Pure URL construction; no network calls.
type AffiliateEnricher struct {
	cfg AffiliateConfig
}

// NewAffiliateEnricher creates an enricher, warning once for each missing
// affiliate identifier.
func NewAffiliateEnricher(cfg AffiliateConfig) *AffiliateEnricher {
	if cfg.AmazonTag == "" {
		slog.Warn("AffiliateEnricher: no Amazon affiliate tag configured, links will carry no tag")
	}
	if cfg.IHerbCode == "" {
		slog.Warn("AffiliateEnricher: no iHerb rewards code configured, links will carry no code")
	}
	return &AffiliateEnricher{cfg: cfg}
}

// Enrich normalizes each mention's source to the closed enum and attaches a
// computed search URL. Model-supplied URLs are never used.
func (e *AffiliateEnricher) Enrich(mentions []models.RawProductMention) []models.ProductLink {
	links := make([]models.ProductLink, 0, len(mentions))
	for _, m := range mentions {
		source := models.CoerceProductSource(m.Source)
		links = append(links, models.ProductLink{
			Name:   m.Name,
			Brand:  m.Brand,
			Source: source,
			URL:    e.buildURL(source, m.Brand, m.Name),
		})
	}
	return links
}

// buildURL constructs a storefront search URL for the brand and product
// name, embedding the affiliate identifier when configured.
func (e *AffiliateEnricher) buildURL(source models.ProductSource, brand, name string) string {
	query := url.QueryEscape(strings.TrimSpace(strings.TrimSpace(brand) + " " + strings.TrimSpace(name)))

	switch source {
	case models.ProductSourceIHerb:
		u := "https://www.iherb.com/search?kw=" + query
		if e.cfg.IHerbCode != "" {
			u += "&rcode=" + url.QueryEscape(e.cfg.IHerbCode)
		}
		return u
	default:
		// amazon and other both get an Amazon search; amazon is the
		// documented fallback source.
		u := "https://www.amazon.com/s?k=" + query
		if e.cfg.AmazonTag != "" {
			u += "&tag=" + url.QueryEscape(e.cfg.AmazonTag)
		}
		return u
	}
}
