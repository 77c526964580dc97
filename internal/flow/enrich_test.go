package flow

import (
	"testing"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

func TestEnrichBuildsStorefrontURLs(t *testing.T) {
	enricher := NewAffiliateEnricher(AffiliateConfig{AmazonTag: "natsc-20", IHerbCode: "NAT123"})

	cases := []struct {
		name       string
		mention    models.RawProductMention
		wantSource models.ProductSource
		wantURL    string
	}{
		{
			name:       "amazon with brand",
			mention:    models.RawProductMention{Name: "Ashwagandha Root", Brand: "Gaia Herbs", Source: "amazon"},
			wantSource: models.ProductSourceAmazon,
			wantURL:    "https://www.amazon.com/s?k=Gaia+Herbs+Ashwagandha+Root&tag=natsc-20",
		},
		{
			name:       "iherb",
			mention:    models.RawProductMention{Name: "Magnesium Glycinate", Brand: "Thorne", Source: "iherb"},
			wantSource: models.ProductSourceIHerb,
			wantURL:    "https://www.iherb.com/search?kw=Thorne+Magnesium+Glycinate&rcode=NAT123",
		},
		{
			name:       "unknown source falls back to amazon",
			mention:    models.RawProductMention{Name: "Fish Oil", Brand: "NOW Foods", Source: "walmart"},
			wantSource: models.ProductSourceAmazon,
			wantURL:    "https://www.amazon.com/s?k=NOW+Foods+Fish+Oil&tag=natsc-20",
		},
		{
			name:       "missing brand",
			mention:    models.RawProductMention{Name: "Rhodiola", Source: "amazon"},
			wantSource: models.ProductSourceAmazon,
			wantURL:    "https://www.amazon.com/s?k=Rhodiola&tag=natsc-20",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			links := enricher.Enrich([]models.RawProductMention{tc.mention})
			if len(links) != 1 {
				t.Fatalf("got %d links, want 1", len(links))
			}
			if links[0].Source != tc.wantSource {
				t.Errorf("source = %q, want %q", links[0].Source, tc.wantSource)
			}
			if links[0].URL != tc.wantURL {
				t.Errorf("url = %q, want %q", links[0].URL, tc.wantURL)
			}
			if links[0].Name != tc.mention.Name {
				t.Errorf("name = %q, want %q", links[0].Name, tc.mention.Name)
			}
		})
	}
}

func TestEnrichWithoutAffiliateIdentifiers(t *testing.T) {
	enricher := NewAffiliateEnricher(AffiliateConfig{})

	links := enricher.Enrich([]models.RawProductMention{
		{Name: "Ashwagandha", Brand: "Gaia Herbs", Source: "amazon"},
		{Name: "Vitamin D3", Brand: "Solgar", Source: "iherb"},
	})
	if got := links[0].URL; got != "https://www.amazon.com/s?k=Gaia+Herbs+Ashwagandha" {
		t.Errorf("amazon url = %q, want no tag parameter", got)
	}
	if got := links[1].URL; got != "https://www.iherb.com/search?kw=Solgar+Vitamin+D3" {
		t.Errorf("iherb url = %q, want no rcode parameter", got)
	}
}

func TestEnrichEmptyInput(t *testing.T) {
	enricher := NewAffiliateEnricher(AffiliateConfig{AmazonTag: "natsc-20"})
	if links := enricher.Enrich(nil); len(links) != 0 {
		t.Errorf("got %d links for nil input, want 0", len(links))
	}
}
