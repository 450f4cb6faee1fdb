package scraper

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"proplens/internal/config"
	"proplens/internal/service"
)

const listingFixture = `
<html><body>
  <h1 data-testid="listing-details__button-copy-link">45 Harbour St, Pyrmont NSW 2009</h1>
  <h3 data-testid="listing-details__description-headline">Light-filled entertainer with harbour glimpses</h3>
  <div data-testid="listing-summary-property-type">Apartment</div>
  <div data-testid="listing-details__summary-title">Offers over $1,250,000</div>
  <div>
    <span>3</span><span>Beds</span>
    <span>2</span><span>Baths</span>
    <span>1</span><span>Parking</span>
  </div>
  <span data-testid="listing-details__floor-area">128m²</span>
  <span data-testid="listing-details__land-area">210.5m²</span>
  <div data-testid="listing-details__description">Sun drenched and superbly positioned.</div>
  <div data-testid="listing-details__agent-agency-name">Harbour City Realty</div>
  <a data-testid="listing-details__agent-enquiry-agent-profile-link">Sam Agent</a>
  <div data-testid="listing-details__inspection-time">Sat 10:00am - 10:30am</div>
  <div data-testid="listing-details__inspection-time">Wed 5:30pm - 6:00pm</div>
  <img class="pswp__img" src="https://img.example.com/1.jpg">
  <img class="pswp__img" src="https://img.example.com/2.jpg">
  <img class="pswp__img" src="https://img.example.com/1.jpg">
</body></html>`

func testScraper() *DomainScraper {
	return NewDomainScraper(&config.ScraperConfig{Timeout: 5, RequestDelay: 0, UserAgent: "test"})
}

func TestParseListing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingFixture))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	record := testScraper().parse(doc, "https://www.domain.com.au/45-harbour-st-pyrmont-nsw-2009-2019555555")

	if record.Address != "45 Harbour St, Pyrmont NSW 2009" {
		t.Errorf("address = %q", record.Address)
	}
	if record.Title == nil || *record.Title != "Light-filled entertainer with harbour glimpses" {
		t.Errorf("title = %v", record.Title)
	}
	if record.PropertyType == nil || *record.PropertyType != "Apartment" {
		t.Errorf("property type = %v", record.PropertyType)
	}
	if record.Price == nil || *record.Price != 1250000 {
		t.Errorf("price = %v", record.Price)
	}
	if record.Bedrooms == nil || *record.Bedrooms != 3 {
		t.Errorf("bedrooms = %v", record.Bedrooms)
	}
	if record.Bathrooms == nil || *record.Bathrooms != 2 {
		t.Errorf("bathrooms = %v", record.Bathrooms)
	}
	if record.Parking == nil || *record.Parking != 1 {
		t.Errorf("parking = %v", record.Parking)
	}
	if record.PropertySizeSqm == nil || *record.PropertySizeSqm != 128 {
		t.Errorf("property size = %v", record.PropertySizeSqm)
	}
	if record.LandSizeSqm == nil || *record.LandSizeSqm != 210.5 {
		t.Errorf("land size = %v", record.LandSizeSqm)
	}
	if record.Description == nil || !strings.Contains(*record.Description, "Sun drenched") {
		t.Errorf("description = %v", record.Description)
	}
	if record.AgencyName == nil || *record.AgencyName != "Harbour City Realty" {
		t.Errorf("agency = %v", record.AgencyName)
	}
	if len(record.InspectionTimes) != 2 {
		t.Errorf("inspection times = %v", record.InspectionTimes)
	}
	if len(record.Images) != 2 {
		t.Errorf("expected 2 unique images, got %v", record.Images)
	}
}

func TestParseListingMissingFields(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><h1 data-testid="listing-details__button-copy-link">1 Bare St</h1></body></html>`))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	record := testScraper().parse(doc, "https://www.domain.com.au/x")

	if record.Address != "1 Bare St" {
		t.Errorf("address = %q", record.Address)
	}
	if record.Price != nil || record.Bedrooms != nil || record.Title != nil {
		t.Errorf("expected nil optional fields, got price=%v beds=%v title=%v",
			record.Price, record.Bedrooms, record.Title)
	}
}

func TestFetchRejectsForeignURL(t *testing.T) {
	urls := []string{
		"https://www.realestate.com.au/property-123",
		"http://www.domain.com.au/not-https",
		"https://domain.com.au/missing-www",
		"",
	}
	s := testScraper()
	for _, url := range urls {
		_, err := s.Fetch(context.Background(), url)
		if err == nil {
			t.Errorf("Fetch(%q) expected error", url)
			continue
		}
		if service.KindOf(err) != service.KindFetch {
			t.Errorf("Fetch(%q) error kind = %v, want %v", url, service.KindOf(err), service.KindFetch)
		}
	}
}

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"plain", "$1,500,000", 1500000, true},
		{"offers over", "Offers over $800,000", 800000, true},
		{"guide", "Price guide $950,000", 950000, true},
		{"decimal", "$1200000.50", 1200000, true},
		{"thousands suffix", "Offers over $800k guide", 800000, true},
		{"millions suffix", "$1.2m", 1200000, true},
		{"suffix with decimals", "From $1.45M", 1450000, true},
		{"auction no price", "Auction", 0, false},
		{"empty", "", 0, false},
		{"address-like", "45 Harbour St", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanPrice(tt.input)
			if tt.ok {
				if got == nil || *got != tt.want {
					t.Errorf("cleanPrice(%q) = %v, want %v", tt.input, got, tt.want)
				}
			} else if got != nil {
				t.Errorf("cleanPrice(%q) = %v, want nil", tt.input, *got)
			}
		})
	}
}

func TestCleanSize(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"150m²", 150, true},
		{"210.5m²", 210.5, true},
		{"", 0, false},
		{"unknown", 0, false},
	}

	for _, tt := range tests {
		got := cleanSize(tt.input)
		if tt.ok {
			if got == nil || *got != tt.want {
				t.Errorf("cleanSize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		} else if got != nil {
			t.Errorf("cleanSize(%q) = %v, want nil", tt.input, *got)
		}
	}
}
