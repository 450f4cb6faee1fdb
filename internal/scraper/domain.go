package scraper

import (
	"context"
	"log"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"proplens/internal/config"
	"proplens/internal/model"
	"proplens/internal/service"
)

const listingURLPrefix = "https://www.domain.com.au/"

var (
	numberRe  = regexp.MustCompile(`\d+`)
	decimalRe = regexp.MustCompile(`[\d.]+`)
)

// feature-count label variations as they appear on listing pages
var featureVariations = map[string][]string{
	"Bed":     {"Bed", "Beds", "Bedroom", "Bedrooms"},
	"Bath":    {"Bath", "Baths", "Bathroom", "Bathrooms"},
	"Parking": {"Parking", "Car Space", "Car Spaces", "Garage", "Garages"},
}

var priceSelectors = []string{
	`[data-testid="listing-details__summary-title"]`,
	`[data-testid="listing-details__price"]`,
	`[data-testid="listing-details__price-text"]`,
	`.listing-price`,
}

var propertyTypeSelectors = []string{
	`div[data-testid="listing-summary-property-type"]`,
	`span[data-testid="property-features-feature-property_type"]`,
	`div.property-info__property-type`,
}

var addressSelectors = []string{
	`h1[data-testid="listing-details__button-copy-link"]`,
	`div[data-testid="listing-details__button-copy-wrapper"]`,
	`div[data-testid="listing-summary-address"]`,
	`h1.property-info__address`,
}

// DomainScraper fetches and parses domain.com.au listing pages.
type DomainScraper struct {
	httpClient *http.Client
	userAgent  string
	delay      time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// NewDomainScraper creates a scraper from config.
func NewDomainScraper(cfg *config.ScraperConfig) *DomainScraper {
	return &DomainScraper{
		httpClient: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		userAgent:  cfg.UserAgent,
		delay:      time.Duration(cfg.RequestDelay) * time.Second,
	}
}

// Fetch downloads and parses one listing page into a PropertyRecord.
// Only domain.com.au listing URLs are accepted.
func (s *DomainScraper) Fetch(ctx context.Context, url string) (*model.PropertyRecord, error) {
	if !strings.HasPrefix(url, listingURLPrefix) {
		return nil, service.NewError(service.KindFetch, "unsupported listing URL: must start with %s", listingURLPrefix)
	}

	if err := s.throttle(ctx); err != nil {
		return nil, service.WrapError(service.KindFetch, err, "request cancelled")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, service.WrapError(service.KindFetch, err, "failed to build request")
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, service.WrapError(service.KindFetch, err, "failed to fetch listing page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, service.NewError(service.KindFetch, "listing page returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, service.WrapError(service.KindFetch, err, "failed to parse listing page")
	}

	record := s.parse(doc, url)
	if record.Address == "" {
		return nil, service.NewError(service.KindFetch, "listing page had no recognizable address, layout may have changed")
	}

	log.Printf("🏠 Scraped listing: %s", record.Address)
	return record, nil
}

// throttle enforces the configured delay between successive requests.
func (s *DomainScraper) throttle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delay <= 0 || s.lastRequest.IsZero() {
		s.lastRequest = time.Now()
		return nil
	}
	wait := s.delay - time.Since(s.lastRequest)
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.lastRequest = time.Now()
	return nil
}

func (s *DomainScraper) parse(doc *goquery.Document, url string) *model.PropertyRecord {
	record := &model.PropertyRecord{
		URL:     url,
		Address: firstText(doc, addressSelectors),
	}

	record.Title = strPtr(selectText(doc, `h3[data-testid="listing-details__description-headline"]`))
	record.PropertyType = strPtr(firstText(doc, propertyTypeSelectors))
	record.Price = parsePrice(doc)

	record.Bedrooms = featureCount(doc, "Bed")
	record.Bathrooms = featureCount(doc, "Bath")
	record.Parking = featureCount(doc, "Parking")

	record.PropertySizeSqm = cleanSize(selectText(doc, `[data-testid="listing-details__floor-area"]`))
	record.LandSizeSqm = cleanSize(selectText(doc, `[data-testid="listing-details__land-area"]`))

	record.Description = strPtr(selectText(doc, `[data-testid="listing-details__description"]`))
	record.AgencyName = strPtr(selectText(doc, `[data-testid="listing-details__agent-agency-name"]`))
	record.AgentName = strPtr(selectText(doc, `[data-testid="listing-details__agent-enquiry-agent-profile-link"]`))

	doc.Find(`[data-testid="listing-details__inspection-time"]`).Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			record.InspectionTimes = append(record.InspectionTimes, t)
		}
	})

	seen := make(map[string]bool)
	doc.Find(`img.pswp__img, [data-testid="listing-details__media"] img`).Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if ok && src != "" && !seen[src] {
			seen[src] = true
			record.Images = append(record.Images, src)
		}
	})

	return record
}

// parsePrice tries each known price placement and returns the first
// value that cleans into a number.
func parsePrice(doc *goquery.Document) *float64 {
	for _, selector := range priceSelectors {
		text := selectText(doc, selector)
		if text == "" {
			continue
		}
		if price := cleanPrice(text); price != nil {
			return price
		}
	}
	return nil
}

// featureCount finds the numeric value next to a feature label such as
// "Beds" or "Car Spaces". The number usually sits in the preceding
// sibling span; failing that, inside the label text itself.
func featureCount(doc *goquery.Document, feature string) *int {
	for _, variation := range featureVariations[feature] {
		lower := strings.ToLower(variation)
		var found *int
		doc.Find("span").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if text == "" || !strings.Contains(strings.ToLower(text), lower) {
				return true
			}
			if prev := sel.Prev(); prev.Length() > 0 {
				if n, ok := firstNumber(prev.Text()); ok {
					found = &n
					return false
				}
			}
			if n, ok := firstNumber(text); ok {
				found = &n
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// cleanPrice turns price text like "$1,500,000" or "Offers over $800k
// guide" into a number, expanding a trailing k/m multiplier. Text with
// no price indicator at all is rejected so that summary titles like
// "Auction" do not parse as 0.
func cleanPrice(text string) *float64 {
	lower := strings.ToLower(text)
	if !strings.ContainsAny(lower, "$") &&
		!strings.Contains(lower, "price") &&
		!strings.Contains(lower, "from") &&
		!strings.Contains(lower, "offers") {
		return nil
	}

	for _, word := range []string{"from", "offers above", "offers over", "guide"} {
		lower = strings.ReplaceAll(lower, word, "")
	}

	idx := strings.Index(lower, "$")
	if idx < 0 {
		return nil
	}
	var digits strings.Builder
	multiplier := 1.0
	for _, r := range lower[idx+1:] {
		if r >= '0' && r <= '9' || r == '.' || r == ',' {
			digits.WriteRune(r)
			continue
		}
		if digits.Len() > 0 {
			switch r {
			case 'k':
				multiplier = 1e3
			case 'm':
				multiplier = 1e6
			}
			break
		}
	}
	cleaned := strings.ReplaceAll(digits.String(), ",", "")
	if cleaned == "" || cleaned == "." {
		return nil
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	value = math.Trunc(value * multiplier)
	return &value
}

// cleanSize turns size text like "150m²" into square meters.
func cleanSize(text string) *float64 {
	if text == "" {
		return nil
	}
	match := decimalRe.FindString(text)
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

func firstNumber(text string) (int, bool) {
	match := numberRe.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

func selectText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := selectText(doc, selector); text != "" {
			return text
		}
	}
	return ""
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
