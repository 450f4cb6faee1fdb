package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"proplens/internal/config"
	"proplens/internal/model"
)

const (
	routesEndpoint = "https://routes.googleapis.com/directions/v2:computeRoutes"
	placesEndpoint = "https://places.googleapis.com/v1/places:searchText"
)

// Travel modes accepted by the Routes API.
const (
	modeDrive   = "DRIVE"
	modeTransit = "TRANSIT"
	modeWalk    = "WALK"
)

// Points of interest every property is measured against. Work and
// school destinations are fixed; grocery chains are resolved to a
// concrete store in the property's suburb via the Places API.
var (
	workDestinations   = []string{"Wynyard Station Sydney, NSW"}
	groceryChains      = []string{"Woolworths", "Coles", "Aldi", "IGA"}
	schoolDestinations = []string{"Sydney Grammar School, College Street, Darlinghurst"}
)

// Calculator resolves travel distances and times from a property to
// the fixed points of interest using the Google Routes and Places
// APIs.
type Calculator struct {
	apiKey     string
	httpClient *http.Client
	enabled    bool
}

// NewCalculator creates a calculator from config. With no API key the
// calculator is disabled and Snapshot returns an empty snapshot.
func NewCalculator(cfg *config.MapsConfig) *Calculator {
	return &Calculator{
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		enabled:    cfg.Enabled,
	}
}

// IsEnabled reports whether distance lookups are configured.
func (c *Calculator) IsEnabled() bool { return c.enabled }

// Snapshot computes the full distance snapshot for a property address.
// Per-destination failures are logged and skipped so one flaky route
// never sinks the whole snapshot.
func (c *Calculator) Snapshot(ctx context.Context, propertyAddress string) (*model.DistanceSnapshot, error) {
	if !c.enabled {
		return &model.DistanceSnapshot{}, nil
	}

	// Walking times only make sense for nearby destinations.
	snapshot := &model.DistanceSnapshot{
		Work:      c.measureAll(ctx, propertyAddress, workDestinations, false),
		Groceries: c.measureAll(ctx, propertyAddress, c.groceryAddresses(ctx, propertyAddress), true),
		Schools:   c.measureAll(ctx, propertyAddress, schoolDestinations, true),
	}
	return snapshot, nil
}

func (c *Calculator) measureAll(ctx context.Context, origin string, destinations []string, includeWalking bool) []model.LocationDistance {
	var results []model.LocationDistance
	for _, destination := range destinations {
		entry, err := c.measure(ctx, origin, destination, includeWalking)
		if err != nil {
			log.Printf("⚠️ Distance lookup failed for %s: %v", destination, err)
			continue
		}
		results = append(results, *entry)
	}
	return results
}

// measure computes one destination's distance and per-mode times. The
// driving route supplies the distance; transit and walking only add
// their durations.
func (c *Calculator) measure(ctx context.Context, origin, destination string, includeWalking bool) (*model.LocationDistance, error) {
	driving, meters, err := c.computeRoute(ctx, origin, destination, modeDrive)
	if err != nil {
		return nil, err
	}

	entry := &model.LocationDistance{
		Destination: destination,
		Distance: &model.Distance{
			Text:   formatDistance(meters),
			Meters: meters,
		},
		Modes: model.TravelModes{Driving: driving},
	}

	if transit, _, err := c.computeRoute(ctx, origin, destination, modeTransit); err == nil {
		entry.Modes.Transit = transit
	}
	if includeWalking {
		if walking, _, err := c.computeRoute(ctx, origin, destination, modeWalk); err == nil {
			entry.Modes.Walking = walking
		}
	}

	return entry, nil
}

type routesRequest struct {
	Origin                 routeWaypoint `json:"origin"`
	Destination            routeWaypoint `json:"destination"`
	TravelMode             string        `json:"travelMode"`
	ComputeAlternateRoutes bool          `json:"computeAlternativeRoutes"`
	LanguageCode           string        `json:"languageCode"`
	Units                  string        `json:"units"`
	RoutingPreference      string        `json:"routingPreference,omitempty"`
	DepartureTime          string        `json:"departureTime,omitempty"`
}

type routeWaypoint struct {
	Address string `json:"address"`
}

type routesResponse struct {
	Routes []struct {
		Duration       string `json:"duration"`
		DistanceMeters int    `json:"distanceMeters"`
	} `json:"routes"`
}

// computeRoute asks the Routes API for one origin/destination/mode
// triple and returns the travel time plus route distance in meters.
func (c *Calculator) computeRoute(ctx context.Context, origin, destination, mode string) (*model.TravelTime, int, error) {
	reqBody := routesRequest{
		Origin:       routeWaypoint{Address: origin},
		Destination:  routeWaypoint{Address: destination},
		TravelMode:   mode,
		LanguageCode: "en-US",
		Units:        "METRIC",
	}
	switch mode {
	case modeDrive:
		reqBody.RoutingPreference = "TRAFFIC_AWARE"
		reqBody.DepartureTime = time.Now().Add(time.Minute).UTC().Format(time.RFC3339)
	case modeTransit:
		reqBody.DepartureTime = time.Now().Add(time.Minute).UTC().Format(time.RFC3339)
	}

	var resp routesResponse
	if err := c.post(ctx, routesEndpoint, "routes.duration,routes.distanceMeters", reqBody, &resp); err != nil {
		return nil, 0, err
	}
	if len(resp.Routes) == 0 {
		return nil, 0, fmt.Errorf("no %s route found to %s", mode, destination)
	}

	route := resp.Routes[0]
	seconds, err := parseDuration(route.Duration)
	if err != nil {
		return nil, 0, fmt.Errorf("bad duration %q: %w", route.Duration, err)
	}

	return &model.TravelTime{
		Text:    formatDuration(seconds),
		Seconds: seconds,
	}, route.DistanceMeters, nil
}

type placesRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount"`
}

type placesResponse struct {
	Places []struct {
		FormattedAddress string `json:"formattedAddress"`
		DisplayName      struct {
			Text string `json:"text"`
		} `json:"displayName"`
	} `json:"places"`
}

// groceryAddresses resolves each grocery chain to one concrete store
// address in the property's suburb. Results that fall outside the
// suburb or belong to a different chain are rejected.
func (c *Calculator) groceryAddresses(ctx context.Context, propertyAddress string) []string {
	suburb := suburbFromAddress(propertyAddress)
	if suburb == "" {
		log.Printf("⚠️ Could not extract suburb from %q, skipping grocery lookup", propertyAddress)
		return nil
	}

	var addresses []string
	seen := make(map[string]bool)
	for _, chain := range groceryChains {
		query := fmt.Sprintf("%s %s, NSW", chain, suburb)

		var resp placesResponse
		err := c.post(ctx, placesEndpoint, "places.formattedAddress,places.displayName", placesRequest{
			TextQuery:      query,
			MaxResultCount: 3,
		}, &resp)
		if err != nil {
			log.Printf("⚠️ Places lookup failed for %s: %v", query, err)
			continue
		}

		for _, place := range resp.Places {
			address := place.FormattedAddress
			if address == "" || seen[address] {
				continue
			}
			if !strings.Contains(strings.ToLower(address), strings.ToLower(suburb)) {
				continue
			}
			if !strings.Contains(strings.ToLower(place.DisplayName.Text), strings.ToLower(chain)) {
				continue
			}
			seen[address] = true
			addresses = append(addresses, address)
			break
		}
	}
	return addresses
}

func (c *Calculator) post(ctx context.Context, endpoint, fieldMask string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var stateTokens = map[string]bool{
	"nsw": true, "vic": true, "qld": true, "sa": true,
	"wa": true, "tas": true, "act": true, "nt": true,
}

// suburbFromAddress extracts the suburb from an address shaped like
// "Street, Suburb NSW Postcode": every field after the first comma up
// to the state or postcode, so multi-word suburbs stay intact.
func suburbFromAddress(address string) string {
	parts := strings.SplitN(address, ",", 3)
	if len(parts) < 2 {
		return ""
	}
	var suburb []string
	for _, field := range strings.Fields(parts[1]) {
		if stateTokens[strings.ToLower(field)] || allDigits(field) {
			break
		}
		suburb = append(suburb, field)
	}
	return strings.Join(suburb, " ")
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseDuration parses Routes API durations like "1234s".
func parseDuration(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSuffix(raw, "s"))
}

// formatDuration renders seconds like "2 hr 30 min" or "45 min".
func formatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}

// formatDistance renders meters like "5.2 km".
func formatDistance(meters int) string {
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}
