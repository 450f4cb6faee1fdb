package distance

import (
	"context"
	"testing"

	"proplens/internal/config"
)

func TestSuburbFromAddress(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"45 Harbour St, Pyrmont NSW 2009", "Pyrmont"},
		{"12/3 Ocean Ave, Bondi Beach NSW 2026", "Bondi Beach"},
		{"8 Miller St, North Sydney NSW 2060", "North Sydney"},
		{"2 Crown St, Surry Hills, NSW 2010", "Surry Hills"},
		{"5 Plain St, Newtown 2042", "Newtown"},
		{"1 Lonely Road", ""},
		{"", ""},
		{"Somewhere, ", ""},
	}

	for _, tt := range tests {
		if got := suburbFromAddress(tt.address); got != tt.want {
			t.Errorf("suburbFromAddress(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"1500s", 1500, false},
		{"0s", 0, false},
		{"90", 90, false},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseDuration(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDuration(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDuration(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{1500, "25 min"},
		{9000, "2 hr 30 min"},
		{3600, "1 hr 0 min"},
		{59, "0 min"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.seconds); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters int
		want   string
	}{
		{8200, "8.2 km"},
		{950, "0.9 km"},
		{0, "0.0 km"},
	}

	for _, tt := range tests {
		if got := formatDistance(tt.meters); got != tt.want {
			t.Errorf("formatDistance(%d) = %q, want %q", tt.meters, got, tt.want)
		}
	}
}

func TestSnapshotDisabled(t *testing.T) {
	calc := NewCalculator(&config.MapsConfig{Enabled: false, Timeout: 5})

	snapshot, err := calc.Snapshot(context.Background(), "45 Harbour St, Pyrmont NSW 2009")
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if !snapshot.Empty() {
		t.Errorf("expected empty snapshot when disabled, got %+v", snapshot)
	}
	if calc.IsEnabled() {
		t.Error("IsEnabled() = true for disabled calculator")
	}
}
