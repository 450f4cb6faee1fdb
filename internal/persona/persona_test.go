package persona

import (
	"errors"
	"strings"
	"testing"
)

func TestCatalogGet(t *testing.T) {
	catalog := NewCatalog()

	tests := []struct {
		id       string
		wantName string
	}{
		{"optimistic", "Optimistic Ollie"},
		{"cautious", "Cautious Cat"},
		{"critical", "Critical Nancy"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, err := catalog.Get(tt.id)
			if err != nil {
				t.Fatalf("Get(%q) returned error: %v", tt.id, err)
			}
			if p.Name != tt.wantName {
				t.Errorf("Get(%q).Name = %q, want %q", tt.id, p.Name, tt.wantName)
			}
			if !strings.Contains(p.Template, "Name: "+tt.wantName) {
				t.Errorf("template for %q does not carry its identity framing", tt.id)
			}
		})
	}
}

func TestCatalogGetUnknown(t *testing.T) {
	catalog := NewCatalog()

	_, err := catalog.Get("pragmatic")
	if err == nil {
		t.Fatal("Get with unknown id should fail")
	}

	var unknown *ErrUnknown
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *ErrUnknown, got %T", err)
	}
	if unknown.ID != "pragmatic" {
		t.Errorf("ErrUnknown.ID = %q, want %q", unknown.ID, "pragmatic")
	}
}

func TestCatalogList(t *testing.T) {
	catalog := NewCatalog()

	personas := catalog.List()
	if len(personas) != 3 {
		t.Fatalf("List() returned %d personas, want 3", len(personas))
	}

	// Registration order is stable
	wantOrder := []string{"optimistic", "cautious", "critical"}
	for i, id := range wantOrder {
		if personas[i].ID != id {
			t.Errorf("List()[%d].ID = %q, want %q", i, personas[i].ID, id)
		}
	}
}
