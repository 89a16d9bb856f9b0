package services

import (
	"io"
	"testing"

	"psa-scraper/models"
	"psa-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard) }

func TestCleanerParsePrice(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want float64
	}{
		{"US $1,234.50", 1234.50},
		{"US $45.00", 45},
		{"US $10.00 to US $20.00", 10},
		{"£3,500", 3500},
		{"", 0},
		{"N/A", 0},
	}

	for _, tt := range tests {
		got := c.ParsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerNormalise(t *testing.T) {
	c := NewCleaner(newTestLogger())
	r := &models.DatasetRecord{
		Title: "  PSA 10\n  Charizard ",
		Price: " US $99.99 ",
		URL:   " https://www.ebay.com/itm/1 ",
	}

	c.Normalise(r)
	if r.Title != "PSA 10 Charizard" {
		t.Errorf("Title: got %q", r.Title)
	}
	if r.URL != "https://www.ebay.com/itm/1" {
		t.Errorf("URL: got %q", r.URL)
	}
	if r.PriceValue != 99.99 {
		t.Errorf("PriceValue: got %.2f, want 99.99", r.PriceValue)
	}
}
