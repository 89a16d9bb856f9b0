package services

import (
	"regexp"
	"strconv"
	"strings"

	"psa-scraper/extract"
	"psa-scraper/models"
	"psa-scraper/utils"
)

// priceRegexp captures the first numeric amount, thousands separators included
var priceRegexp = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// Cleaner normalises records before they reach the sinks.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Normalise collapses whitespace in the text columns and fills PriceValue.
func (c *Cleaner) Normalise(r *models.DatasetRecord) {
	r.Title = extract.NormaliseText(r.Title)
	r.Condition = extract.NormaliseText(r.Condition)
	r.Price = extract.NormaliseText(r.Price)
	r.URL = strings.TrimSpace(r.URL)
	r.PriceValue = c.ParsePrice(r.Price)
}

// ParsePrice extracts the first amount from a displayed price.
// Examples:
//
//	"US $1,234.50"           → 1234.5
//	"US $10.00 to US $20.00" → 10
//	"N/A"                    → 0
func (c *Cleaner) ParsePrice(raw string) float64 {
	match := priceRegexp.FindString(raw)
	if match == "" {
		return 0
	}

	val, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		c.logger.Debug("[cleaner] Unparsable price %q: %v", raw, err)
		return 0
	}
	return val
}
