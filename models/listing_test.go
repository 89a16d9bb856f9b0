package models

import "testing"

func TestGradePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		d        ListingDetail
		grade    int
		label    string
		conflict bool
	}{
		{"filter only", ListingDetail{FilterGrade: 9}, 9, "9", false},
		{"page only", ListingDetail{PageGrade: 7}, 7, "7", false},
		{"agree", ListingDetail{FilterGrade: 10, PageGrade: 10}, 10, "10", false},
		{"filter wins", ListingDetail{FilterGrade: 9, PageGrade: 8}, 9, "9", true},
		{"neither", ListingDetail{}, 0, UnknownGrade, false},
	}

	for _, tt := range tests {
		if got := tt.d.Grade(); got != tt.grade {
			t.Errorf("%s: Grade() = %d; want %d", tt.name, got, tt.grade)
		}
		if got := tt.d.GradeLabel(); got != tt.label {
			t.Errorf("%s: GradeLabel() = %q; want %q", tt.name, got, tt.label)
		}
		if got := tt.d.GradeConflict(); got != tt.conflict {
			t.Errorf("%s: GradeConflict() = %v; want %v", tt.name, got, tt.conflict)
		}
	}
}

func TestNewDatasetRecord(t *testing.T) {
	d := &ListingDetail{
		Title:       "Charizard",
		Price:       "US $10.00",
		Condition:   NotAvailable,
		SourceURL:   "https://www.ebay.com/itm/1",
		ImageFolder: "out/9/0",
		FilterGrade: 9,
		PageGrade:   8,
	}
	r := NewDatasetRecord(d, []*DownloadedImage{{}, {}})

	if r.ImageCount != 2 || r.URL != d.SourceURL || r.ImageFolder != "out/9/0" {
		t.Errorf("unexpected record %+v", r)
	}
	if r.Grade != 9 || r.PageGrade != 8 || r.FilterGrade != 9 {
		t.Errorf("grades: got %d/%d/%d", r.Grade, r.PageGrade, r.FilterGrade)
	}
	if r.ScrapedAt.IsZero() {
		t.Error("ScrapedAt not set")
	}
}
