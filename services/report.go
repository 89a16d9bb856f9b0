package services

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"psa-scraper/models"
	"psa-scraper/utils"
)

type ReportService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewReportService(logger *utils.Logger, out io.Writer) *ReportService {
	return &ReportService{logger: logger, out: out}
}

func (s *ReportService) Generate(records []*models.DatasetRecord) *models.DatasetReport {
	report := &models.DatasetReport{}
	if len(records) == 0 {
		return report
	}

	report.TotalListings = len(records)

	byGrade := make(map[string]*models.GradeStats)
	var priced []*models.DatasetRecord

	for _, r := range records {
		report.TotalImages += r.ImageCount
		if r.ImageCount == 0 {
			report.ListingsNoImages++
		}
		if r.PageGrade > 0 && r.FilterGrade > 0 && r.PageGrade != r.FilterGrade {
			report.GradeConflicts++
		}
		if r.PriceValue > 0 {
			priced = append(priced, r)
		}

		label := gradeLabel(r.Grade)
		st, ok := byGrade[label]
		if !ok {
			st = &models.GradeStats{Grade: label}
			byGrade[label] = st
		}
		st.Listings++
		st.Images += r.ImageCount
	}

	// Price stats (only listings with a parsed price)
	if len(priced) > 0 {
		report.MinPrice = priced[0].PriceValue
		report.MaxPrice = priced[0].PriceValue
		report.MostExpensive = priced[0]
		var total float64
		for _, r := range priced {
			total += r.PriceValue
			if r.PriceValue < report.MinPrice {
				report.MinPrice = r.PriceValue
			}
			if r.PriceValue > report.MaxPrice {
				report.MaxPrice = r.PriceValue
				report.MostExpensive = r
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	for _, st := range byGrade {
		report.ByGrade = append(report.ByGrade, *st)
	}
	sort.Slice(report.ByGrade, func(i, j int) bool {
		return gradeOrder(report.ByGrade[i].Grade) < gradeOrder(report.ByGrade[j].Grade)
	})

	s.logger.Debug("[report] %d listings across %d grade buckets", report.TotalListings, len(report.ByGrade))
	return report
}

func (s *ReportService) Print(r *models.DatasetReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 PSA DATASET SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings saved         : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Images saved           : \033[1m%d\033[0m\n", r.TotalImages)
	fmt.Fprintf(w, "  Listings without images: \033[1m%d\033[0m\n", r.ListingsNoImages)
	if r.GradeConflicts > 0 {
		fmt.Fprintf(w, "  Grade conflicts        : \033[1;31m%d\033[0m\n", r.GradeConflicts)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m$%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m$%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Grade : %s\n", gradeLabel(r.MostExpensive.Grade))
		fmt.Fprintf(w, "  Price : \033[1;31m%s\033[0m\n", r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Listings by Grade\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ByGrade) == 0 {
		fmt.Fprintf(w, "  No listings\n")
	} else {
		for _, g := range r.ByGrade {
			bar := strings.Repeat("█", min(g.Listings, 40))
			fmt.Fprintf(w, "  PSA %-8s %s (%d listings, %d images)\n", g.Grade, bar, g.Listings, g.Images)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func gradeLabel(grade int) string {
	if grade > 0 {
		return strconv.Itoa(grade)
	}
	return models.UnknownGrade
}

// gradeOrder sorts numeric grades high to low with unknown last.
func gradeOrder(label string) int {
	if n, err := strconv.Atoi(label); err == nil {
		return -n
	}
	return 1
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
