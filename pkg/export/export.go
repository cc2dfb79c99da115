package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/mxlvintam/cohortx/pkg/analytics"
	reportmodels "github.com/mxlvintam/cohortx/pkg/db/models/reports"
)

// Output formats accepted by the reporter.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Formats lists every supported output format, for CLI usage strings.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatCSV, FormatMarkdown}
}

// Render writes the report bundle to w in the given format.
func Render(w io.Writer, format string, res *analytics.Result) error {
	switch format {
	case FormatTable:
		return renderTable(w, res)
	case FormatJSON:
		return renderJSON(w, res)
	case FormatCSV:
		return renderCSV(w, res)
	case FormatMarkdown:
		return renderMarkdown(w, res)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteFiles exports the report bundle under dir, once per requested format.
// All files from one call share a timestamp so a run's outputs group
// together. Returns the paths written.
func WriteFiles(logger *zap.Logger, dir string, formats []string, res *analytics.Result) ([]string, error) {
	stamp := time.Now().UTC().Format("20060102_150405")

	var written []string
	for _, format := range formats {
		switch format {
		case FormatCSV:
			// CSV keeps one file per report so each file has a single header.
			sections := []struct {
				name   string
				render func(io.Writer, *analytics.Result) error
			}{
				{"segments", segmentsCSV},
				{"cohorts", cohortsCSV},
				{"retention", retentionCSV},
			}
			for _, s := range sections {
				path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", s.name, stamp))
				if err := writeFile(path, res, s.render); err != nil {
					return written, err
				}
				written = append(written, path)
			}
		case FormatTable, FormatJSON, FormatMarkdown:
			path := filepath.Join(dir, fmt.Sprintf("report_%s.%s", stamp, extensions[format]))
			if err := writeFile(path, res, func(w io.Writer, r *analytics.Result) error {
				return Render(w, format, r)
			}); err != nil {
				return written, err
			}
			written = append(written, path)
		default:
			return written, fmt.Errorf("unknown output format %q", format)
		}
	}

	logger.Info("Exported report files",
		zap.String("dir", dir),
		zap.Strings("files", written))
	return written, nil
}

var extensions = map[string]string{
	FormatTable:    "txt",
	FormatJSON:     "json",
	FormatMarkdown: "md",
}

func writeFile(path string, res *analytics.Result, render func(io.Writer, *analytics.Result) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := render(file, res); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type jsonReport struct {
	Segments  []*reportmodels.SegmentSummary   `json:"segments"`
	Cohorts   []*reportmodels.CohortSummary    `json:"cohorts"`
	Retention []*reportmodels.RetentionSummary `json:"retention"`
}

func renderJSON(w io.Writer, res *analytics.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Segments:  res.Segments,
		Cohorts:   res.Cohorts,
		Retention: res.Retention,
	})
}

func renderTable(w io.Writer, res *analytics.Result) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	fmt.Fprintln(tw, "CUSTOMER SEGMENTS")
	fmt.Fprintln(tw, "SEGMENT\tCUSTOMERS\tTOTAL LTV\tAVG LTV")
	for _, s := range res.Segments {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Segment, s.Customers, s.TotalValue.StringFixed(2), s.AvgValue.StringFixed(2))
	}

	fmt.Fprintln(tw, "\nACQUISITION COHORTS")
	fmt.Fprintln(tw, "COHORT\tCUSTOMERS\tTOTAL REVENUE\tREVENUE/CUSTOMER")
	for _, c := range res.Cohorts {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", c.CohortYear, c.Customers, c.TotalRevenue.StringFixed(2), c.RevenuePerCustomer.StringFixed(2))
	}

	fmt.Fprintln(tw, "\nRETENTION BY COHORT")
	fmt.Fprintln(tw, "COHORT\tSTATUS\tCUSTOMERS\tCOHORT TOTAL\tSHARE")
	for _, r := range res.Retention {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", r.CohortYear, r.Status, r.Customers, r.CohortTotal, r.Share.StringFixed(2))
	}

	return tw.Flush()
}

func renderMarkdown(w io.Writer, res *analytics.Result) error {
	fmt.Fprintln(w, "## Customer Segments")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Segment | Customers | Total LTV | Avg LTV |")
	fmt.Fprintln(w, "|---------|-----------|-----------|---------|")
	for _, s := range res.Segments {
		fmt.Fprintf(w, "| %s | %d | %s | %s |\n", s.Segment, s.Customers, s.TotalValue.StringFixed(2), s.AvgValue.StringFixed(2))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Acquisition Cohorts")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Cohort | Customers | Total Revenue | Revenue/Customer |")
	fmt.Fprintln(w, "|--------|-----------|---------------|------------------|")
	for _, c := range res.Cohorts {
		fmt.Fprintf(w, "| %d | %d | %s | %s |\n", c.CohortYear, c.Customers, c.TotalRevenue.StringFixed(2), c.RevenuePerCustomer.StringFixed(2))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Retention by Cohort")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Cohort | Status | Customers | Cohort Total | Share |")
	fmt.Fprintln(w, "|--------|--------|-----------|--------------|-------|")
	for _, r := range res.Retention {
		fmt.Fprintf(w, "| %d | %s | %d | %d | %s |\n", r.CohortYear, r.Status, r.Customers, r.CohortTotal, r.Share.StringFixed(2))
	}

	return nil
}

// renderCSV writes the three reports as consecutive CSV sections separated
// by a blank line. File exports use one file per report instead.
func renderCSV(w io.Writer, res *analytics.Result) error {
	if err := segmentsCSV(w, res); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := cohortsCSV(w, res); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return retentionCSV(w, res)
}

func segmentsCSV(w io.Writer, res *analytics.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"segment", "customers", "total_value", "avg_value"}); err != nil {
		return err
	}
	for _, s := range res.Segments {
		record := []string{
			s.Segment,
			strconv.FormatUint(s.Customers, 10),
			s.TotalValue.String(),
			s.AvgValue.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cohortsCSV(w io.Writer, res *analytics.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cohort_year", "customers", "total_revenue", "revenue_per_customer"}); err != nil {
		return err
	}
	for _, c := range res.Cohorts {
		record := []string{
			strconv.FormatUint(uint64(c.CohortYear), 10),
			strconv.FormatUint(c.Customers, 10),
			c.TotalRevenue.String(),
			c.RevenuePerCustomer.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func retentionCSV(w io.Writer, res *analytics.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"cohort_year", "status", "customers", "cohort_total", "share"}); err != nil {
		return err
	}
	for _, r := range res.Retention {
		record := []string{
			strconv.FormatUint(uint64(r.CohortYear), 10),
			r.Status,
			strconv.FormatUint(r.Customers, 10),
			strconv.FormatUint(r.CohortTotal, 10),
			r.Share.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
