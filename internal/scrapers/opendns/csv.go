package opendns

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	noDataMarker   = "We don't have any data for you"
	htmlPageMarker = "<!DOCTYPE"
	dayLayout      = "2006-01-02"
)

// FormatDay is the date filter for a single day.
func FormatDay(day time.Time) string {
	return day.Format(dayLayout)
}

// FormatDayRange is the date filter for the inclusive range [first, last].
func FormatDayRange(first, last time.Time) string {
	return fmt.Sprintf("%sto%s", first.Format(dayLayout), last.Format(dayLayout))
}

var dateFilterRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:to(\d{4}-\d{2}-\d{2}))?$`)

// ValidateDateFilter checks that `filter` is either YYYY-MM-DD or
// YYYY-MM-DDtoYYYY-MM-DD with real dates in order.
func ValidateDateFilter(filter string) error {
	groups := dateFilterRegex.FindStringSubmatch(filter)
	if groups == nil {
		return fmt.Errorf("date filter '%s' must look like YYYY-MM-DD or YYYY-MM-DDtoYYYY-MM-DD", filter)
	}
	first, err := time.Parse(dayLayout, groups[1])
	if err != nil {
		return fmt.Errorf("date filter '%s': %w", filter, err)
	}
	if groups[2] == "" {
		return nil
	}
	last, err := time.Parse(dayLayout, groups[2])
	if err != nil {
		return fmt.Errorf("date filter '%s': %w", filter, err)
	}
	if last.Before(first) {
		return fmt.Errorf("date filter '%s': range ends before it starts", filter)
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func splitLines(body string) []string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func (l *Loader) reportUrl(networkId, typeSegment, dateFilter string, page int) string {
	link := l.opts.CsvUrl
	link = strings.ReplaceAll(link, "(NETWORK)", networkId)
	link = strings.ReplaceAll(link, "(TYPE)", typeSegment)
	link = strings.ReplaceAll(link, "(DATE)", dateFilter)
	link = strings.ReplaceAll(link, "(PAGE)", strconv.Itoa(page))
	return link
}

// FetchCsv downloads every page of a report for the loader's network and
// returns its lines, the header line is included once.
func (l *Loader) FetchCsv(ctx context.Context, dateFilter string, reportType ReportType) ([]string, error) {
	report, err := l.FetchReport(ctx, ReportRequest{
		NetworkId:  l.opts.NetworkId,
		Type:       reportType,
		DateFilter: dateFilter,
	})
	if err != nil {
		return nil, err
	}
	return report.Lines, nil
}

func (l *Loader) FetchCsvForDay(ctx context.Context, day time.Time, reportType ReportType) ([]string, error) {
	return l.FetchCsv(ctx, FormatDay(day), reportType)
}

func (l *Loader) FetchCsvForDayRange(ctx context.Context, first, last time.Time, reportType ReportType) ([]string, error) {
	return l.FetchCsv(ctx, FormatDayRange(first, last), reportType)
}

// FetchReport walks the pages of a report until the dashboard runs out of
// data or the page budget is spent.
func (l *Loader) FetchReport(ctx context.Context, req ReportRequest) (Report, error) {
	ctx, span := tracer.Start(ctx, "loader:FetchReport")
	defer span.End()
	span.SetAttributes(
		attribute.String("network_id", req.NetworkId),
		attribute.String("report_type", req.Type.String()),
		attribute.String("date_filter", req.DateFilter),
	)

	typeSegment, err := req.Type.urlSegment()
	if err != nil {
		span.SetStatus(codes.Error, "unsupported report type")
		l.tel.ReportBroken(report_loader_fetch_csv, err)
		return Report{}, err
	}
	if !l.authenticated {
		l.tel.ReportWarning(report_loader_fetch_csv, "fetching report without a successful login")
	}

	report := Report{
		Request: req,
		Lines:   []string{},
	}

	for page := 1; page < l.opts.MaxPages; page++ {
		link := l.reportUrl(req.NetworkId, typeSegment, req.DateFilter, page)
		l.tel.ReportDebug(report_loader_fetch_csv, page, link)

		body, err := l.get(ctx, link)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch page")
			l.tel.ReportBroken(
				report_loader_fetch_csv,
				fmt.Errorf("fetch page %d: %w", page, err),
			)
			return Report{}, fmt.Errorf("opendns scraper: fetch report page %d: %w", page, err)
		}

		if page == 1 {
			switch {
			case isBlank(body):
				span.SetStatus(codes.Error, "empty first page")
				return Report{}, &DataDownloadError{
					Message: fmt.Sprintf("cannot access network %s data", req.NetworkId),
				}
			case strings.Contains(body, noDataMarker):
				return report, nil
			case strings.Contains(body, htmlPageMarker):
				span.SetStatus(codes.Error, "html page instead of csv")
				l.tel.ReportWarning(
					report_loader_fetch_csv,
					"got an html page instead of csv",
					describeErrorPage(body),
				)
				return Report{}, &DataDownloadError{
					Message: "date range may be outside of available data",
				}
			}
		}

		lines := splitLines(body)
		if page > 1 {
			// every page repeats the header
			lines = lines[1:]
		}
		if len(lines) == 0 || isBlank(lines[0]) {
			l.tel.ReportCount(report_loader_fetch_csv, int64(report.Pages))
			return report, nil
		}

		for _, line := range lines {
			if isBlank(line) {
				continue
			}
			report.Lines = append(report.Lines, line)
		}
		report.Pages++
	}

	report.Truncated = true
	l.tel.ReportWarning(
		report_loader_fetch_csv,
		"page budget exhausted, report is truncated",
		req.NetworkId,
		l.opts.MaxPages,
	)
	l.tel.ReportCount(report_loader_fetch_csv, int64(report.Pages))
	return report, nil
}
