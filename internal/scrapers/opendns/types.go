package opendns

import (
	"errors"
	"fmt"
	"strings"
)

// ReportType selects which statistics report is downloaded.
type ReportType int

const (
	// TopDomains is every requested domain, one row per domain with its categorization.
	TopDomains ReportType = iota
	// BlockedDomains is every blocked domain, one row per domain with its categorization.
	BlockedDomains
	// TotalRequests is the total request count, one row per day.
	TotalRequests
	// UniqueDomains is the unique domain count, one row per day.
	UniqueDomains
	// UniqueIps is the unique client ip count, one row per day.
	UniqueIps
	// RequestTypes is the request count per DNS record type (A, PTR, TXT, AAAA, ANY).
	RequestTypes
)

var ReportTypes = []ReportType{
	TopDomains,
	BlockedDomains,
	TotalRequests,
	UniqueDomains,
	UniqueIps,
	RequestTypes,
}

// urlSegment is the path segment the dashboard uses for the report type.
func (t ReportType) urlSegment() (string, error) {
	switch t {
	case TopDomains:
		return "topdomains", nil
	case BlockedDomains:
		return "blockeddomains", nil
	case TotalRequests:
		return "totalrequests", nil
	case UniqueDomains:
		return "uniquedomains", nil
	case UniqueIps:
		return "uniqueips", nil
	case RequestTypes:
		return "requesttypes", nil
	default:
		return "", &UnsupportedReportTypeError{Type: t}
	}
}

func (t ReportType) String() string {
	segment, err := t.urlSegment()
	if err != nil {
		return fmt.Sprintf("ReportType(%d)", int(t))
	}
	return segment
}

// ParseReportType is the inverse of ReportType.String, it ignores case and
// surrounding whitespace.
func ParseReportType(s string) (ReportType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range ReportTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown report type '%s'", s)
}

type Credentials struct {
	Username string
	Password string
}

type ReportRequest struct {
	NetworkId  string
	Type       ReportType
	DateFilter string
}

// Report is the result of a paginated csv download.
type Report struct {
	Request ReportRequest
	// Lines holds the header line of the first page followed by every
	// non-blank data line, in page order.
	Lines []string
	// Pages is the number of pages whose lines made it into Lines.
	Pages int
	// Truncated is true when the page budget ran out before the dashboard
	// signaled the end of the report.
	Truncated bool
}

type UserNetworkDescriptor struct {
	NetworkId   string
	NetworkName string
	// NetworkIp is an ip or a CIDR range (ex. 1.2.3.0/24).
	NetworkIp string
}

var (
	ErrLoginFailed           = errors.New("Login Failed. Check username and password.")
	ErrLoginTokenNotFound    = errors.New("could not find login token")
	ErrDataDownload          = errors.New("data download failed")
	ErrUnsupportedReportType = errors.New("not implemented")
	ErrNetworkNotFound       = errors.New("network not found")
)

// DataDownloadError is returned when the dashboard answers but not with the
// data that was asked for.
type DataDownloadError struct {
	Message string
}

func (e *DataDownloadError) Error() string {
	return e.Message
}

func (e *DataDownloadError) Is(target error) bool {
	return target == ErrDataDownload
}

// UnsupportedReportTypeError is a programming error, it means a ReportType
// outside of the declared constants made its way into a request.
type UnsupportedReportTypeError struct {
	Type ReportType
}

func (e *UnsupportedReportTypeError) Error() string {
	return fmt.Sprintf("%s: report type %d not supported", ErrUnsupportedReportType.Error(), int(e.Type))
}

func (e *UnsupportedReportTypeError) Is(target error) bool {
	return target == ErrUnsupportedReportType
}
