// loader.go contains the session handling for the opendns dashboard, the
// reports and the network directory are in csv.go and networks.go.

package opendns

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"opendns-stats/internal/components/assert"
	"opendns-stats/internal/components/telemetry"
	"opendns-stats/lib/restyutil"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("opendns-stats/scrapers/opendns")

const (
	report_loader_login                  = "loader.login"
	report_loader_fetch_csv              = "loader.fetch-csv"
	report_loader_load_all_user_networks = "loader.load-all-user-networks"
)

const (
	DefaultLoginUrl       = "https://login.opendns.com/?source=dashboard"
	DefaultCsvUrl         = "https://dashboard.opendns.com/stats/(NETWORK)/(TYPE)/(DATE)/page(PAGE).csv"
	DefaultNetworkListUrl = "https://dashboard.opendns.com/stats/all/start/"
	DefaultMaxPages       = 1000
	DefaultTimeout        = 30 * time.Second
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

var ErrLoaderClosed = errors.New("loader is closed")

type Options struct {
	// NetworkId is the dashboard id of the network reports are fetched for,
	// it is the number in urls like https://dashboard.opendns.com/stats/123456789/totalrequests/2016-02-18.html
	NetworkId string

	LoginUrl string
	// CsvUrl may contain the placeholders (NETWORK), (TYPE), (DATE) and (PAGE),
	// they are replaced literally before each request.
	CsvUrl         string
	NetworkListUrl string
	// MaxPages bounds the pagination loop, at most MaxPages-1 pages are fetched.
	MaxPages int

	Timeout          time.Duration
	UserAgent        string
	CloudflareBypass bool

	// Telemetry defaults to telemetry.SlogAPI.
	Telemetry telemetry.API
	// HttpDump receives every request/response pair when set.
	HttpDump restyutil.InstrumentOutput
}

func (o Options) withDefaults() Options {
	if o.LoginUrl == "" {
		o.LoginUrl = DefaultLoginUrl
	}
	if o.CsvUrl == "" {
		o.CsvUrl = DefaultCsvUrl
	}
	if o.NetworkListUrl == "" {
		o.NetworkListUrl = DefaultNetworkListUrl
	}
	if o.MaxPages == 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Telemetry == nil {
		o.Telemetry = telemetry.SlogAPI{}
	}
	return o
}

// Loader is one logged in dashboard session. It is not safe for concurrent
// use, and it must be closed once it is no longer needed.
type Loader struct {
	opts          Options
	http          *resty.Client
	tel           telemetry.API
	authenticated bool
}

func NewLoader(opts Options) (*Loader, error) {
	opts = opts.withDefaults()
	if opts.MaxPages < 0 {
		return nil, fmt.Errorf("max pages must not be negative, got %d", opts.MaxPages)
	}

	assert.Positive(opts.MaxPages, "max pages")
	tel := telemetry.NewScopedAPI("opendns_scraper", opts.Telemetry)

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(httpClient, tel, opts.HttpDump)

	return &Loader{
		opts: opts,
		http: httpClient,
		tel:  tel,
	}, nil
}

func (l *Loader) NetworkId() string {
	return l.opts.NetworkId
}

// SetNetworkId changes the network subsequent reports are fetched for, the
// session stays logged in.
func (l *Loader) SetNetworkId(id string) {
	l.opts.NetworkId = id
}

func (l *Loader) Authenticated() bool {
	return l.authenticated
}

// Close releases the http session. It is safe to call more than once.
func (l *Loader) Close() error {
	if l.http == nil {
		return nil
	}
	l.http.GetClient().CloseIdleConnections()
	l.http.SetCookieJar(nil)
	l.http = nil
	l.authenticated = false
	return nil
}

// get returns the raw response body, 4xx and 5xx responses are errors.
func (l *Loader) get(ctx context.Context, url string) (string, error) {
	if l.http == nil {
		return "", ErrLoaderClosed
	}
	res, err := l.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("GET %s: unexpected status %s", url, res.Status())
	}
	return string(res.Body()), nil
}

// Login performs the dashboard's two step form login, the session cookies it
// collects are what authenticates every later request.
func (l *Loader) Login(ctx context.Context, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "loader:Login")
	defer span.End()

	l.authenticated = false
	loginError := func(err error) error {
		return fmt.Errorf("opendns scraper: login: %w", err)
	}

	loginPage, err := l.get(ctx, l.opts.LoginUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		l.tel.ReportBroken(
			report_loader_login,
			fmt.Errorf("login page request: %w", err),
		)
		return loginError(err)
	}

	token := ExtractLoginToken(loginPage)
	if token == "" {
		span.SetStatus(codes.Error, "failed to find login token")
		l.tel.ReportBroken(report_loader_login, ErrLoginTokenNotFound)
		return loginError(ErrLoginTokenNotFound)
	}

	body := fmt.Sprintf(
		"formtoken=%s&username=%s&password=%s&sign_in_submit=foo",
		token,
		escapeFormValue(creds.Username),
		escapeFormValue(creds.Password),
	)
	res, err := l.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(body).
		Post(l.opts.LoginUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post login form")
		l.tel.ReportBroken(
			report_loader_login,
			fmt.Errorf("login request: %w", err),
		)
		return loginError(err)
	}

	if !IsLoginSuccess(string(res.Body())) {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		l.tel.ReportWarning(report_loader_login, "login marker not found", res.Status())
		return ErrLoginFailed
	}

	l.authenticated = true
	return nil
}
