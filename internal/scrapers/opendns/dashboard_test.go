package opendns

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"opendns-stats/internal/components/telemetry"
	"strconv"
	"strings"
	"sync"
	"testing"

	_ "embed"
)

//go:embed testdata/login_page.html
var loginPageFixture string

//go:embed testdata/networks_page.html
var networksPageFixture string

//go:embed testdata/error_page.html
var errorPageFixture string

const (
	fixtureToken    = "4f1c9a0be27d83"
	fixtureUsername = "user+1@example.com"
	fixturePassword = "pa ss"
)

type loginSubmission struct {
	ContentType string
	Body        string
}

// fakeDashboard mimics the parts of the dashboard the loader talks to: a
// login form guarded by a session cookie, paginated csv reports and the
// network selector page.
type fakeDashboard struct {
	server *httptest.Server

	LoginPage   string
	NetworkPage string

	mutex sync.Mutex
	// reports maps "<network>/<type>/<date>" to the body of every page,
	// pages past the end of the slice are served empty.
	reports     map[string][]string
	submissions []loginSubmission
	csvRequests []string
}

func newFakeDashboard(t testing.TB) *fakeDashboard {
	d := &fakeDashboard{
		LoginPage:   loginPageFixture,
		NetworkPage: networksPageFixture,
		reports:     map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", d.handleLoginPage)
	mux.HandleFunc("POST /login", d.handleLoginSubmit)
	mux.HandleFunc("GET /stats/{network}/{type}/{date}/{page}", d.handleCsv)
	mux.HandleFunc("GET /networks", d.handleNetworks)

	d.server = httptest.NewServer(mux)
	t.Cleanup(d.server.Close)
	return d
}

func (d *fakeDashboard) options() Options {
	return Options{
		NetworkId:      "1234567",
		LoginUrl:       d.server.URL + "/login",
		CsvUrl:         d.server.URL + "/stats/(NETWORK)/(TYPE)/(DATE)/page(PAGE).csv",
		NetworkListUrl: d.server.URL + "/networks",
	}
}

func (d *fakeDashboard) SetReport(key string, pages ...string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.reports[key] = pages
}

func (d *fakeDashboard) Submissions() []loginSubmission {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]loginSubmission{}, d.submissions...)
}

func (d *fakeDashboard) CsvRequests() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]string{}, d.csvRequests...)
}

func (d *fakeDashboard) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "anonymous", Path: "/"})
	fmt.Fprint(w, d.LoginPage)
}

func (d *fakeDashboard) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d.mutex.Lock()
	d.submissions = append(d.submissions, loginSubmission{
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
	})
	d.mutex.Unlock()

	session, err := r.Cookie("session")
	if err != nil || session.Value != "anonymous" {
		fmt.Fprint(w, "<html><body>Your session has expired.</body></html>")
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil ||
		form.Get("formtoken") != fixtureToken ||
		form.Get("username") != fixtureUsername ||
		form.Get("password") != fixturePassword {
		fmt.Fprint(w, "<html><body>We couldn't sign you in.</body></html>")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "session", Value: "authenticated", Path: "/"})
	fmt.Fprint(w, "<html><body>Logging you in...</body></html>")
}

func (d *fakeDashboard) authenticated(r *http.Request) bool {
	session, err := r.Cookie("session")
	return err == nil && session.Value == "authenticated"
}

func (d *fakeDashboard) handleCsv(w http.ResponseWriter, r *http.Request) {
	d.mutex.Lock()
	d.csvRequests = append(d.csvRequests, r.URL.Path)
	d.mutex.Unlock()

	if !d.authenticated(r) {
		return
	}

	pageSegment := r.PathValue("page")
	page, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(pageSegment, "page"), ".csv"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	key := fmt.Sprintf("%s/%s/%s", r.PathValue("network"), r.PathValue("type"), r.PathValue("date"))
	d.mutex.Lock()
	pages := d.reports[key]
	d.mutex.Unlock()
	if page-1 < len(pages) {
		fmt.Fprint(w, pages[page-1])
	}
}

func (d *fakeDashboard) handleNetworks(w http.ResponseWriter, r *http.Request) {
	if !d.authenticated(r) {
		fmt.Fprint(w, d.LoginPage)
		return
	}
	fmt.Fprint(w, d.NetworkPage)
}

// newTestLoader creates a loader pointed at `d` that records its telemetry.
func newTestLoader(t testing.TB, d *fakeDashboard, configure func(*Options)) (*Loader, *telemetry.RecordingAPI) {
	tel := &telemetry.RecordingAPI{}
	opts := d.options()
	opts.Telemetry = tel
	if configure != nil {
		configure(&opts)
	}

	loader, err := NewLoader(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		loader.Close()
	})
	return loader, tel
}
