package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

type ReportKind int

const (
	KindBroken ReportKind = iota
	KindWarning
	KindDebug
	KindCount
)

type Report struct {
	Kind   ReportKind
	Id     string
	Params []any
	Count  int64
}

// RecordingAPI is an API that keeps every report in memory, it is meant to be
// handed to components under test so the test can assert on what was reported.
type RecordingAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *RecordingAPI) push(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.push(Report{Kind: KindBroken, Id: id, Params: params})
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.push(Report{Kind: KindWarning, Id: id, Params: params})
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	r.push(Report{Kind: KindDebug, Id: msg, Params: params})
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.push(Report{Kind: KindCount, Id: id, Count: count})
}

// Reports returns a copy of everything reported so far.
func (r *RecordingAPI) Reports() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns the reports of the given kind whose id ends with `suffix`,
// the suffix match lets tests ignore ScopedAPI namespaces.
func (r *RecordingAPI) Find(kind ReportKind, suffix string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Kind == kind && strings.HasSuffix(report.Id, suffix) {
			out = append(out, report)
		}
	}
	return out
}

func (r Report) String() string {
	return fmt.Sprintf("%d %s %v %d", r.Kind, r.Id, r.Params, r.Count)
}
