package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := &RecordingAPI{}
	scoped := NewScopedAPI("opendns_scraper", NewScopedAPI("outer", recorder))

	err := errors.New("boom")
	scoped.ReportBroken("loader.login", err)
	scoped.ReportWarning("loader.fetch-csv", "truncated", 3)
	scoped.ReportDebug("loader.fetch-csv", 1)
	scoped.ReportCount("loader.load-all-user-networks", 2)

	reports := recorder.Reports()
	require.Len(t, reports, 4)
	require.Equal(t, "outer: opendns_scraper: loader.login", reports[0].Id)
	require.Equal(t, []any{err}, reports[0].Params)

	warnings := recorder.Find(KindWarning, "loader.fetch-csv")
	require.Len(t, warnings, 1)
	require.Equal(t, []any{"truncated", 3}, warnings[0].Params)

	counts := recorder.Find(KindCount, "loader.load-all-user-networks")
	require.Len(t, counts, 1)
	require.Equal(t, int64(2), counts[0].Count)

	require.Empty(t, recorder.Find(KindBroken, "loader.fetch-csv"))
}

func TestScopedAPIRequiresNamespace(t *testing.T) {
	require.Panics(t, func() {
		NewScopedAPI("", &RecordingAPI{})
	})
}
