package store

import (
	"context"
	"opendns-stats/internal/scrapers/opendns"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openTestStore(t testing.TB) Store {
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestReports(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	req := opendns.ReportRequest{
		NetworkId:  "1234567",
		Type:       opendns.TopDomains,
		DateFilter: "2016-02-26",
	}

	_, _, err := s.LoadReport(ctx, req)
	require.ErrorIs(t, err, ErrReportNotFound)

	fetchedAt := time.Date(2016, 2, 27, 8, 30, 0, 0, time.UTC)
	report := opendns.Report{
		Request: req,
		Lines:   []string{"Rank,Domain", "1,example.com", "2,example.org"},
		Pages:   2,
	}
	require.NoError(t, s.SaveReport(ctx, report, fetchedAt))

	loaded, loadedAt, err := s.LoadReport(ctx, req)
	require.NoError(t, err)
	require.True(t, fetchedAt.Equal(loadedAt))
	diff := cmp.Diff(report, loaded)
	if diff != "" {
		t.Fatal(diff)
	}

	// downloading the same report again replaces it
	replacement := opendns.Report{
		Request:   req,
		Lines:     []string{"Rank,Domain"},
		Pages:     1,
		Truncated: true,
	}
	require.NoError(t, s.SaveReport(ctx, replacement, fetchedAt.Add(time.Hour)))

	loaded, loadedAt, err = s.LoadReport(ctx, req)
	require.NoError(t, err)
	require.True(t, fetchedAt.Add(time.Hour).Equal(loadedAt))
	diff = cmp.Diff(replacement, loaded)
	if diff != "" {
		t.Fatal(diff)
	}

	other := req
	other.Type = opendns.BlockedDomains
	_, _, err = s.LoadReport(ctx, other)
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestEmptyReport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := opendns.Report{
		Request: opendns.ReportRequest{
			NetworkId:  "1234567",
			Type:       opendns.UniqueIps,
			DateFilter: "2016-02-18to2016-02-25",
		},
		Lines: []string{},
	}
	require.NoError(t, s.SaveReport(ctx, report, time.Unix(0, 0)))

	loaded, _, err := s.LoadReport(ctx, report.Request)
	require.NoError(t, err)
	require.NotNil(t, loaded.Lines)
	require.Empty(t, loaded.Lines)
}

func TestNetworks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	networks, err := s.Networks(ctx)
	require.NoError(t, err)
	require.Empty(t, networks)

	require.NoError(t, s.SaveNetworks(ctx, []opendns.UserNetworkDescriptor{
		{NetworkId: "7654321", NetworkName: "Office", NetworkIp: "198.51.100.0/24"},
		{NetworkId: "1234567", NetworkName: "Home", NetworkIp: "203.0.113.7"},
	}, time.Now()))
	require.NoError(t, s.SaveNetworks(ctx, []opendns.UserNetworkDescriptor{
		{NetworkId: "7654321", NetworkName: "Office (main)", NetworkIp: "198.51.100.0/24"},
	}, time.Now()))

	networks, err = s.Networks(ctx)
	require.NoError(t, err)
	expected := []opendns.UserNetworkDescriptor{
		{NetworkId: "1234567", NetworkName: "Home", NetworkIp: "203.0.113.7"},
		{NetworkId: "7654321", NetworkName: "Office (main)", NetworkIp: "198.51.100.0/24"},
	}
	diff := cmp.Diff(expected, networks)
	if diff != "" {
		t.Fatal(diff)
	}
}
