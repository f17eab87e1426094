package opendns

import (
	"context"
	"fmt"
	"opendns-stats/lib/textutil"
	"strings"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/codes"
)

// LoadAllUserNetworks lists every network the logged in account can see.
func (l *Loader) LoadAllUserNetworks(ctx context.Context) ([]UserNetworkDescriptor, error) {
	ctx, span := tracer.Start(ctx, "loader:LoadAllUserNetworks")
	defer span.End()

	page, err := l.get(ctx, l.opts.NetworkListUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch network list")
		l.tel.ReportBroken(
			report_loader_load_all_user_networks,
			fmt.Errorf("fetch: %w", err),
			l.opts.NetworkListUrl,
		)
		return nil, fmt.Errorf("opendns scraper: load networks: %w", err)
	}

	networks := ParseNetworkDirectory(page)
	if len(networks) == 0 {
		// either the account has no networks or the page layout changed,
		// there is no telling the two apart
		span.SetStatus(codes.Error, "no networks found")
		l.tel.ReportWarning(report_loader_load_all_user_networks, "no networks found", l.opts.NetworkListUrl)
		return nil, &DataDownloadError{
			Message: fmt.Sprintf("could not load user networks from %s", l.opts.NetworkListUrl),
		}
	}

	l.tel.ReportCount(report_loader_load_all_user_networks, int64(len(networks)))
	return networks, nil
}

const minNetworkNameSimilarity = 0.8

// ResolveNetwork picks the network `query` refers to. An exact id wins,
// then a name that matches ignoring case and whitespace, then the closest
// name by Jaro-Winkler similarity.
func ResolveNetwork(networks []UserNetworkDescriptor, query string) (UserNetworkDescriptor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return UserNetworkDescriptor{}, fmt.Errorf("%w: empty query", ErrNetworkNotFound)
	}

	for _, n := range networks {
		if n.NetworkId == query {
			return n, nil
		}
	}
	normalized := textutil.NormalizeName(query)
	for _, n := range networks {
		if textutil.NormalizeName(n.NetworkName) == normalized {
			return n, nil
		}
	}

	var best UserNetworkDescriptor
	var bestSimilarity float64
	for _, n := range networks {
		similarity := matchr.JaroWinkler(textutil.NormalizeName(n.NetworkName), normalized, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = n
		}
	}
	if bestSimilarity >= minNetworkNameSimilarity {
		return best, nil
	}

	return UserNetworkDescriptor{}, fmt.Errorf("%w: '%s'", ErrNetworkNotFound, query)
}
