package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"opendns-stats/internal/components/assert"
	"opendns-stats/internal/scrapers/opendns"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var ErrReportNotFound = errors.New("report not found")

// Store keeps downloaded reports and the network directory in sqlite.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	assert.NotNil(database)
	return Store{db: database}
}

// Open opens (or creates) the sqlite database at `path` and applies the
// schema, ":memory:" is accepted.
func Open(ctx context.Context, path string) (Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	// an in-memory database only lives as long as its connection
	database.SetMaxOpenConns(1)

	_, err = database.ExecContext(ctx, Schema)
	if err != nil {
		database.Close()
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return NewStore(database), nil
}

func (s Store) Close() error {
	return s.db.Close()
}

// SaveReport stores `report`, replacing a previous download of the same
// network, report type and date filter.
func (s Store) SaveReport(ctx context.Context, report opendns.Report, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	req := report.Request
	var previous int64
	err = tx.QueryRowContext(
		ctx,
		"select id from report where network_id = ? and report_type = ? and date_filter = ?",
		req.NetworkId, req.Type.String(), req.DateFilter,
	).Scan(&previous)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, "delete from report_line where report_id = ?", previous)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "delete from report where id = ?", previous)
		if err != nil {
			return err
		}
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	res, err := tx.ExecContext(
		ctx,
		`insert into report(network_id, report_type, date_filter, pages, truncated, fetched_at)
		values (?, ?, ?, ?, ?, ?)`,
		req.NetworkId,
		req.Type.String(),
		req.DateFilter,
		report.Pages,
		report.Truncated,
		fetchedAt.Unix(),
	)
	if err != nil {
		return err
	}
	reportId, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "insert into report_line(report_id, line_number, content) values (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, line := range report.Lines {
		_, err = stmt.ExecContext(ctx, reportId, i, line)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadReport returns a previously saved report and when it was fetched.
func (s Store) LoadReport(ctx context.Context, req opendns.ReportRequest) (opendns.Report, time.Time, error) {
	var (
		reportId  int64
		pages     int
		truncated bool
		fetchedAt int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`select id, pages, truncated, fetched_at from report
		where network_id = ? and report_type = ? and date_filter = ?`,
		req.NetworkId, req.Type.String(), req.DateFilter,
	).Scan(&reportId, &pages, &truncated, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return opendns.Report{}, time.Time{}, fmt.Errorf(
			"%w: %s %s %s", ErrReportNotFound, req.NetworkId, req.Type, req.DateFilter,
		)
	}
	if err != nil {
		return opendns.Report{}, time.Time{}, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		"select content from report_line where report_id = ? order by line_number",
		reportId,
	)
	if err != nil {
		return opendns.Report{}, time.Time{}, err
	}
	defer rows.Close()

	lines := []string{}
	for rows.Next() {
		var line string
		err := rows.Scan(&line)
		if err != nil {
			return opendns.Report{}, time.Time{}, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return opendns.Report{}, time.Time{}, err
	}

	return opendns.Report{
		Request:   req,
		Lines:     lines,
		Pages:     pages,
		Truncated: truncated,
	}, time.Unix(fetchedAt, 0), nil
}

// SaveNetworks upserts the network directory.
func (s Store) SaveNetworks(ctx context.Context, networks []opendns.UserNetworkDescriptor, updatedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, n := range networks {
		_, err := tx.ExecContext(
			ctx,
			`insert into network(id, name, ip, updated_at) values (?, ?, ?, ?)
			on conflict(id) do update set
				name = excluded.name,
				ip = excluded.ip,
				updated_at = excluded.updated_at`,
			n.NetworkId, n.NetworkName, n.NetworkIp, updatedAt.Unix(),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Networks lists the stored networks ordered by id.
func (s Store) Networks(ctx context.Context) ([]opendns.UserNetworkDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, "select id, name, ip from network order by id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var networks []opendns.UserNetworkDescriptor
	for rows.Next() {
		var n opendns.UserNetworkDescriptor
		err := rows.Scan(&n.NetworkId, &n.NetworkName, &n.NetworkIp)
		if err != nil {
			return nil, err
		}
		networks = append(networks, n)
	}
	return networks, rows.Err()
}
