package commands

import (
	"fmt"
	"log/slog"
	"opendns-stats/internal/components/chrono"
	"opendns-stats/internal/scrapers/opendns"
	"opendns-stats/internal/store"
	"os"

	"github.com/spf13/cobra"
)

var (
	csvType     *string
	csvNetwork  *string
	csvMaxPages *int
	csvDb       *string
)

var clock chrono.API = chrono.NewStandardImpl()

func init() {
	csvType = csvCmd.Flags().StringP("type", "t", opendns.TopDomains.String(), "The report to download (topdomains, blockeddomains, totalrequests, uniquedomains, uniqueips, requesttypes).")
	csvNetwork = csvCmd.Flags().StringP("network", "n", "", "The network id or name, defaults to network_id in the config.")
	csvMaxPages = csvCmd.Flags().Int("max-pages", 0, "The page budget, defaults to max_pages in the config.")
	csvDb = csvCmd.Flags().String("db", "", "A sqlite database to save the report to.")
	rootCmd.AddCommand(csvCmd)
}

var csvCmd = &cobra.Command{
	Use:   "csv [YYYY-MM-DD | YYYY-MM-DDtoYYYY-MM-DD]",
	Short: "Downloads a statistics report and prints it as csv, the date defaults to today.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dateFilter := opendns.FormatDay(clock.Now())
		if len(args) > 0 {
			dateFilter = args[0]
		}
		err := opendns.ValidateDateFilter(dateFilter)
		if err != nil {
			return err
		}
		reportType, err := opendns.ParseReportType(*csvType)
		if err != nil {
			return err
		}

		cfg, err := readConfig(*configPath)
		if err != nil {
			return err
		}
		if *csvMaxPages > 0 {
			cfg.MaxPages = *csvMaxPages
		}
		if *csvNetwork != "" {
			cfg.NetworkId = *csvNetwork
		}

		p := newPrompter(os.Stdin, os.Stderr)
		err = p.fillCredentials(&cfg)
		if err != nil {
			return err
		}
		if cfg.NetworkId == "" {
			cfg.NetworkId, err = p.ask("Network (id or name)")
			if err != nil {
				return err
			}
		}

		loader, err := login(ctx, cfg)
		if err != nil {
			return err
		}
		defer loader.Close()

		network, err := selectNetwork(ctx, loader, cfg.NetworkId)
		if err != nil {
			return err
		}

		report, err := loader.FetchReport(ctx, opendns.ReportRequest{
			NetworkId:  network.NetworkId,
			Type:       reportType,
			DateFilter: dateFilter,
		})
		if err != nil {
			return err
		}
		if report.Truncated {
			slog.Warn("report is truncated, raise --max-pages to download the rest", "pages", report.Pages)
		}

		out := cmd.OutOrStdout()
		for _, line := range report.Lines {
			fmt.Fprintln(out, line)
		}

		if *csvDb != "" {
			db, err := store.Open(ctx, *csvDb)
			if err != nil {
				return err
			}
			defer db.Close()

			err = db.SaveReport(ctx, report, clock.Now())
			if err != nil {
				return fmt.Errorf("save report: %w", err)
			}
			slog.Info("saved report", "db", *csvDb, "lines", len(report.Lines))
		}
		return nil
	},
}
