package commands

import (
	"fmt"
	"log/slog"
	"opendns-stats/internal/store"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var networksDb *string

func init() {
	networksDb = networksCmd.Flags().String("db", "", "A sqlite database to save the network list to.")
	rootCmd.AddCommand(networksCmd)
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}

var networksCmd = &cobra.Command{
	Use:   "networks [--db <path/to/output.db>]",
	Short: "Lists the networks the account can see.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := readConfig(*configPath)
		if err != nil {
			return err
		}
		err = newPrompter(os.Stdin, os.Stderr).fillCredentials(&cfg)
		if err != nil {
			return err
		}

		loader, err := login(ctx, cfg)
		if err != nil {
			return err
		}
		defer loader.Close()

		networks, err := loader.LoadAllUserNetworks(ctx)
		if err != nil {
			return err
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Id", "Name", "Ip"})
		for _, n := range networks {
			t.AppendRow(table.Row{n.NetworkId, n.NetworkName, n.NetworkIp})
		}
		t.Render()

		if *networksDb != "" {
			db, err := store.Open(ctx, *networksDb)
			if err != nil {
				return err
			}
			defer db.Close()

			err = db.SaveNetworks(ctx, networks, clock.Now())
			if err != nil {
				return fmt.Errorf("save networks: %w", err)
			}
			slog.Info("saved networks", "db", *networksDb, "count", len(networks))
		}
		return nil
	},
}
