package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/service"
)

const cliUser = "cli"

var (
	activityQR    bool
	activityLimit int
	exportFormat  string
	exportOutput  string
)

func activityCmdLog(svc *service.Services) *activity.Log {
	if activityQR {
		return svc.QRLog
	}
	return svc.Activity
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Inspect and manage the activity logs",
}

var listActivityCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent activity, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
			entries, err := activityCmdLog(svc).All(ctx)
			if err != nil {
				return err
			}
			if activityLimit > 0 && len(entries) > activityLimit {
				entries = entries[:activityLimit]
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tUSER\tACTION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Type, e.User, e.Action)
			}
			return w.Flush()
		})
	},
}

var clearActivityCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear an activity log, leaving an \"Activity cleared\" marker",
	Run: func(cmd *cobra.Command, args []string) {
		withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
			log := activityCmdLog(svc)
			if _, err := log.Clear(ctx, cliUser); err != nil {
				return err
			}
			fmt.Printf("Cleared %s log\n", log.Name())
			return nil
		})
	},
}

var exportActivityCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an activity log as CSV or JSON",
	Run: func(cmd *cobra.Command, args []string) {
		withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
			entries, err := activityCmdLog(svc).All(ctx)
			if err != nil {
				return err
			}

			var out io.Writer = os.Stdout
			if exportOutput != "" && exportOutput != "-" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			switch strings.ToLower(exportFormat) {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case "csv":
				return writeActivityCSV(out, entries)
			default:
				return fmt.Errorf("unsupported export format %q", exportFormat)
			}
		})
	},
}

func writeActivityCSV(out io.Writer, entries []activity.Entry) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "timestamp", "type", "user", "action", "data", "metadata"}); err != nil {
		return err
	}
	for _, e := range entries {
		meta := ""
		if len(e.Metadata) > 0 {
			b, err := json.Marshal(e.Metadata)
			if err != nil {
				return err
			}
			meta = string(b)
		}
		record := []string{e.ID, e.Timestamp.UTC().Format(time.RFC3339), e.Type, e.User, e.Action, e.Data, meta}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// withServices runs fn against services built without the users file.
func withServices(ctx context.Context, fn func(context.Context, *service.Services) error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Storage.Shared() {
		slog.Warn("Storage is not shared with the server, changes made here are lost on exit", "storage", cfg.Storage.Type)
	}
	svc, err := service.NewServices(ctx, cfg, provider, false)
	if err != nil {
		fatal("Failed to initialize services", err)
	}
	err = fn(ctx, svc)
	svc.Close()
	if err != nil {
		fatal("Command failed", err)
	}
}

func init() {
	rootCmd.AddCommand(activityCmd)
	activityCmd.PersistentFlags().BoolVar(&activityQR, "qr", false, "use the QR activity log")
	listActivityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20, "maximum entries to show, 0 for all")
	exportActivityCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format: csv or json")
	exportActivityCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	activityCmd.AddCommand(listActivityCmd, clearActivityCmd, exportActivityCmd)
}
