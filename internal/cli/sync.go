package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/storysync/internal/app"
	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/syncer"
)

type syncReport struct {
	Attempted int          `json:"attempted"`
	Synced    int          `json:"synced"`
	Skipped   int          `json:"skipped,omitempty"`
	Failed    []syncFailed `json:"failed,omitempty"`
}

type syncFailed struct {
	TempID string `json:"tempId"`
	Error  string `json:"error"`
}

func report(res syncer.DrainResult) syncReport {
	r := syncReport{Attempted: res.Attempted, Synced: res.Synced, Skipped: res.Skipped}
	for _, f := range res.Failed {
		r.Failed = append(r.Failed, syncFailed{TempID: f.TempID, Error: f.Err.Error()})
	}
	return r
}

// NewSyncCommand drains the queue once, or syncs the named records.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [temp-id]...",
		Short: "Synchronize queued stories now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				if !a.CheckConnectivity(ctx) {
					return fmt.Errorf("story API unreachable: %w", domain.ErrNetworkUnavailable)
				}

				if len(args) == 0 {
					res, ok := a.Engine().SyncNow(ctx)
					if !ok {
						return errors.New("sync refused: already running or offline")
					}
					return printReport(cmd.OutOrStdout(), rootOpts, report(res))
				}

				var res syncer.DrainResult
				for _, id := range args {
					res.Attempted++
					if _, err := a.Engine().SyncOne(ctx, id); err != nil {
						res.Failed = append(res.Failed, syncer.FailedRecord{TempID: id, Err: err})
						continue
					}
					res.Synced++
				}
				return printReport(cmd.OutOrStdout(), rootOpts, report(res))
			})
		},
	}
}

func printReport(w io.Writer, opts *RootOptions, r syncReport) error {
	err := output(w, opts, r, func(w io.Writer) {
		fmt.Fprintf(w, "synced %d of %d\n", r.Synced, r.Attempted)
		if r.Skipped > 0 {
			fmt.Fprintf(w, "skipped %d already handled\n", r.Skipped)
		}
		for _, f := range r.Failed {
			fmt.Fprintf(w, "  %s: %s\n", f.TempID, f.Error)
		}
	})
	if err == nil && len(r.Failed) > 0 {
		return fmt.Errorf("%d stories failed to sync", len(r.Failed))
	}
	return err
}
