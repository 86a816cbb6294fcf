package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/storysync/internal/app"
	"github.com/MrSnakeDoc/storysync/internal/domain"
)

// NewPendingCommand groups the offline queue commands.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect and edit the offline queue",
	}
	cmd.AddCommand(newPendingListCommand(rootOpts))
	cmd.AddCommand(newPendingRemoveCommand(rootOpts))
	return cmd
}

type pendingRow struct {
	TempID      string     `json:"tempId"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	Synced      bool       `json:"synced"`
	ServerID    string     `json:"serverId,omitempty"`
	SyncedAt    *time.Time `json:"syncedAt,omitempty"`
}

func newPendingListCommand(rootOpts *RootOptions) *cobra.Command {
	var unsynced bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				var (
					records []*domain.PendingStory
					err     error
				)
				if unsynced {
					records, err = a.Store().GetUnsyncedPending(ctx)
				} else {
					records, err = a.Store().GetAllPending(ctx)
				}
				if err != nil {
					return err
				}

				rows := make([]pendingRow, 0, len(records))
				for _, p := range records {
					rows = append(rows, pendingRow{
						TempID:      p.TempID,
						Description: p.Description,
						CreatedAt:   p.CreatedAt,
						Synced:      p.Synced,
						ServerID:    p.ServerID,
						SyncedAt:    p.SyncedAt,
					})
				}

				return output(cmd.OutOrStdout(), rootOpts, rows, func(w io.Writer) {
					if len(rows) == 0 {
						fmt.Fprintln(w, "no pending stories")
						return
					}
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "TEMP ID\tCREATED\tSYNCED\tDESCRIPTION")
					for _, r := range rows {
						state := "no"
						if r.Synced {
							state = "yes " + r.ServerID
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.TempID, r.CreatedAt.Format(time.RFC3339), state, r.Description)
					}
					_ = tw.Flush()
				})
			})
		},
	}

	cmd.Flags().BoolVar(&unsynced, "unsynced", false, "only stories not yet confirmed by the server")
	return cmd
}

func newPendingRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <temp-id>...",
		Aliases: []string{"remove"},
		Short:   "Discard queued stories",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				for _, id := range args {
					if err := a.Store().RemovePending(ctx, id); err != nil {
						return fmt.Errorf("remove %s: %w", id, err)
					}
				}
				return output(cmd.OutOrStdout(), rootOpts, map[string][]string{"removed": args}, func(w io.Writer) {
					for _, id := range args {
						fmt.Fprintf(w, "removed %s\n", id)
					}
				})
			})
		},
	}
}
