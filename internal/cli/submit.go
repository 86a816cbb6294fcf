package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/storysync/internal/app"
	"github.com/MrSnakeDoc/storysync/internal/submission"
)

type submitOptions struct {
	description string
	photoPath   string
	lat, lon    float64
	guest       bool
}

// NewSubmitCommand submits one story, queueing it when the API is down.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a story, or queue it while offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(opts.photoPath)
			if err != nil {
				return fmt.Errorf("failed to read photo: %w", err)
			}
			draft := submission.Draft{Description: opts.description, Photo: data}
			if cmd.Flags().Changed("lat") {
				draft.Lat = &opts.lat
			}
			if cmd.Flags().Changed("lon") {
				draft.Lon = &opts.lon
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				a.CheckConnectivity(ctx)
				res, err := a.Orchestrator().Submit(ctx, draft, !opts.guest)
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), rootOpts, res, func(w io.Writer) {
					if res.Outcome == submission.OutcomeOffline {
						fmt.Fprintf(w, "queued %s (%s)\n", res.TempID, res.Message)
						return
					}
					if res.Story != nil && res.Story.ID != "" {
						fmt.Fprintf(w, "created %s: %s\n", res.Story.ID, res.Message)
						return
					}
					fmt.Fprintln(w, res.Message)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "story description")
	cmd.Flags().StringVarP(&opts.photoPath, "photo", "p", "", "path of the photo file")
	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "longitude")
	cmd.Flags().BoolVar(&opts.guest, "guest", false, "submit without credentials")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("photo")

	return cmd
}
