package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/storysync/internal/app"
	"github.com/MrSnakeDoc/storysync/internal/gateway"
)

// NewLoginCommand stores a session token in the configured token file.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token to STORYSYNC_TOKEN_FILE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if cfg.TokenFile == "" {
				return errors.New("STORYSYNC_TOKEN_FILE must be set to save the session")
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				res, err := a.Gateway().Login(ctx, email, password)
				if err != nil {
					return gateway.Classify(err)
				}
				if err := gateway.SaveTokenFile(cfg.TokenFile, res.Token); err != nil {
					return err
				}
				out := map[string]string{"userId": res.UserID, "name": res.Name}
				return output(cmd.OutOrStdout(), rootOpts, out, func(w io.Writer) {
					fmt.Fprintf(w, "logged in as %s\n", res.Name)
				})
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
