package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/deverp-client/pkg/prefs"
)

func ViewModeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view-mode",
		Short: "Show or change the preferred product view (card or table)",
	}

	store := func() (*prefs.Store, error) {
		cfg, err := opts.loadConfig()
		if err != nil {
			return nil, err
		}
		return prefsStoreFor(cfg)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the preferred view",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := store()
				if err != nil {
					return err
				}
				mode, err := s.Load()
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("! "+err.Error()))
				}
				fmt.Fprintln(cmd.OutOrStdout(), mode)
				return nil
			},
		},
		&cobra.Command{
			Use:       "set <card|table>",
			Short:     "Store the preferred view",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(prefs.ViewCard), string(prefs.ViewTable)},
			RunE: func(cmd *cobra.Command, args []string) error {
				mode, err := prefs.ParseViewMode(args[0])
				if err != nil {
					return err
				}
				s, err := store()
				if err != nil {
					return err
				}
				if err := s.Save(mode); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), mode)
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle",
			Short: "Switch between card and table view",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := store()
				if err != nil {
					return err
				}
				mode, err := s.Toggle()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), mode)
				return nil
			},
		},
	)
	return cmd
}
