package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/deverp-client/pkg/workflow"
)

func RequestsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "View and act on inventory requests",
	}
	cmd.AddCommand(
		requestsShowCmd(opts),
		requestsActionCmd(opts, workflow.ActionApprove),
		requestsActionCmd(opts, workflow.ActionReject),
		requestsActionCmd(opts, workflow.ActionFulfill),
		requestsActionCmd(opts, workflow.ActionDelete),
		requestsCreateCmd(opts),
		requestsURLCmd(opts),
	)
	return cmd
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid request id %q", arg)
	}
	return id, nil
}

func requestsShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a request with its history and available actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := workflow.NewService(a.client, a.center)
			req, err := svc.Details(cmd.Context(), id)
			if err != nil {
				a.flushNotices(cmd.ErrOrStderr())
				return err
			}
			printRequest(cmd.OutOrStdout(), req)
			return nil
		},
	}
}

func printRequest(w io.Writer, r workflow.Request) {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Request #%d", r.ID)) + "  " + accentStyle.Render(r.Status),
		"Requester:  " + r.RequesterName,
		"Department: " + r.DepartmentLabel(),
		"Item:       " + r.ItemName,
		"Quantity:   " + r.QuantityLabel(),
		"Priority:   " + r.Priority,
		"Created:    " + r.CreatedAt,
		"Reason:     " + r.ReasonLabel(),
	}
	if len(r.History) > 0 {
		lines = append(lines, "", titleStyle.Render("History"))
		for _, h := range r.History {
			line := fmt.Sprintf("%s  %s by %s", h.Timestamp, h.Action, h.User)
			if h.Comment != "" {
				line += ": " + h.Comment
			}
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	if actions := workflow.AvailableActions(r); len(actions) > 0 {
		labels := make([]string, len(actions))
		for i, act := range actions {
			labels[i] = act.Label()
		}
		lines = append(lines, "", mutedStyle.Render("Actions: "+strings.Join(labels, ", ")))
	}
	panel(w, lines)
}

func requestsActionCmd(opts *globalOptions, action workflow.Action) *cobra.Command {
	var (
		comment string
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   string(action) + " <id>",
		Short: action.Label() + " a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := opts.open(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			defer a.flushNotices(cmd.ErrOrStderr())

			svc := workflow.NewService(a.client, a.center)
			req, err := svc.Details(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !workflow.Allows(req, action) {
				return fmt.Errorf("cannot %s request #%d (status %s)", action, id, req.Status)
			}

			if !yes {
				in := bufio.NewReader(cmd.InOrStdin())
				if !confirm(cmd.OutOrStdout(), in, action.Confirmation()) {
					fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Cancelled"))
					return nil
				}
				if action.RequiresComment() && comment == "" {
					comment = prompt(cmd.OutOrStdout(), in, "Comment (optional): ")
				}
			}

			_, err = svc.Perform(cmd.Context(), id, action, comment)
			return err
		},
	}
	if action != workflow.ActionDelete {
		cmd.Flags().StringVarP(&comment, "comment", "m", "", "comment recorded in the request history")
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(w io.Writer, in *bufio.Reader, question string) bool {
	answer := strings.ToLower(prompt(w, in, question+" [y/N] "))
	return answer == "y" || answer == "yes"
}

func prompt(w io.Writer, in *bufio.Reader, text string) string {
	fmt.Fprint(w, text)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func requestsCreateCmd(opts *globalOptions) *cobra.Command {
	var n workflow.NewRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new inventory request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			defer a.flushNotices(cmd.ErrOrStderr())

			res, err := workflow.NewService(a.client, a.center).Create(cmd.Context(), n)
			if err != nil {
				return err
			}
			if res.ID > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", res.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&n.ItemID, "item", "", "item to request")
	cmd.Flags().IntVar(&n.Quantity, "quantity", 0, "quantity to request")
	cmd.Flags().StringVar(&n.Reason, "reason", "", "why the items are needed")
	cmd.Flags().StringVar(&n.Priority, "priority", "", "priority: low, medium or high")
	return cmd
}

func requestsURLCmd(opts *globalOptions) *cobra.Command {
	var q workflow.ListQuery
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the link to the filtered request list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !workflow.SearchReady(q.Search) {
				return fmt.Errorf("search needs at least 2 characters")
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), q.URL(cfg.BaseURL))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&q.DateRange, "date-range", "", "date range filter")
	cmd.Flags().StringVar(&q.Search, "search", "", "search text")
	return cmd
}
