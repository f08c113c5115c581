package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"relaychat/internal/filter"
	"relaychat/internal/models"
	"relaychat/internal/session"
)

func newListCmd(e *env) *cobra.Command {
	var search, date, sortKey string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List conversations stored on the relay",
		Args:    cobra.NoArgs,
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			bucket, err := filter.ParseDateBucket(date)
			if err != nil {
				return err
			}
			key, err := filter.ParseSortKey(sortKey)
			if err != nil {
				return err
			}

			a := e.newApp()
			if err := a.SetCriteria(models.FilterCriteria{SearchText: search, DateBucket: bucket, SortKey: key}); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.HTTPTimeout)
			defer cancel()
			if err := a.Refresh(ctx); err != nil {
				return err
			}

			now := time.Now()
			visible, err := a.Visible(now)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case len(a.Store().Get()) == 0:
				fmt.Fprintln(out, "No conversations yet")
				return nil
			case len(visible) == 0:
				fmt.Fprintln(out, "No conversations match your filters")
				return nil
			}

			headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
			cellStyle := lipgloss.NewStyle().Padding(0, 1)
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("CONVERSATION", "MESSAGES", "LAST ACTIVITY", "CREATED").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, c := range visible {
				t.Row(c.ID, strconv.Itoa(c.MessageCount), formatStamp(c.Activity()), formatStamp(c.CreatedAt))
			}
			fmt.Fprintln(out, t.Render())
			return nil
		}),
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive substring of the conversation id")
	cmd.Flags().StringVar(&date, "date", string(models.DateAll), "all, today, week or month")
	cmd.Flags().StringVar(&sortKey, "sort", string(models.SortNewest), "newest, oldest or most_messages")
	return cmd
}

func newRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <conversation-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete conversations on the relay",
		Args:    cobra.MinimumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			a := e.newApp()
			var errs []error
			for _, id := range args {
				ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.HTTPTimeout)
				err := a.Delete(ctx, id)
				cancel()
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return errors.Join(errs...)
		}),
	}
}

func newAskCmd(e *env) *cobra.Command {
	var (
		conversationID string
		compare        bool
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt>...",
		Short: "Send one prompt and print the answer(s)",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.run(func(cmd *cobra.Command, args []string) error {
			a := e.newApp()
			ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.HTTPTimeout)
			defer cancel()

			if conversationID != "" {
				if err := a.Select(ctx, conversationID); err != nil {
					return err
				}
			}
			before := len(a.Session().Transcript())

			req := session.SendRequest{
				Prompt: strings.Join(args, " "),
				Model:  e.cfg.Model,
				Models: e.cfg.CompareModels,
				Mode:   models.ModeSingle,
			}
			if compare {
				req.Mode = models.ModeComparison
			}
			if err := a.Send(ctx, req); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var failed []string
			// Skip the echoed user turn.
			for _, msg := range a.Session().Transcript()[before+1:] {
				if msg.Failed {
					failed = append(failed, msg.Content)
					continue
				}
				fmt.Fprintf(out, "[%s]\n%s\n\n", msg.ModelLabel, msg.Content)
			}
			fmt.Fprintf(out, "conversation: %s\n", a.Session().ActiveID())
			if len(failed) > 0 {
				return errors.New(strings.Join(failed, "; "))
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "continue an existing conversation")
	cmd.Flags().BoolVar(&compare, "compare", false, "ask every model in --compare-models")
	return cmd
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
