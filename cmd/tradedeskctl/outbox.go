package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/outbox"
)

type deadLetterStore interface {
	List(ctx context.Context, f outbox.DLQFilter) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

func newOutboxCmd(base *logger.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay dead-lettered outbox events",
	}

	var (
		reason string
		limit  int
	)
	dlq := &cobra.Command{
		Use:   "dlq",
		Short: "List dead-lettered events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			filter := outbox.DLQFilter{Limit: limit}
			if reason != "" {
				parsed, err := enums.ParseOutboxDLQErrorReason(reason)
				if err != nil {
					return err
				}
				filter.Reason = parsed
			}
			return withDeadLetters(c, base, func(ctx context.Context, store deadLetterStore) error {
				return listDeadLetters(ctx, store, filter, c.OutOrStdout())
			})
		},
	}
	dlq.Flags().StringVar(&reason, "reason", "", "only show max_attempts, non_retryable or unroutable entries")
	dlq.Flags().IntVar(&limit, "limit", 50, "maximum entries to print")

	requeue := &cobra.Command{
		Use:   "requeue <event-id>...",
		Short: "Hand dead-lettered events back to the publisher",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid event id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}
			return withDeadLetters(c, base, func(ctx context.Context, store deadLetterStore) error {
				return requeueDeadLetters(ctx, store, ids, c.OutOrStdout())
			})
		},
	}

	cmd.AddCommand(dlq, requeue)
	return cmd
}

func listDeadLetters(ctx context.Context, store deadLetterStore, f outbox.DLQFilter, out io.Writer) error {
	rows, err := store.List(ctx, f)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT ID\tTYPE\tREASON\tATTEMPTS\tFAILED AT")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			row.EventID, row.EventType, row.ErrorReason, row.AttemptCount, row.FailedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

// requeueDeadLetters stops at the first failure; ids before it stay requeued.
func requeueDeadLetters(ctx context.Context, store deadLetterStore, ids []uuid.UUID, out io.Writer) error {
	for _, id := range ids {
		if err := store.Requeue(ctx, id); err != nil {
			return fmt.Errorf("requeue %s: %w", id, err)
		}
		fmt.Fprintln(out, "requeued", id)
	}
	return nil
}

func withDeadLetters(c *cobra.Command, base *logger.Logger, fn func(context.Context, deadLetterStore) error) error {
	ctx := c.Context()
	rt, err := openRuntime(ctx, base)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, outbox.NewDLQRepository(rt.db.DB()))
}
