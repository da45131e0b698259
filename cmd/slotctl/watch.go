package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"slotbook/services/poller"
	"slotbook/utils"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var (
		server   string
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [paymentId]",
		Short: "Poll a payment's booking until it is confirmed, cancelled or times out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p := poller.New(poller.NewHTTPSource(server), utils.GetLogger())
			p.Interval = interval
			p.Timeout = timeout

			out, err := p.Watch(ctx, args[0])
			switch {
			case errors.Is(err, poller.ErrTimedOut), errors.Is(err, poller.ErrNotFound):
				fmt.Fprintf(cmd.OutOrStdout(), "payment %s not confirmed: %v (booking released)\n", args[0], err)
				return err
			case errors.Is(err, context.Canceled):
				return nil
			case err != nil:
				return err
			}

			if out.Confirmed() {
				fmt.Fprintf(cmd.OutOrStdout(), "booking %s confirmed after %d polls\n", out.BookingID, out.Polls)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "booking %s cancelled: %s\n", out.BookingID, out.Reason)
			return fmt.Errorf("payment %s failed", args[0])
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:8080", "slotbook server base URL")
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", poller.DefaultTimeout, "give up and release after this long")

	return cmd
}
