package main

import (
	"encoding/json"
	"fmt"
	"time"

	"slotbook/config"
	"slotbook/database"
	"slotbook/services/reconcile"
	"slotbook/services/tasks"
	"slotbook/utils"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func sweepCmd() *cobra.Command {
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Release pending bookings older than SWEEP_STALE_AFTER",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadConfig()
			cfg := config.AppConfig
			logger := utils.GetLogger()

			if enqueue {
				return enqueueSweep(cmd, cfg)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			stores, err := database.OpenStores(cfg)
			if err != nil {
				return err
			}
			defer stores.Close(cmd.Context())

			canceller := &reconcile.Canceller{
				Bookings: stores.Bookings,
				Slots:    stores.Slots,
				Ledger:   reconcile.NewRedisLedger(utils.GetCacheClient()),
				Logger:   logger.Named("canceller"),
			}
			sweeper := &reconcile.Sweeper{
				Bookings:   stores.Bookings,
				Canceller:  canceller,
				StaleAfter: cfg.SweepStaleAfter,
				Logger:     logger.Named("sweeper"),
			}

			report, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				logger.Error("sweep failed", zap.Error(err))
				return err
			}
			out, _ := json.MarshalIndent(report, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "queue the sweep for the running worker instead of sweeping here")

	return cmd
}

func enqueueSweep(cmd *cobra.Command, cfg config.Config) error {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	})
	defer client.Close()

	task, opts, err := tasks.NewSweepTask("manual", time.Minute)
	if err != nil {
		return err
	}
	info, err := client.EnqueueContext(cmd.Context(), task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue sweep: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sweep queued: %s on %s\n", info.ID, info.Queue)
	return nil
}
