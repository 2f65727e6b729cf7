package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func regenerateCmd() *cobra.Command {
	var (
		clinic string
		loop   bool
	)
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild AVAILABLE slots for every doctor with a recorded window",
		RunE: func(cmd *cobra.Command, args []string) error {
			var clinicID *uuid.UUID
			if clinic != "" {
				id, err := uuid.Parse(clinic)
				if err != nil {
					return err
				}
				clinicID = &id
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if !loop {
				_, err := a.svc.RegenerateAll(ctx, clinicID)
				return err
			}
			return a.regenerateEvery(ctx, a.cfg.RegenerateInterval, clinicID)
		},
	}
	cmd.Flags().StringVar(&clinic, "clinic", "", "limit the run to one clinic id")
	cmd.Flags().BoolVar(&loop, "interval", false, "keep running every REGENERATE_INTERVAL")
	return cmd
}

// regenerateEvery runs the bulk job at once and then on every tick until ctx
// is cancelled. A failed run is logged and the loop keeps going.
func (a *app) regenerateEvery(ctx context.Context, every time.Duration, clinicID *uuid.UUID) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := a.svc.RegenerateAll(ctx, clinicID); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.log.Error().Err(err).Msg("bulk regeneration failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
