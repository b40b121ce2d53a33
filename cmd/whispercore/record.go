package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/audio"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
)

func (a *app) recordCommand() *cobra.Command {
	var (
		opts    transcribeOptions
		seconds float64
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the default microphone, then transcribe",
		Long: "Record from the default microphone for --seconds (or until interrupted), then transcribe.\n" +
			"Requires a build with the portaudio tag.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seconds <= 0 {
				return coreerr.New(coreerr.Config, "--seconds must be positive, got %g", seconds)
			}
			cfg, err := opts.apply(cmd, a.cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			buf, err := a.capture(ctx, time.Duration(seconds*float64(time.Second)))
			if err != nil {
				return err
			}
			return a.transcribe(cmd.OutOrStdout(), cfg, &opts, opts.prepare(buf), "microphone")
		},
	}
	opts.bind(cmd)
	cmd.Flags().Float64Var(&seconds, "seconds", 5, "how long to record")
	return cmd
}

// capture records until d elapses or ctx is cancelled.
func (a *app) capture(ctx context.Context, d time.Duration) (audio.Buffer, error) {
	rec, err := audio.NewRecorder(a.logger)
	if err != nil {
		return audio.Buffer{}, err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			a.logger.Warn("failed to release audio device", zap.Error(err))
		}
	}()

	if err := rec.Start(); err != nil {
		return audio.Buffer{}, err
	}
	a.logger.Info("recording", zap.Duration("limit", d))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		a.logger.Info("recording interrupted")
	}

	buf := rec.Stop()
	a.logger.Info("recording stopped", zap.Duration("captured", buf.Duration()))
	return buf, nil
}
