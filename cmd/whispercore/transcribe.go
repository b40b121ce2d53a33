package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/audio"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/coreerr"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/engine"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/moduleinfo"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/telemetry"
)

// transcribeOptions are the per-run overrides shared by transcribe and record.
type transcribeOptions struct {
	model     string
	size      string
	language  string
	translate bool
	threads   uint32
	stub      bool
	normalize bool
	noiseGate float32
	json      bool
}

func (o *transcribeOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.model, "model", "m", "", "path to a ggml model file")
	flags.StringVarP(&o.size, "size", "s", "", "model size used to locate the default model file")
	flags.StringVarP(&o.language, "language", "l", "", `source language code or "auto"`)
	flags.BoolVar(&o.translate, "translate", false, "translate the transcript to English")
	flags.Uint32Var(&o.threads, "threads", 0, "inference threads (0 lets whisper.cpp decide)")
	flags.BoolVar(&o.stub, "stub", false, "use the deterministic stub engine")
	flags.BoolVar(&o.normalize, "normalize", false, "peak-normalise the audio before transcription")
	flags.Float32Var(&o.noiseGate, "noise-gate", 0, "zero samples whose magnitude is below this level")
	flags.BoolVar(&o.json, "json", false, "print the result as JSON")
}

// apply returns base with the explicitly set flags applied.
func (o *transcribeOptions) apply(cmd *cobra.Command, base config.Config) (config.Config, error) {
	cfg := base
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	if changed("model") {
		cfg.ModelPath = o.model
	}
	if changed("size") {
		size, err := config.ParseModelSize(o.size)
		if err != nil {
			return config.Config{}, coreerr.Wrap(coreerr.Config, err, "--size")
		}
		cfg.ModelSize = size
	}
	if changed("language") {
		cfg.Language.Source = o.language
	}
	if changed("translate") {
		cfg.Language.TranslateToEnglish = o.translate
	}
	if changed("threads") {
		cfg.Threads = o.threads
	}
	if changed("stub") {
		cfg.UseStubEngine = o.stub
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *transcribeOptions) prepare(buf audio.Buffer) audio.Buffer {
	if o.normalize {
		buf.Normalize()
	}
	if o.noiseGate > 0 {
		buf.ApplyNoiseGate(o.noiseGate)
	}
	return buf
}

func (a *app) transcribeCommand() *cobra.Command {
	var opts transcribeOptions
	cmd := &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.apply(cmd, a.cfg)
			if err != nil {
				return err
			}
			buf, err := audio.LoadWAV(args[0])
			if err != nil {
				return err
			}
			return a.transcribe(cmd.OutOrStdout(), cfg, &opts, opts.prepare(buf), args[0])
		},
	}
	opts.bind(cmd)
	return cmd
}

// transcribe loads an engine for cfg, runs it once and prints the result.
func (a *app) transcribe(out io.Writer, cfg config.Config, opts *transcribeOptions, buf audio.Buffer, source string) error {
	logger := a.logger.With(zap.String("source", source))
	recorder := telemetry.NewRecorder(logger)

	eng, err := engine.NewFromConfig(cfg, logger, engine.WithRecorder(recorder))
	if err != nil {
		return err
	}
	if err := eng.Initialize(); err != nil {
		return err
	}
	defer eng.Shutdown()

	res, err := eng.Transcribe(buf)
	if err != nil {
		return err
	}

	snap := recorder.Snapshot()
	logger.Info("transcription finished",
		zap.String("language", res.Language),
		zap.Int("segments", len(res.Segments)),
		zap.Uint64("audio_ms", res.AudioDurationMs),
		zap.Uint64("processing_ms", res.ProcessingTimeMs),
		zap.Float64("real_time_factor", snap.RealTimeFactor()),
	)

	if opts.json {
		return writeJSON(out, res, moduleinfo.ResultMetadata(cfg.ModelSize.String(), cfg.Language.Source))
	}
	return writeText(out, res)
}

type jsonOutput struct {
	engine.Result
	RealTimeFactor float64           `json:"real_time_factor"`
	Metadata       map[string]string `json:"metadata"`
}

func writeJSON(w io.Writer, res engine.Result, metadata map[string]string) error {
	if res.Segments == nil {
		res.Segments = []engine.Segment{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonOutput{Result: res, RealTimeFactor: res.RealTimeFactor(), Metadata: metadata})
}

func writeText(w io.Writer, res engine.Result) error {
	for _, seg := range res.Segments {
		if _, err := fmt.Fprintf(w, "[%s --> %s] %s\n", timestamp(seg.StartMs), timestamp(seg.EndMs), seg.Text); err != nil {
			return err
		}
	}
	return nil
}

// timestamp renders milliseconds as mm:ss.mmm, growing to hh:mm:ss.mmm.
func timestamp(ms int64) string {
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, frac)
}
