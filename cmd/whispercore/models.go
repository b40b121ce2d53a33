package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
)

func (a *app) modelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List model sizes and where their files are expected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SIZE\tFILE\tAPPROX\tPRESENT\tPATH")
			for _, size := range config.ModelSizes() {
				cfg := a.cfg
				cfg.ModelPath = ""
				cfg.ModelSize = size
				path, err := cfg.ResolveModelPath()
				if err != nil {
					return err
				}
				present, err := fileExists(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					size, size.Filename(), humanBytes(size.SizeBytes()), yesNo(present), path)
			}
			return tw.Flush()
		},
	}
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func humanBytes(n uint64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGT"[exp])
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
