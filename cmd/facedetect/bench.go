package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/face-detect-mcp/internal/bridge"
	"github.com/ironsheep/face-detect-mcp/internal/imaging"
)

var benchRuns int

var benchCmd = &cobra.Command{
	Use:   "bench <image>",
	Short: "Time repeated detection on one image and print the raw detections",
	Args:  cobra.ExactArgs(1),
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchRuns, "runs", "n", 10, "Number of detection runs")
	rootCmd.AddCommand(benchCmd)
}

// benchStats summarizes run durations.
type benchStats struct {
	Runs            int
	Total, Min, Max time.Duration
	Mean            time.Duration
}

func summarize(durations []time.Duration) benchStats {
	s := benchStats{Runs: len(durations)}
	for i, d := range durations {
		s.Total += d
		if i == 0 || d < s.Min {
			s.Min = d
		}
		if d > s.Max {
			s.Max = d
		}
	}
	if s.Runs > 0 {
		s.Mean = s.Total / time.Duration(s.Runs)
	}
	return s
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchRuns < 1 {
		return fmt.Errorf("--runs must be at least 1, got %d", benchRuns)
	}
	ctx := cmd.Context()

	svc, err := openService()
	if err != nil {
		return err
	}
	img, err := imaging.NewImageCache().Load(args[0])
	if err != nil {
		return err
	}

	var (
		raw       []bridge.Face
		w, h      int
		durations = make([]time.Duration, 0, benchRuns)
	)
	for i := 0; i < benchRuns; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		raw, w, h, err = svc.DetectRaw(ctx, img)
		if err != nil {
			return err
		}
		durations = append(durations, time.Since(start))
	}

	out := cmd.OutOrStdout()
	s := summarize(durations)
	fmt.Fprintf(out, "backend %s, %dx%d, %d runs\n", svc.Backend(), w, h, s.Runs)
	fmt.Fprintf(out, "total %v, mean %v, min %v, max %v\n", s.Total, s.Mean, s.Min, s.Max)
	fmt.Fprintf(out, "%d faces\n", len(raw))
	for i, f := range raw {
		fmt.Fprintf(out, "face %d: score %.3f, box %d,%d %dx%d, landmarks %v\n",
			i, f.Score, f.X, f.Y, f.W, f.H, f.Landmarks)
	}
	return nil
}
