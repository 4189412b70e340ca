package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/face-detect-mcp/internal/imaging"
)

var (
	redactOutput string
	redactSigma  float64
	redactMargin float64
)

var redactCmd = &cobra.Command{
	Use:   "redact <image>",
	Short: "Blur every detected face in a copy of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runRedact,
}

func init() {
	redactCmd.Flags().StringVarP(&redactOutput, "output", "o", "redacted.png", "Path to output image")
	redactCmd.Flags().Float64VarP(&redactSigma, "sigma", "s", imaging.DefaultRedactSigma, "Gaussian blur radius")
	redactCmd.Flags().Float64Var(&redactMargin, "margin", 0.2, "Grow each face box by this fraction before blurring")
	rootCmd.AddCommand(redactCmd)
}

func runRedact(cmd *cobra.Command, args []string) error {
	if redactMargin < 0 {
		return fmt.Errorf("--margin must be >= 0, got %f", redactMargin)
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	img, err := imaging.NewImageCache().Load(args[0])
	if err != nil {
		return err
	}
	res, err := svc.Detect(cmd.Context(), img)
	if err != nil {
		return err
	}

	rects := res.Rectangles()
	for i := range rects {
		rects[i] = imaging.ExpandRect(rects[i], redactMargin)
	}
	if err := imaging.Save(imaging.Redact(img, rects, redactSigma), redactOutput); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d faces redacted, written to %s\n", len(rects), redactOutput)
	return nil
}
