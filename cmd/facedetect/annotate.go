package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/face-detect-mcp/internal/imaging"
)

var (
	annotateOutput     string
	annotateColor      string
	annotateHideLabels bool
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <image>",
	Short: "Draw face boxes, landmarks and scores onto a copy of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotate,
}

func init() {
	annotateCmd.Flags().StringVarP(&annotateOutput, "output", "o", "annotated.png", "Path to output image")
	annotateCmd.Flags().StringVar(&annotateColor, "color", "", "Box color as #RRGGBB (default: by score)")
	annotateCmd.Flags().BoolVar(&annotateHideLabels, "hide-labels", false, "Do not draw score labels")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	opts := imaging.AnnotateOptions{HideLabels: annotateHideLabels}
	if annotateColor != "" {
		c, err := imaging.ParseHexColor(annotateColor)
		if err != nil {
			return fmt.Errorf("invalid --color: %w", err)
		}
		opts.Color = c
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

	if err := imaging.Save(imaging.Annotate(img, imaging.Annotations(res), opts), annotateOutput); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d faces annotated, written to %s\n", len(res.Faces), annotateOutput)
	return nil
}
