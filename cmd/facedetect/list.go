package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listFaces bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List images with stored detections",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listFaces, "faces", false, "Also print every stored face")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx, true)
	if err != nil {
		return err
	}

	images, err := s.ListImages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(images) == 0 {
		fmt.Fprintln(out, "No images found in database.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tPATH\tSIZE\tFACES\tDETECTED")
	fmt.Fprintln(w, "--\t----\t----\t-----\t--------")
	for _, img := range images {
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%d\t%s\n",
			shortID(img.ID), img.Path, img.Width, img.Height, img.FaceCount, img.DetectedAt.Local().Format("2006-01-02 15:04"))

		if !listFaces || img.FaceCount == 0 {
			continue
		}
		recs, err := s.FacesForImage(ctx, img.ID)
		if err != nil {
			return fmt.Errorf("failed to load faces for %s: %w", img.Path, err)
		}
		for _, r := range recs {
			fmt.Fprintf(w, "\t  face %d\t%d,%d %dx%d\t%.3f\t%v\n", r.Index, r.X, r.Y, r.W, r.H, r.Score, r.Landmarks)
		}
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
