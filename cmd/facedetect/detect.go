package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ironsheep/face-detect-mcp/internal/faces"
	"github.com/ironsheep/face-detect-mcp/internal/store"
)

var detectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect <image>...",
	Short: "Detect faces in one or more images",
	Long: `Detect faces in each image and print them as a table, or as JSON with --json.

When a database is configured, results are stored and replace any earlier
results for the same file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(detectCmd)
}

// fileResult is the outcome for one input file.
type fileResult struct {
	Path   string        `json:"path"`
	Result *faces.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := openService()
	if err != nil {
		return err
	}
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("Detecting"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}

	results := make([]fileResult, 0, len(args))
	failed := 0
	for _, path := range args {
		if err := ctx.Err(); err != nil {
			return err
		}

		fr := fileResult{Path: path}
		res, err := svc.DetectFile(ctx, path)
		if err != nil {
			fr.Error = err.Error()
			failed++
		} else {
			fr.Result = res
			if s != nil {
				if err := saveResult(cmd, s, path, res); err != nil {
					log.Printf("Failed to store result for %s: %v", path, err)
				}
			}
		}
		results = append(results, fr)

		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	out := cmd.OutOrStdout()
	if detectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printResults(out, results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(args))
	}
	return nil
}

func saveResult(cmd *cobra.Command, s *store.Store, path string, res *faces.Result) error {
	id, err := store.ImageID(path)
	if err != nil {
		return err
	}
	return s.SaveResult(cmd.Context(), id, path, res)
}

// printResults writes one row per face in source image pixels.
func printResults(out io.Writer, results []fileResult) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tFACE\tSCORE\tBOX\tLANDMARKS")
	fmt.Fprintln(w, "----\t----\t-----\t---\t---------")

	for _, fr := range results {
		if fr.Error != "" {
			fmt.Fprintf(w, "%s\t-\t-\terror: %s\t\n", fr.Path, fr.Error)
			continue
		}
		if len(fr.Result.Faces) == 0 {
			fmt.Fprintf(w, "%s\t-\t-\tno faces\t\n", fr.Path)
			continue
		}
		scale := fr.Result.Scale()
		for i, f := range fr.Result.Faces {
			r := f.SourceRect(scale)
			fmt.Fprintf(w, "%s\t%d\t%.3f\t%d,%d %dx%d\t%v\n",
				fr.Path, i, f.Confidence, r.Min.X, r.Min.Y, r.Dx(), r.Dy(), f.SourcePoints(scale))
		}
	}
	w.Flush()
}
