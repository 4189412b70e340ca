package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/face-detect-mcp/internal/backend"
	"github.com/ironsheep/face-detect-mcp/internal/config"
	"github.com/ironsheep/face-detect-mcp/internal/faces"
	"github.com/ironsheep/face-detect-mcp/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfg *config.Config

	// det and db are opened on demand by subcommands and closed after them.
	det backend.Detector
	db  *store.Store

	configPath    string
	backendName   string
	maxDimension  int
	minConfidence float32
	dbURL         string
)

var rootCmd = &cobra.Command{
	Use:           "facedetect",
	Short:         "Detect faces in images with a pluggable detector backend",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = os.Getenv("FACEDETECT_CONFIG")
		}
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, c); err != nil {
			return err
		}
		cfg = c
		config.SetDebug(cfg.Debug())
		return nil
	},
}

// applyFlags lets explicitly set global flags override c.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		c.Backend = backendName
	}
	if flags.Changed("max-dimension") {
		c.Detection.MaxDimension = maxDimension
	}
	if flags.Changed("min-confidence") {
		c.Detection.MinConfidence = minConfidence
	}
	if flags.Changed("db") {
		c.Store.DatabaseURL = dbURL
	}
	return c.Validate()
}

// openService opens the configured backend and wraps it in a Service.
func openService() (*faces.Service, error) {
	d, err := backend.Open(cfg.Backend, cfg.Backends)
	if err != nil {
		return nil, err
	}
	det = d
	config.Debugf("Using backend %s", cfg.Backend)
	return faces.NewService(d, faces.Options{
		Backend:       cfg.Backend,
		MaxDimension:  cfg.Detection.MaxDimension,
		MinConfidence: cfg.Detection.MinConfidence,
	}), nil
}

// openStore connects to the configured database. With required unset and
// no database configured it returns a nil Store.
func openStore(ctx context.Context, required bool) (*store.Store, error) {
	if cfg.Store.DatabaseURL == "" {
		if required {
			return nil, fmt.Errorf("no database configured (use --db or %sDATABASE_URL)", config.EnvPrefix)
		}
		return nil, nil
	}
	s, err := store.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db = s
	return s, nil
}

// run executes the root command with args and releases whatever the
// subcommand opened, whether or not it failed.
func run(ctx context.Context, args []string) error {
	defer closeResources()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func closeResources() {
	if db != nil {
		// ctx may already be canceled by Ctrl+C; Close still has to reach the server.
		db.Close(context.Background())
		db = nil
	}
	if det != nil {
		if err := det.Close(); err != nil {
			log.Printf("Failed to close detector: %v", err)
		}
		det = nil
	}
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML or JSON configuration file (default: $FACEDETECT_CONFIG)")
	pf.StringVarP(&backendName, "backend", "b", "", "Detector backend ("+strings.Join(backend.Names(), ", ")+")")
	pf.IntVar(&maxDimension, "max-dimension", 0, "Downscale images so the longest side is at most this many pixels (0 disables)")
	pf.Float32Var(&minConfidence, "min-confidence", 0, "Drop faces scoring below this confidence (0.0-1.0)")
	pf.StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: $FACEDETECT_DATABASE_URL)")
}
