package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ironsheep/face-detect-mcp/internal/backend"
	_ "github.com/ironsheep/face-detect-mcp/internal/backend/cnn"
	_ "github.com/ironsheep/face-detect-mcp/internal/backend/pigo"
	_ "github.com/ironsheep/face-detect-mcp/internal/backend/remote"
	_ "github.com/ironsheep/face-detect-mcp/internal/backend/yunetcv"
	"github.com/ironsheep/face-detect-mcp/internal/config"
	"github.com/ironsheep/face-detect-mcp/internal/faces"
	"github.com/ironsheep/face-detect-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv("FACEDETECT_CONFIG")

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("face-detect-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Backends:   %s\n", strings.Join(backend.Names(), ", "))
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--config", "-c":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown argument: %s\n", args[i])
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	config.SetDebug(cfg.Debug())
	config.Debugf("Face MCP Server v%s (built %s, commit %s), backend %s", Version, BuildTime, GitCommit, cfg.Backend)

	det, err := backend.Open(cfg.Backend, cfg.Backends)
	if err != nil {
		log.Fatalf("Detector error: %v", err)
	}
	defer det.Close()

	svc := faces.NewService(det, faces.Options{
		Backend:       cfg.Backend,
		MaxDimension:  cfg.Detection.MaxDimension,
		MinConfidence: cfg.Detection.MinConfidence,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Version = Version
	if err := server.New(svc).Run(ctx); err != nil && err != context.Canceled {
		log.Printf("Server error: %v", err)
		det.Close()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("face-detect-mcp - MCP server for face detection")
	fmt.Println()
	fmt.Println("Usage: face-detect-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config, -c PATH  YAML or JSON configuration file")
	fmt.Println("  --version, -v      Print version information")
	fmt.Println("  --help, -h         Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  FACEDETECT_CONFIG=PATH       Configuration file")
	fmt.Println("  FACEDETECT_BACKEND=NAME      Detector backend (" + strings.Join(backend.Names(), ", ") + ")")
	fmt.Println("  FACEDETECT_LOG_LEVEL=debug   Enable debug logging")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client.")
}
