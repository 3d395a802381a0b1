package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

// Version can be set at build time with: go build -ldflags "-X main.Version=<version>"
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "serve":
		handleServe(os.Args[2:])
	case "list":
		handleList(os.Args[2:])
	case "version":
		fmt.Printf("frameview version %s\n", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: frameview <command> [options]

Commands:
  serve [--frames DIR] [--addr ADDR]     Serve the frame viewer
  list [--frames DIR]                    Summarize the frames on disk
  version                                Show version
  help                                   Show this help message

Serve options:
  --pad N|auto                           Zero-pad width of frame numbers (default 3)
  --initial N                            Frame shown on page load
  --session-ttl DURATION                 Keep idle viewer sessions this long (default 1h)
  --tls [--tls-host HOST]                HTTPS with a self-signed certificate
  --title TITLE                          Page title
  --thumbs=false                         Disable slider hover previews

Environment Variables:
  PORT                                   Listen on :PORT
  FRAMEVIEW_FRAMES_DIR                   Default frames directory
  FRAMEVIEW_PASSWORD                     Require this password to view
`)
}

func handleServe(args []string) {
	cfg, err := parseConfig("serve", args, os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	if err := os.MkdirAll(cfg.FramesDir, 0755); err != nil {
		log.Fatalf("Failed to create frames directory %q: %v", cfg.FramesDir, err)
	}

	store := NewFrameStore(cfg.FramesDir, cfg.Layout)
	if err := store.Scan(); err != nil {
		log.Fatalf("Failed to scan frames: %v", err)
	}

	srv, err := NewServer(cfg, store)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := store.Watch(ctx, srv.Hub().FramesChanged); err != nil {
			log.Printf("[FRAMES] Live updates disabled: %v", err)
		}
	}()
	go srv.Hub().RunReaper(time.Minute, ctx.Done())

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("frameview v%s", Version)
	log.Printf("Starting server on %s", cfg.Addr)
	log.Printf("  frames: %s (%d found, max=%d)", cfg.FramesDir, store.Count(), store.Max())
	log.Printf("  pad: %s", padSetting(cfg.Layout))
	log.Printf("  session-ttl: %v", cfg.SessionTTL)
	if cfg.Password != "" {
		log.Printf("  password: required")
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS {
			metaDir, err := getMetadataDir()
			if err != nil {
				errCh <- err
				return
			}
			certPath, keyPath, err := ensureSelfSignedCert(filepath.Join(metaDir, "certs"), cfg.TLSHost)
			if err != nil {
				errCh <- err
				return
			}
			log.Printf("  tls: %s", certPath)
			errCh <- httpServer.ListenAndServeTLS(certPath, keyPath)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case <-ctx.Done():
		log.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}
