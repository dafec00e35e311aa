// Command frame-replay posts image files to a running lane driver and prints
// the command returned for each one.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/lane.driver/internal/api"
	"github.com/banshee-data/lane.driver/internal/httputil"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Driver base URL")
	dir := flag.String("dir", "", "Directory of frames to replay in name order")
	once := flag.String("once", "", "Send a single image file instead of a directory")
	noReset := flag.Bool("no-reset", false, "Do not reset the session before replaying")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-request timeout")
	flag.Parse()

	var paths []string
	switch {
	case *once != "":
		paths = []string{*once}
	case *dir != "":
		var err error
		paths, err = framePaths(*dir)
		if err != nil {
			log.Fatalf("failed to list frames: %v", err)
		}
	default:
		log.Fatal("one of -dir or -once is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(*baseURL, httputil.NewStandardClient(&http.Client{Timeout: *timeout}))
	n, err := Replay(ctx, client, paths, !*noReset, os.Stdout)
	if err != nil {
		log.Fatalf("replay stopped after %d frames: %v", n, err)
	}
	log.Printf("replayed %d frames", n)
}
