// Command tick-report prints per-session summaries from a tick journal and
// writes a PNG plot for each reported session.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/banshee-data/lane.driver/internal/config"
	"github.com/banshee-data/lane.driver/internal/db"
)

func main() {
	dbPath := flag.String("db", "journal.db", "Path to the tick journal")
	sessionID := flag.String("session", "", "Report only this session (default: recent sessions)")
	sessions := flag.Int("sessions", 10, "Number of recent sessions to report")
	limit := flag.Int("limit", 0, "Plot only the last N ticks of each session (0 plots all)")
	outDir := flag.String("out", ".", "Directory for PNG plots; empty disables plotting")
	configFile := flag.String("config", "", "Driver config used to scale offsets into steering")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("DB path %s not accessible: %v", *dbPath, err)
	}

	cfg := config.DefaultDriverConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadDriverConfig(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	journal, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}
	defer journal.Close()

	opts := Options{
		SessionID:   *sessionID,
		Sessions:    *sessions,
		Limit:       *limit,
		OutDir:      *outDir,
		OffsetScale: OffsetScale(cfg),
	}
	if err := Run(journal, opts, os.Stdout); err != nil {
		log.Fatalf("report failed: %v", err)
	}
}
