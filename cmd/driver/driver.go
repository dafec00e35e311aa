package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	lanedriver "github.com/banshee-data/lane.driver"
	"github.com/banshee-data/lane.driver/internal/actuator"
	"github.com/banshee-data/lane.driver/internal/api"
	"github.com/banshee-data/lane.driver/internal/config"
	"github.com/banshee-data/lane.driver/internal/db"
	"github.com/banshee-data/lane.driver/internal/drive"
	"github.com/banshee-data/lane.driver/internal/report"
	"github.com/banshee-data/lane.driver/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	configFile   = flag.String("config", "", "Driver config JSON file such as "+config.DefaultConfigPath+" (unset fields keep built-in defaults)")
	staticDir    = flag.String("static", "", "Serve the simulator front-end from this directory instead of the embedded page")
	dbFile       = flag.String("db", "", "Tick journal SQLite path (empty disables the journal)")
	actuatorPort = flag.String("actuator", "", "Serial device to mirror commands to (empty disables)")
	actuatorBaud = flag.Int("actuator-baud", actuator.DefaultBaudRate, "Actuator serial baud rate")
	quiet        = flag.Bool("quiet", false, "Do not log every HTTP request")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// options is the flag set resolved for setup.
type options struct {
	ConfigFile   string
	StaticDir    string
	DBFile       string
	ActuatorPort string
	ActuatorBaud int
	Quiet        bool
}

func optionsFromFlags() options {
	return options{
		ConfigFile:   *configFile,
		StaticDir:    *staticDir,
		DBFile:       *dbFile,
		ActuatorPort: *actuatorPort,
		ActuatorBaud: *actuatorBaud,
		Quiet:        *quiet,
	}
}

// driver is a wired session plus the handler serving it. Close drains the
// session's recorders and releases the journal and actuator.
type driver struct {
	Session *drive.Session
	Journal *db.DB
	Handler http.Handler
	closers []io.Closer
}

func (d *driver) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func loadConfig(path string) (*config.DriverConfig, error) {
	if path == "" {
		cfg := config.DefaultDriverConfig()
		return cfg, cfg.Validate()
	}
	return config.LoadDriverConfig(path)
}

func staticHandler(dir string) (http.Handler, error) {
	if dir == "" {
		sub, err := fs.Sub(lanedriver.StaticFiles, "static")
		if err != nil {
			return nil, err
		}
		return http.FileServer(http.FS(sub)), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static path %s is not a directory", dir)
	}
	return http.FileServer(http.Dir(dir)), nil
}

func setup(opts options) (*driver, error) {
	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	static, err := staticHandler(opts.StaticDir)
	if err != nil {
		return nil, err
	}

	d := &driver{}
	var sessionOpts []drive.Option
	if opts.DBFile != "" {
		journal, err := db.NewDB(opts.DBFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		d.Journal = journal
		d.closers = append(d.closers, journal)
		sessionOpts = append(sessionOpts, drive.WithRecorder(journal))
	}
	if opts.ActuatorPort != "" {
		mirror, err := actuator.Open(opts.ActuatorPort, actuator.PortOptions{BaudRate: opts.ActuatorBaud})
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, mirror)
		sessionOpts = append(sessionOpts, drive.WithRecorder(mirror))
		log.Printf("mirroring commands to %s at %d baud", opts.ActuatorPort, opts.ActuatorBaud)
	}

	d.Session = drive.NewSession(drive.NewLanePipeline(cfg), sessionOpts...)
	// Closed first, so queued ticks reach the journal and actuator before
	// they close.
	d.closers = append(d.closers, d.Session)

	mux := api.NewServer(d.Session, static).ServeMux()
	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.String())
	debug.KV("Session", d.Session.State().ID.String())
	if d.Journal != nil {
		if err := d.Journal.AttachAdminRoutes(mux); err != nil {
			d.Close()
			return nil, err
		}
		report.AttachAdminRoutes(mux, d.Journal)
	}

	d.Handler = mux
	if !opts.Quiet {
		d.Handler = api.WithRequestLog(mux)
	}
	return d, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbFile, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("lane driver %s", version.String())
	d, err := setup(optionsFromFlags())
	if err != nil {
		log.Fatalf("failed to start driver: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Printf("close error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    *listen,
		Handler: d.Handler,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("failed to start server: %v", err)
		}
		return
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
}
