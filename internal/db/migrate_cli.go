package db

import (
	"errors"
	"fmt"
	"io"
)

// ErrMigrateUsage is returned for a missing or unknown migrate action.
var ErrMigrateUsage = errors.New("usage: driver -db <path> migrate up|down|status")

// RunMigrateCommand runs one 'migrate' action against the journal at dbPath
// and reports the resulting schema version to out.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) != 1 {
		return ErrMigrateUsage
	}
	if dbPath == "" {
		return errors.New("migrate needs a journal path (-db)")
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer database.Close()

	switch args[0] {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q: %w", args[0], ErrMigrateUsage)
	}

	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	fmt.Fprintf(out, "journal %s: schema version %d (dirty: %v)\n", dbPath, version, dirty)
	if dirty {
		fmt.Fprintln(out, "a migration failed part way; inspect the journal before driving with it")
	}
	return nil
}
