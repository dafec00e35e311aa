package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/lane.driver/internal/api"
)

var frameExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".webp": true,
}

// framePaths lists the image files directly inside dir, sorted by name.
func framePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !frameExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// Replay sends each file in order and writes one line per command to out. It
// returns the number of frames driven before the first failure.
func Replay(ctx context.Context, client *api.Client, paths []string, reset bool, out io.Writer) (int, error) {
	if reset {
		if err := client.Reset(ctx); err != nil {
			return 0, err
		}
	}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return i, err
		}
		cmd, err := client.Drive(ctx, data)
		if err != nil {
			return i, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		fmt.Fprintf(out, "%s\t%s\n", filepath.Base(path), cmd)
	}
	return len(paths), nil
}
