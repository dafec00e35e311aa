// Package lanedriver holds assets shared by the lane driver binaries.
package lanedriver

import "embed"

// StaticFiles is the embedded front-end served when no -static directory is
// given.
//
//go:embed static
var StaticFiles embed.FS
