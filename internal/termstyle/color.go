// SPDX-License-Identifier: MIT
package termstyle

import (
	"strings"

	"github.com/liggitt/tabwriter"

	"github.com/skaphos/gitfleet/internal/model"
)

const (
	Reset   = "\x1b[0m"
	Bold    = "\x1b[1m"
	Dim     = "\x1b[2m"
	Red     = "\x1b[31m"
	Green   = "\x1b[32m"
	Brown   = "\x1b[33m"
	Blue    = "\x1b[34m"
	Magenta = "\x1b[35m"
	Cyan    = "\x1b[36m"

	// Semantic aliases used by table/status output.
	Healthy = Green
	Warn    = Brown
	Error   = Red
	Info    = Blue
	Muted   = Dim
	Name    = Cyan
	Root    = Brown
)

var esc = string([]byte{tabwriter.Escape})

// Colorize wraps a value in ANSI escapes when color output is enabled.
func Colorize(enabled bool, value, color string) string {
	if !enabled || value == "" || color == "" {
		return value
	}
	// Hide ANSI sequences from tabwriter width calculations so columns align.
	return esc + color + esc + value + esc + Reset + esc
}

// StripEscapes removes the tabwriter escape markers Colorize adds, for
// colored text written outside a table.
func StripEscapes(s string) string {
	return strings.ReplaceAll(s, esc, "")
}

// ForSyncStatus picks the color of a sync status cell.
func ForSyncStatus(status model.SyncStatus) string {
	switch status {
	case model.StatusClean:
		return Healthy
	case model.StatusAhead:
		return Warn
	case model.StatusBehind:
		return Info
	case model.StatusDiverged, model.StatusError:
		return Error
	case model.StatusNoUpstream, model.StatusDetached, model.StatusNoRemote:
		return Muted
	default:
		return ""
	}
}

// ForProtocol picks the color of a remote protocol cell.
func ForProtocol(protocol model.RemoteProtocol) string {
	switch protocol {
	case model.ProtocolSSH:
		return Green
	case model.ProtocolHTTPS:
		return Blue
	case model.ProtocolHTTP:
		return Brown
	case model.ProtocolGit:
		return Cyan
	case model.ProtocolFile:
		return Magenta
	case model.ProtocolUnknown:
		return Red
	default:
		return ""
	}
}

// ForIdentitySource picks the color of an identity provenance cell.
func ForIdentitySource(source model.IdentitySource) string {
	switch source {
	case model.SourceLocal:
		return Magenta
	case model.SourceIncluded:
		return Brown
	case model.SourceSystem:
		return Blue
	case model.SourceGlobal:
		return Dim
	case model.SourceUnknown:
		return Red
	default:
		return ""
	}
}
