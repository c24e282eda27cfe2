// SPDX-License-Identifier: MIT
package gitfleet

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	narrowTableWidth = 100
	tinyTableWidth   = 80
)

var getTerminalSize = term.GetSize

// columnLimit is the display width of a table column at normal, narrow and
// tiny terminal widths. Zero leaves the column unbounded.
type columnLimit struct {
	normal, narrow, tiny int
}

var (
	branchColumn  = columnLimit{narrow: 24, tiny: 16}
	urlColumn     = columnLimit{narrow: 48, tiny: 32}
	messageColumn = columnLimit{normal: operationErrorWidth, narrow: 40, tiny: 30}
)

// forCommand picks the limit for cmd's output. Anything but a terminal gets
// the normal limit.
func (l columnLimit) forCommand(cmd *cobra.Command) int {
	width, ok := terminalWidth(cmd)
	if !ok {
		return l.normal
	}
	return l.forWidth(width)
}

func (l columnLimit) forWidth(width int) int {
	switch {
	case width <= 0:
		return l.normal
	case width < tinyTableWidth && l.tiny > 0:
		return l.tiny
	case width < narrowTableWidth && l.narrow > 0:
		return l.narrow
	default:
		return l.normal
	}
}

func terminalWidth(cmd *cobra.Command) (int, bool) {
	if cmd == nil {
		return 0, false
	}
	file, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !isTerminalFD(int(file.Fd())) {
		return 0, false
	}
	width, _, err := getTerminalSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return 0, false
	}
	return width, true
}
