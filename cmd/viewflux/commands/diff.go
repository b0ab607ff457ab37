package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/viewflux/viewflux/pkg/change"
)

// diffArgCount is the number of arguments expected by the diff command.
const diffArgCount = 2

// ErrUnsupportedDiffFmt indicates an unknown diff output format.
var ErrUnsupportedDiffFmt = errors.New("unsupported format")

// DiffCommand holds configuration for the diff command.
type DiffCommand struct {
	format  string
	noColor bool
	writer  io.Writer
}

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	diff := &DiffCommand{writer: os.Stdout}

	cmd := &cobra.Command{
		Use:   "diff file1 file2",
		Short: "Compute the edit script between two text files",
		Long: `Compute the edit script transforming one text file into another.

The script is expressed line by line in the same change algebra the view
pipeline emits; applying it to the first file yields exactly the second.

Examples:
  viewflux diff old.txt new.txt             # Colorized script
  viewflux diff -f summary old.txt new.txt  # Operation counts only`,
		Args: cobra.ExactArgs(diffArgCount),
		RunE: func(_ *cobra.Command, args []string) error {
			return diff.Run(args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&diff.format, "format", "f", "script", "output format (script, summary)")
	cmd.Flags().BoolVar(&diff.noColor, "no-color", false, "disable colored output")

	return cmd
}

// Run computes and prints the diff between the two files.
func (dc *DiffCommand) Run(file1, file2 string) error {
	oldLines, err := readLines(file1)
	if err != nil {
		return err
	}

	newLines, err := readLines(file2)
	if err != nil {
		return err
	}

	script := change.DiffLines(oldLines, newLines)

	switch dc.format {
	case "script":
		dc.printScript(script)

		return nil
	case "summary":
		dc.printSummary(script)

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDiffFmt, dc.format)
	}
}

func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text := strings.TrimSuffix(string(raw), "\n")
	if text == "" {
		return nil, nil
	}

	return strings.Split(text, "\n"), nil
}

func (dc *DiffCommand) printScript(script change.ArrayChange[string]) {
	removed := color.New(color.FgRed)
	inserted := color.New(color.FgGreen)

	if dc.noColor {
		removed.DisableColor()
		inserted.DisableColor()
	}

	for _, op := range script.Ops() {
		fmt.Fprintf(dc.writer, "@ %d\n", op.At)

		for _, line := range op.Old {
			removed.Fprintf(dc.writer, "-%s\n", line)
		}

		for _, line := range op.New {
			inserted.Fprintf(dc.writer, "+%s\n", line)
		}
	}
}

func (dc *DiffCommand) printSummary(script change.ArrayChange[string]) {
	removedCount, insertedCount := 0, 0

	for _, op := range script.Ops() {
		removedCount += len(op.Old)
		insertedCount += len(op.New)
	}

	fmt.Fprintf(dc.writer, "%d op(s): %d line(s) removed, %d line(s) inserted\n",
		len(script.Ops()), removedCount, insertedCount)
	fmt.Fprintf(dc.writer, "%d -> %d lines\n", script.InitialCount(), script.FinalCount())
}
