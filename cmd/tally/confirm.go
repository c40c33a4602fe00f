package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/thisdougb/tally"
)

// terminalConfirm asks the operator on out and reads the answer from in.
// Anything other than y or yes declines.
func terminalConfirm(in io.Reader, out io.Writer) tally.ConfirmFunc {
	reader := bufio.NewReader(in)

	return func(ctx context.Context, drift tally.Drift) bool {
		if drift.Unreadable != nil {
			fmt.Fprintf(out, "Database %s could not be read: %v\n", drift.Path, drift.Unreadable)
		} else {
			fmt.Fprintf(out, "Schema change detected in %s\n", drift.Path)
			fmt.Fprintf(out, "  found:    %s\n", drift.Actual)
		}
		fmt.Fprintf(out, "  expected: %s\n", drift.Expected)
		fmt.Fprintf(out, "The current file will be backed up and a new table created. Continue? (y/N): ")

		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			fmt.Fprintln(out)
			return false
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

func alwaysConfirm(ctx context.Context, drift tally.Drift) bool {
	return true
}
