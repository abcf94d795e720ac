// Package ui wraps the fzf binary for interactive selection. Rows are
// piped to fzf's stdin as index-prefixed plain text; nothing
// user-controlled ever passes through a shell.
package ui

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Select runs fzf over items with the given prompt and returns the index
// of the chosen item. Aborting the picker (ctrl-c, esc) is an error.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("nothing to select from")
	}
	path, err := exec.LookPath("fzf")
	if err != nil {
		return 0, fmt.Errorf("fzf not found in PATH: %w", err)
	}

	// Each row carries its index as a hidden first field so the choice
	// maps back to items regardless of display formatting.
	var in strings.Builder
	for i, item := range items {
		fmt.Fprintf(&in, "%d\t%s\n", i, item)
	}

	cmd := exec.Command(path,
		"--prompt", prompt+" > ",
		"--delimiter", "\t",
		"--with-nth", "2..",
		"--height", "40%",
		"--reverse",
		"--no-multi",
		"--cycle",
	)
	cmd.Stdin = strings.NewReader(in.String())
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("selection aborted")
	}

	line := strings.TrimSpace(string(out))
	idx, err := strconv.Atoi(strings.SplitN(line, "\t", 2)[0])
	if err != nil || idx < 0 || idx >= len(items) {
		return 0, fmt.Errorf("unexpected fzf output %q", line)
	}
	return idx, nil
}
