package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// pandocArgs builds the html to docx invocation. A table of contents is
// added when more than one section is exported.
func pandocArgs(meta pageMeta) []string {
	args := []string{
		"--from", "html",
		"--to", "docx",
		"--standalone",
		"--metadata", "title=" + meta.Title,
	}
	if meta.Path != "" && meta.Path != meta.Title {
		args = append(args, "--metadata", "subtitle="+meta.Path)
	}
	if meta.Sections > 1 {
		args = append(args, "--toc")
	}
	return append(args, "--output", "-")
}

func renderDOCX(ctx context.Context, doc string, meta pageMeta) ([]byte, error) {
	if _, err := exec.LookPath("pandoc"); err != nil {
		return nil, fmt.Errorf("%w: pandoc not installed", ErrDOCXDependencyMissing)
	}

	cmd := exec.CommandContext(ctx, "pandoc", pandocArgs(meta)...)
	cmd.Stdin = strings.NewReader(doc)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("pandoc exited with %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("run pandoc: %w", err)
	}
	return out, nil
}
