// Package packager drives the helm CLI for chart validation and repository
// index generation
package packager

import (
	"context"
	"fmt"

	"github.com/ralt/chartrepo/internal/runner"
)

// IndexOptions controls index generation
type IndexOptions struct {
	// URL is prepended to every chart entry's download URL
	URL string

	// MergeFrom is an existing index document to merge new entries into
	MergeFrom string
}

// Packager validates charts and generates repository indexes
type Packager interface {
	// Lint validates a packaged chart
	Lint(ctx context.Context, chartPath string) error

	// Index writes dir/index.yaml describing every chart archive in dir
	Index(ctx context.Context, dir string, opts IndexOptions) error
}

// HelmCLI implements Packager with the helm binary
type HelmCLI struct {
	bin    string
	runner runner.Runner
}

// NewHelmCLI creates a Packager using the helm binary at bin
func NewHelmCLI(bin string, r runner.Runner) *HelmCLI {
	if bin == "" {
		bin = "helm"
	}
	return &HelmCLI{bin: bin, runner: r}
}

// Lint runs helm lint on the chart
func (h *HelmCLI) Lint(ctx context.Context, chartPath string) error {
	if err := h.runner.Run(ctx, h.bin, "lint", chartPath); err != nil {
		return fmt.Errorf("helm lint failed for %s: %w", chartPath, err)
	}
	return nil
}

// Index runs helm repo index on dir
func (h *HelmCLI) Index(ctx context.Context, dir string, opts IndexOptions) error {
	args := []string{"repo", "index", dir}
	if opts.URL != "" {
		args = append(args, "--url", opts.URL)
	}
	if opts.MergeFrom != "" {
		args = append(args, "--merge", opts.MergeFrom)
	}

	if err := h.runner.Run(ctx, h.bin, args...); err != nil {
		return fmt.Errorf("helm repo index failed: %w", err)
	}
	return nil
}
