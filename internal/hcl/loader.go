package hcl

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
	"github.com/specialistvlad/gridpi/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	evalCtx *hcl.EvalContext
}

// NewLoader creates a new HCL job loader that evaluates expressions against
// the live process environment.
func NewLoader() *Loader {
	return &Loader{evalCtx: defaultEvalContext()}
}

// NewLoaderWithEnv creates a loader whose env variable holds exactly environ
// (KEY=VALUE pairs) instead of the process environment.
func NewLoaderWithEnv(environ []string) *Loader {
	return &Loader{evalCtx: newEvalContext(environ)}
}

// Load reads the job at path. A directory is searched recursively for .hcl
// files; across all of them there must be exactly one job block.
func (l *Loader) Load(ctx context.Context, path string) (*config.Job, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	files, err := l.findHCLFiles(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var (
		found   *jobBlock
		foundIn string
	)
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: failed to parse %s: %w", config.ErrInvalidJob, file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: failed to decode %s: %w", config.ErrInvalidJob, file, diags)
		}

		for _, jb := range root.Jobs {
			if found != nil {
				return nil, fmt.Errorf("%w: job %q in %s conflicts with job %q in %s; exactly one job is allowed",
					config.ErrInvalidJob, jb.Name, file, found.Name, foundIn)
			}
			found, foundIn = jb, file
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no job block found in %s", config.ErrInvalidJob, path)
	}

	job, err := translateJob(ctx, found, l.evalCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", config.ErrInvalidJob, foundIn, err)
	}
	logger.Debug("HCL loading complete.", "job", job.Name, "file", foundIn, "reports", len(job.Reports))
	return job, nil
}

// findHCLFiles returns path itself for a file, or every .hcl file below a
// directory in lexical order.
func (l *Loader) findHCLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: error accessing path %s: %w", config.ErrInvalidJob, path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("%w: error walking %s: %w", config.ErrInvalidJob, path, err)
	}
	sort.Strings(files)
	return files, nil
}
