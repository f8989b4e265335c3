package installer

import (
	"context"
	"fmt"
	"strings"

	"github.com/kayz/appinstall/internal/envfile"
	"github.com/kayz/appinstall/internal/logger"
)

// Reconciler walks an environment file and re-collects every recognized
// value. Unrecognized lines are left byte for byte unless CaptureAll is set.
type Reconciler struct {
	Fields     FieldTable
	Collector  *Collector
	CaptureAll bool
}

// Reconcile rewrites the file at path in place. The file is saved after each
// changed entry, so an interrupted run keeps the answers given so far.
func (r *Reconciler) Reconcile(ctx context.Context, path string) (*envfile.File, error) {
	f, err := envfile.Load(path)
	if err != nil {
		return nil, err
	}

	for i := 0; i < f.Len(); i++ {
		entry, ok := f.Entry(i)
		if !ok {
			continue
		}
		spec, ok := r.Fields.Lookup(entry.Key, r.CaptureAll)
		if !ok {
			continue
		}

		value, err := r.Collector.Collect(ctx, spec, entry.Value)
		if err != nil {
			return f, fmt.Errorf("collecting %s: %w", entry.Key, err)
		}

		line := envfile.Format(entry.Key, value)
		if line == strings.TrimSuffix(f.Line(i), "\r") {
			continue
		}
		f.Set(i, line)
		if err := f.Save(); err != nil {
			return f, err
		}
		logger.Debug("[Reconcile] %s updated (line %d)", entry.Key, i+1)
	}

	return f, nil
}
