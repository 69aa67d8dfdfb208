// Package publish hands finished extracts to their downstream consumers.
package publish

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sales-insights/internal/analysis"
	"github.com/sells-group/sales-insights/internal/dataset"
	"github.com/sells-group/sales-insights/internal/schema"
)

// Artifact is a staged extract plus the analysis it came from.
type Artifact struct {
	Path     string // CSV with the full output schema
	UploadID string
	Filename string
	Result   *analysis.Result
}

// Publisher delivers an artifact to one destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, a *Artifact) error
}

// Stage writes ds to a temporary CSV in dir (the OS default when empty),
// calls fn with its path and removes the file afterwards, whatever fn returns.
func Stage(dir string, ds *dataset.Dataset, reg *schema.Registry, fn func(path string) error) error {
	f, err := os.CreateTemp(dir, "sales-extract-*.csv")
	if err != nil {
		return eris.Wrap(err, "publish: create temp extract")
	}
	path := f.Name()
	defer os.Remove(path) //nolint:errcheck

	if err := dataset.WriteCSV(f, ds, reg); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "publish: write temp extract")
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "publish: close temp extract")
	}
	return fn(path)
}

// Failure records one publisher that did not succeed.
type Failure struct {
	Publisher string
	Err       error
}

// Insight renders f as a user-facing warning.
func (f Failure) Insight() string {
	return fmt.Sprintf("⚠️ Не вдалося опублікувати результати (%s). Аналіз виконано, але дані не передано далі.", f.Publisher)
}

// Fanout runs every publisher concurrently. A failing publisher does not
// cancel the others; failures are returned in publisher order.
func Fanout(ctx context.Context, a *Artifact, pubs ...Publisher) []Failure {
	errs := make([]error, len(pubs))

	var g errgroup.Group
	for i, p := range pubs {
		g.Go(func() error {
			if err := p.Publish(ctx, a); err != nil {
				zap.L().Error("publish: publisher failed",
					zap.String("publisher", p.Name()),
					zap.String("upload_id", a.UploadID),
					zap.Error(err))
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []Failure
	for i, err := range errs {
		if err != nil {
			out = append(out, Failure{Publisher: pubs[i].Name(), Err: err})
		}
	}
	return out
}
