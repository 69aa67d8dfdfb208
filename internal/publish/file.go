package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FilePublisher copies the extract to a fixed path that BI dashboards read.
// The target is replaced atomically so readers never see a partial file.
type FilePublisher struct {
	Dir      string
	FileName string
}

// NewFilePublisher creates a FilePublisher writing dir/fileName.
func NewFilePublisher(dir, fileName string) *FilePublisher {
	return &FilePublisher{Dir: dir, FileName: fileName}
}

// Name implements Publisher.
func (p *FilePublisher) Name() string { return "file" }

// Target returns the path the extract is published to.
func (p *FilePublisher) Target() string {
	return filepath.Join(p.Dir, p.FileName)
}

// Publish implements Publisher.
func (p *FilePublisher) Publish(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "publish: file")
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return eris.Wrapf(err, "publish: create dir %s", p.Dir)
	}

	src, err := os.Open(a.Path)
	if err != nil {
		return eris.Wrap(err, "publish: open staged extract")
	}
	defer src.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(p.Dir, "."+p.FileName+"-*")
	if err != nil {
		return eris.Wrap(err, "publish: create temp target")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "publish: copy extract")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "publish: close temp target")
	}
	if err := os.Rename(tmpPath, p.Target()); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrapf(err, "publish: replace %s", p.Target())
	}

	zap.L().Info("publish: extract written",
		zap.String("upload_id", a.UploadID),
		zap.String("path", p.Target()))
	return nil
}
