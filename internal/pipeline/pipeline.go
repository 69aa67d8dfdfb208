// Package pipeline runs one uploaded sales file through reconciliation,
// analysis, publishing and history recording.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sales-insights/internal/analysis"
	"github.com/sells-group/sales-insights/internal/dataset"
	"github.com/sells-group/sales-insights/internal/publish"
	"github.com/sells-group/sales-insights/internal/reconcile"
	"github.com/sells-group/sales-insights/internal/schema"
	"github.com/sells-group/sales-insights/internal/store"
)

// SuccessMessage is returned with every processed upload.
const SuccessMessage = "Файл успішно завантажено та оброблено!"

// ErrUnreadable marks uploads that could not be parsed as a table.
var ErrUnreadable = eris.New("pipeline: file is not a readable table")

// Upload is one file submitted for processing.
type Upload struct {
	Filename string
	Data     io.Reader
}

// Response is the outcome reported back to the uploader.
type Response struct {
	Message         string              `json:"message" yaml:"message"`
	UploadID        uuid.UUID           `json:"upload_id" yaml:"upload_id"`
	MappedColumns   *reconcile.Mapping  `json:"mapped_columns" yaml:"mapped_columns"`
	UnmappedColumns []string            `json:"unmapped_columns" yaml:"unmapped_columns"`
	FinalColumns    []string            `json:"final_columns" yaml:"final_columns"`
	Insights        []string            `json:"insights" yaml:"insights"`
	Summary         *analysis.Summary   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Imputation      analysis.Imputation `json:"imputation" yaml:"imputation"`

	result *analysis.Result
}

// Dataset returns the enriched dataset behind the response.
func (r *Response) Dataset() *dataset.Dataset {
	if r.result == nil {
		return nil
	}
	return r.result.Dataset
}

// Pipeline processes uploads. It is safe for concurrent use.
type Pipeline struct {
	reg        *schema.Registry
	reconciler *reconcile.Reconciler
	engine     *analysis.Engine
	publishers []publish.Publisher
	store      store.Store
	tempDir    string

	newID func() uuid.UUID
	now   func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublishers sets the destinations for finished extracts.
func WithPublishers(pubs ...publish.Publisher) Option {
	return func(p *Pipeline) { p.publishers = pubs }
}

// WithStore records every processed upload in st.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithTempDir sets where extracts are staged before publishing.
func WithTempDir(dir string) Option {
	return func(p *Pipeline) { p.tempDir = dir }
}

// New creates a Pipeline.
func New(reg *schema.Registry, rec *reconcile.Reconciler, eng *analysis.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		reg:        reg,
		reconciler: rec,
		engine:     eng,
		newID:      uuid.New,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes u. Only unreadable or unsupported input fails; analysis,
// publish and store problems are reported through insights and logs.
func (p *Pipeline) Run(ctx context.Context, u Upload) (*Response, error) {
	id := p.newID()
	log := zap.L().With(zap.String("upload_id", id.String()), zap.String("filename", u.Filename))
	start := time.Now()

	tbl, err := p.read(u)
	if err != nil {
		log.Warn("pipeline: unreadable upload", zap.Error(err))
		return nil, err
	}

	mapping := p.reconciler.Reconcile(tbl.Header)
	ds := dataset.Build(tbl, mapping, p.reg)
	log.Info("pipeline: columns reconciled",
		zap.Int("columns", len(tbl.Header)),
		zap.Int("mapped", mapping.Len()),
		zap.Int("rows", len(ds.Rows)),
	)

	res := p.engine.Process(ds)

	resp := &Response{
		Message:         SuccessMessage,
		UploadID:        id,
		MappedColumns:   mapping,
		UnmappedColumns: nonNil(mapping.Unmapped()),
		FinalColumns:    nonNil(ds.Columns(p.reg)),
		Summary:         res.Summary,
		Imputation:      res.Imputation,
		result:          &res,
	}
	resp.Insights = append(resp.Insights, res.Insights...)
	resp.Insights = append(resp.Insights, p.publish(ctx, id, u.Filename, &res)...)

	p.record(ctx, resp, u.Filename)

	log.Info("pipeline: upload processed",
		zap.Int("insights", len(resp.Insights)),
		zap.Bool("analysis_failed", res.Failed),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return resp, nil
}

func (p *Pipeline) read(u Upload) (*dataset.Table, error) {
	format, err := dataset.DetectFormat(u.Filename)
	if err != nil {
		return nil, err
	}
	tbl, err := dataset.Read(u.Data, format)
	if err != nil {
		return nil, eris.Wrapf(ErrUnreadable, "%s: %v", u.Filename, err)
	}
	return tbl, nil
}

// publish stages the extract and fans it out. Each failure becomes an insight.
func (p *Pipeline) publish(ctx context.Context, id uuid.UUID, filename string, res *analysis.Result) []string {
	if len(p.publishers) == 0 {
		return nil
	}

	var warnings []string
	err := publish.Stage(p.tempDir, res.Dataset, p.reg, func(path string) error {
		a := &publish.Artifact{Path: path, UploadID: id.String(), Filename: filename, Result: res}
		for _, f := range publish.Fanout(ctx, a, p.publishers...) {
			warnings = append(warnings, f.Insight())
		}
		return nil
	})
	if err != nil {
		zap.L().Error("pipeline: stage extract", zap.String("upload_id", id.String()), zap.Error(err))
		warnings = append(warnings, publish.Failure{Publisher: "stage", Err: err}.Insight())
	}
	return warnings
}

// record saves the upload history. Failures are logged only.
func (p *Pipeline) record(ctx context.Context, resp *Response, filename string) {
	if p.store == nil {
		return
	}

	mapping, err := resp.MappedColumns.MarshalJSON()
	if err != nil {
		zap.L().Error("pipeline: encode mapping", zap.Error(err))
		return
	}
	u := &store.Upload{
		ID:         resp.UploadID,
		Filename:   filename,
		Mapping:    mapping,
		Columns:    resp.FinalColumns,
		Insights:   resp.Insights,
		Imputation: string(resp.Imputation.Tier),
		CreatedAt:  p.now().UTC(),
	}
	ds := resp.Dataset()
	if ds != nil {
		u.Rows = len(ds.Rows)
	}
	if resp.Summary != nil {
		u.TotalRevenue = resp.Summary.TotalRevenue
	}

	var rows []dataset.Row
	if ds != nil {
		rows = ds.Rows
	}
	if err := p.store.SaveUpload(ctx, u, rows); err != nil {
		zap.L().Error("pipeline: record upload",
			zap.String("upload_id", resp.UploadID.String()),
			zap.Error(err))
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
