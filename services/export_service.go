package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"sp-export/config"
	"sp-export/logger"
	"sp-export/models"
)

// ExportService runs the connect, query, render, upload pipeline. It keeps
// no state between runs; every call acquires and releases its own
// connection and buffer.
type ExportService struct {
	cfg     config.Config
	log     logger.Logger
	storage StorageService
	open    Opener
	results ResultStore
	// why storage is nil, reported on every invocation
	storageErr error
}

type ExportOption func(*ExportService)

// WithOpener replaces OpenDB, mainly for tests.
func WithOpener(open Opener) ExportOption {
	return func(s *ExportService) {
		if open != nil {
			s.open = open
		}
	}
}

// WithStorageError records why no storage backend could be built.
func WithStorageError(err error) ExportOption {
	return func(s *ExportService) {
		s.storageErr = err
	}
}

// WithResultStore records every finished invocation.
func WithResultStore(store ResultStore) ExportOption {
	return func(s *ExportService) {
		s.results = store
	}
}

func NewExportService(cfg config.Config, log logger.Logger, storage StorageService, opts ...ExportOption) *ExportService {
	if log == nil {
		log = logger.Discard()
	}
	s := &ExportService{
		cfg:     cfg,
		log:     log,
		storage: storage,
		open:    OpenDB,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run tracks the state of a single invocation.
type run struct {
	inv models.Invocation
	log logger.Logger
}

func (r *run) enter(stage models.Stage) {
	r.inv.Stage = stage
	r.log.Debug("stage", logger.Ctx{"stage": string(stage)})
}

// Run executes one export and returns its record. The error, when not nil,
// is always an *ExportError.
func (s *ExportService) Run(ctx context.Context) (models.Invocation, error) {
	return s.RunWithID(ctx, uuid.NewString())
}

func (s *ExportService) RunWithID(ctx context.Context, id string) (inv models.Invocation, err error) {
	start := time.Now()
	r := &run{
		inv: models.Invocation{
			ID:        id,
			Status:    models.StatusPending,
			Stage:     models.StageIdle,
			Bucket:    s.cfg.Storage.Bucket,
			Key:       ObjectKey,
			StartedAt: start.UTC(),
		},
		log: s.log.AddContext(logger.Ctx{"invocation": id}),
	}

	defer func() {
		if p := recover(); p != nil {
			err = newExportError(InternalError, r.inv.Stage, fmt.Errorf("panic: %v", p))
		}
		inv = s.finish(ctx, r, start, err)
	}()

	err = s.execute(ctx, r)
	return r.inv, err
}

func (s *ExportService) execute(ctx context.Context, r *run) error {
	if err := s.cfg.Validate(); err != nil {
		return newExportError(ConfigError, models.StageIdle, err)
	}
	if s.storage == nil {
		if s.storageErr != nil {
			return newExportError(ConfigError, models.StageIdle, fmt.Errorf("no storage configured: %w", s.storageErr))
		}
		return newExportError(ConfigError, models.StageIdle, errors.New("no storage configured"))
	}

	r.enter(models.StageConnecting)
	var db *sql.DB
	err := s.capture(ctx, "Export.Connect", func(ctx context.Context) error {
		var err error
		db, err = s.open(ctx, s.cfg.DB)
		if err == nil && db == nil {
			err = errors.New("no database handle returned")
		}
		return err
	})
	if err != nil {
		return asExportError(err, ConnectionError, models.StageConnecting)
	}
	defer func() {
		r.enter(models.StageClosing)
		if closeErr := db.Close(); closeErr != nil {
			r.log.Warn("failed to close database connection", logger.Ctx{"err": closeErr.Error()})
		}
	}()

	r.enter(models.StageQuerying)
	var rs models.ResultSet
	err = s.capture(ctx, "Export.Query", func(ctx context.Context) error {
		var err error
		rs, err = CallProcedure(ctx, db, s.cfg.DB.Driver, ProcedureName)
		return err
	})
	if err != nil {
		return asExportError(err, QueryError, models.StageQuerying)
	}
	r.inv.Columns = len(rs.Columns)
	r.inv.Rows = len(rs.Rows)
	r.log.Debug("procedure returned", logger.Ctx{"rows": r.inv.Rows, "columns": r.inv.Columns})

	r.enter(models.StageRendering)
	var buf *bytes.Buffer
	err = s.capture(ctx, "Export.Render", func(ctx context.Context) error {
		var err error
		buf, err = RenderXLSX(BuildDocument(rs))
		return err
	})
	if err != nil {
		return asExportError(err, RenderError, models.StageRendering)
	}
	defer buf.Reset()
	r.inv.Bytes = buf.Len()

	r.enter(models.StageUploading)
	body := bytes.NewReader(buf.Bytes())
	err = s.capture(ctx, "Export.Upload", func(ctx context.Context) error {
		return s.storage.PutObject(ctx, ObjectKey, body, int64(body.Len()))
	})
	if err != nil {
		return asExportError(err, UploadError, models.StageUploading)
	}
	r.inv.Location = s.storage.Location(ObjectKey)

	return nil
}

// finish settles the record, logs the outcome and stores it when a result
// store is configured.
func (s *ExportService) finish(ctx context.Context, r *run, start time.Time, err error) models.Invocation {
	r.inv.DurationMs = time.Since(start).Milliseconds()
	r.inv.Stage = models.StageDone

	if err != nil {
		var exportErr *ExportError
		if errors.As(err, &exportErr) {
			r.inv.FailedStage = exportErr.Stage
		}
		r.inv.Status = models.StatusFail
		r.inv.ErrorMessage = err.Error()
		r.log.Error(err.Error(), logger.Ctx{"kind": string(KindOf(err)), "stage": string(r.inv.FailedStage)})
	} else {
		r.inv.Status = models.StatusSuccess
		r.inv.Message = models.SuccessMessage
		r.log.Info(fmt.Sprintf("File uploaded successfully to %s/%s", r.inv.Bucket, r.inv.Key), logger.Ctx{
			"rows":        r.inv.Rows,
			"bytes":       r.inv.Bytes,
			"duration_ms": r.inv.DurationMs,
		})
	}

	if s.results != nil {
		if saveErr := s.results.Save(ctx, r.inv); saveErr != nil {
			r.log.Warn("failed to store invocation record", logger.Ctx{"err": saveErr.Error()})
		}
	}

	return r.inv
}

func (s *ExportService) capture(ctx context.Context, name string, fn func(context.Context) error) error {
	return traced(ctx, s.cfg.Tracing.Enabled, name, fn)
}

// Invoke runs one export and converts the outcome into the function's
// response: 200 with a JSON confirmation, or 500 with the error text.
func (s *ExportService) Invoke(ctx context.Context, event json.RawMessage) models.Response {
	s.log.Debug("invoked", logger.Ctx{"event_bytes": len(event)})

	_, err := s.Run(ctx)
	return ResponseFor(err)
}

// ResponseFor maps a pipeline outcome to the trigger response.
func ResponseFor(err error) models.Response {
	if err != nil {
		return models.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       err.Error(),
		}
	}

	body, _ := json.Marshal(models.SuccessBody{Message: models.SuccessMessage})
	return models.Response{
		StatusCode: http.StatusOK,
		Body:       string(body),
	}
}
