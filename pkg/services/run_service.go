package services

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/export"
	"github.com/slatedata/querykit/pkg/history"
	"github.com/slatedata/querykit/pkg/logging"
	"github.com/slatedata/querykit/pkg/models"
	"github.com/slatedata/querykit/pkg/query"
	"github.com/slatedata/querykit/pkg/retry"
	"github.com/slatedata/querykit/pkg/tableau"
)

// TableauAPI is the slice of the HTTP client the services need.
type TableauAPI interface {
	ListDatasources(ctx context.Context, creds tableau.Credentials) ([]tableau.Datasource, error)
	ReadMetadata(ctx context.Context, creds tableau.Credentials, datasourceID string) ([]tableau.FieldMetadata, error)
	QueryDatasource(ctx context.Context, creds tableau.Credentials, req query.Request) ([]tableau.Record, error)
}

// CredentialSource hands out valid session credentials and accepts
// invalidation when the server rejects one.
type CredentialSource interface {
	GetValid(ctx context.Context) (tableau.Credentials, error)
	Invalidate()
}

// RunService executes a saved query end to end: build the payload, run
// it against the datasource, export the rows and leave a ledger row.
type RunService interface {
	// Run executes def and exports into outputDir using pattern.
	// The returned run reflects the outcome; an empty result is a
	// no_results run, not an error.
	Run(ctx context.Context, def models.QueryDefinition, outputDir, pattern string) (history.Run, error)

	// RunScheduled executes one fire of a schedule. The schedule's own
	// name, not the saved query's, is substituted into the output
	// pattern and recorded in the ledger. Failures are fully absorbed:
	// logged and recorded, never propagated, so one broken schedule
	// cannot disturb the others.
	RunScheduled(ctx context.Context, sched models.Schedule)
}

// RunServiceDeps contains dependencies for RunService.
type RunServiceDeps struct {
	API         TableauAPI
	Credentials CredentialSource
	History     *history.Store
	Retry       *retry.Config // Optional: defaults to retry.DefaultConfig()
	Clock       func() time.Time
	Logger      *zap.Logger
}

type runService struct {
	api     TableauAPI
	creds   CredentialSource
	history *history.Store
	retry   *retry.Config
	now     func() time.Time
	logger  *zap.Logger
}

// NewRunService creates a RunService.
func NewRunService(deps *RunServiceDeps) RunService {
	cfg := deps.Retry
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &runService{
		api:     deps.API,
		creds:   deps.Credentials,
		history: deps.History,
		retry:   cfg,
		now:     now,
		logger:  deps.Logger.Named("run"),
	}
}

var _ RunService = (*runService)(nil)

func (s *runService) Run(ctx context.Context, def models.QueryDefinition, outputDir, pattern string) (history.Run, error) {
	return s.runAs(ctx, def.Name, def, outputDir, pattern)
}

// runAs executes def and files the outcome under name. Ad-hoc runs pass
// the query's name; scheduled runs pass the schedule's.
func (s *runService) runAs(ctx context.Context, name string, def models.QueryDefinition, outputDir, pattern string) (history.Run, error) {
	started := s.now()
	run := history.Run{
		ScheduleName: name,
		Datasource:   def.DatasourceName,
		StartedAt:    started,
	}

	records, err := s.execute(ctx, def)
	if err != nil {
		run.Status = history.StatusFailed
		run.Error = logging.SanitizeError(err)
		run.FinishedAt = s.now()
		s.record(ctx, run)
		return run, err
	}

	path := filepath.Join(outputDir, export.ExpandPattern(pattern, name, started))
	switch exportErr := export.Write(path, records); {
	case errors.Is(exportErr, apperrors.ErrNoResults):
		run.Status = history.StatusNoResults
		s.logger.Info("query returned no rows, nothing exported",
			zap.String("query", def.Name))
	case exportErr != nil:
		run.Status = history.StatusFailed
		run.Error = logging.SanitizeError(exportErr)
		run.FinishedAt = s.now()
		s.record(ctx, run)
		return run, exportErr
	default:
		run.Status = history.StatusSucceeded
		run.RowsExported = len(records)
		run.OutputPath = path
		s.logger.Info("export complete",
			zap.String("query", def.Name),
			zap.Int("rows", len(records)),
			zap.String("path", path))
	}

	run.FinishedAt = s.now()
	s.record(ctx, run)
	return run, nil
}

func (s *runService) RunScheduled(ctx context.Context, sched models.Schedule) {
	run, err := s.runAs(ctx, sched.Name, sched.Query, sched.OutputDir, sched.OutputPattern)
	if err != nil {
		s.logger.Error("scheduled run failed",
			zap.String("schedule", sched.Name),
			zap.String("error", logging.SanitizeError(err)))
		return
	}
	if run.Status == history.StatusNoResults {
		s.logger.Info("scheduled run produced no rows",
			zap.String("schedule", sched.Name))
	}
}

// execute builds the payload and runs it, re-authenticating once per
// attempt when the session token has gone stale.
func (s *runService) execute(ctx context.Context, def models.QueryDefinition) ([]tableau.Record, error) {
	req, warnings, err := query.BuildFromDefinition(&def)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		s.logger.Warn(string(w), zap.String("query", def.Name))
	}

	return retry.DoWithReauth(ctx, s.retry, s.creds.Invalidate, func() ([]tableau.Record, error) {
		creds, err := s.creds.GetValid(ctx)
		if err != nil {
			return nil, err
		}
		return s.api.QueryDatasource(ctx, creds, req)
	})
}

func (s *runService) record(ctx context.Context, run history.Run) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record run", zap.Error(err))
	}
}
