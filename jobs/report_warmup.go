package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitebook-erp/sitebook-erp/internal/budget"
)

// ReportWarmupJob pre-populates the budget report cache for active projects
// so the first interactive request of the day does not pay the fan-out cost.
type ReportWarmupJob struct {
	Reports *budget.Service
	Cache   *budget.Cache
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports *budget.Service, cache *budget.Cache, pool *pgxpool.Pool, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports: reports,
		Cache:   cache,
		Pool:    pool,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Scope == "" {
		payload.Scope = "active"
	}

	logger := j.logger().With(slog.String("scope", payload.Scope))
	logger.Info("starting report warmup")

	scopes, err := j.fetchScopes(ctx)
	if err != nil {
		logger.Error("load warmup scopes", slog.Any("error", err))
		return err
	}
	if len(scopes) == 0 {
		logger.Info("no projects discovered for warmup")
		return nil
	}

	// Bump first so the pass below repopulates fresh entries.
	if err := j.Cache.Bump(ctx); err != nil {
		logger.Warn("bump report cache", slog.Any("error", err))
	}

	start := j.now()
	warmed := 0
	for _, scope := range scopes {
		if err := j.warmProject(ctx, scope); err != nil {
			// One broken project must not starve the rest of the fleet.
			logger.Error("warm project",
				slog.String("corporation", scope.CorporationUUID),
				slog.String("project", scope.ProjectUUID),
				slog.Any("error", err))
			continue
		}
		warmed++
	}

	logger.Info("completed report warmup", slog.Int("projects", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReportWarmupJob) warmProject(ctx context.Context, scope warmupScope) error {
	if j.Reports == nil {
		return nil
	}
	scopeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := j.Reports.GetReport(scopeCtx, scope.CorporationUUID, scope.ProjectUUID)
	return err
}

func (j *ReportWarmupJob) fetchScopes(ctx context.Context) ([]warmupScope, error) {
	if j.Pool == nil {
		return nil, errors.New("report warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT corporation_uuid, uuid FROM projects WHERE COALESCE(is_active, TRUE) ORDER BY corporation_uuid, uuid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scopes := make([]warmupScope, 0)
	for rows.Next() {
		var scope warmupScope
		if err := rows.Scan(&scope.CorporationUUID, &scope.ProjectUUID); err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scopes, nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBudgetReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskBudgetReportWarmup))
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

type warmupScope struct {
	CorporationUUID string
	ProjectUUID     string
}
