package budget

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultFetchLimit = 8

// Service builds budget-vs-actual reports from the source repositories.
type Service struct {
	repo       RepositoryPort
	cache      *Cache
	logger     *slog.Logger
	fetchLimit int
	clock      func() time.Time
	observe    func(outcome string, elapsed time.Duration)
}

// NewService constructs the report service. Cache may be nil, in which case
// every request recomputes the report.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		cache:      cache,
		logger:     logger,
		fetchLimit: defaultFetchLimit,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// SetBuildObserver installs a hook invoked after every report build with the
// outcome and wall time, used for metrics.
func (s *Service) SetBuildObserver(fn func(outcome string, elapsed time.Duration)) {
	s.observe = fn
}

// GetReport returns the cached report when available, building and caching it
// otherwise.
func (s *Service) GetReport(ctx context.Context, corporationUUID, projectUUID string) (Report, error) {
	if corporationUUID == "" || projectUUID == "" {
		return Report{}, ErrMissingInput
	}
	key, err := s.cache.ReportKey(ctx, corporationUUID, projectUUID)
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.BuildReport(ctx, corporationUUID, projectUUID)
	})
	return report, err
}

// contribution buckets, matching the four AllocationTarget fields.
const (
	bucketBudgeted = iota
	bucketPurchaseOrder
	bucketChangeOrder
	bucketPaid
)

type docResult struct {
	bucket  int
	amounts map[string]float64
	skipped *SkippedDocument
}

// BuildReport assembles the report for one project. A failed per-document
// sub-fetch degrades that document to zero and is recorded in the skipped
// manifest; only missing identifiers abort the computation.
func (s *Service) BuildReport(ctx context.Context, corporationUUID, projectUUID string) (Report, error) {
	start := time.Now()
	report, err := s.buildReport(ctx, corporationUUID, projectUUID)
	if s.observe != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		s.observe(outcome, time.Since(start))
	}
	return report, err
}

func (s *Service) buildReport(ctx context.Context, corporationUUID, projectUUID string) (Report, error) {
	if corporationUUID == "" || projectUUID == "" {
		return Report{}, ErrMissingInput
	}

	project, err := s.repo.GetProject(ctx, projectUUID)
	if err != nil {
		// Metadata only; the report still generates with zero rooms.
		s.logger.Warn("budget: load project", slog.String("project", projectUUID), slog.Any("error", err))
		project = Project{UUID: projectUUID}
	}

	divisions, err := s.repo.GetDivisions(ctx, corporationUUID)
	if err != nil {
		return Report{}, err
	}
	costCodes, err := s.repo.GetCostCodes(ctx, corporationUUID)
	if err != nil {
		return Report{}, err
	}

	estimates, err := s.repo.GetEstimates(ctx, projectUUID)
	if err != nil {
		return Report{}, err
	}
	purchaseOrders, err := s.repo.GetPurchaseOrders(ctx, projectUUID)
	if err != nil {
		return Report{}, err
	}
	changeOrders, err := s.repo.GetChangeOrders(ctx, projectUUID)
	if err != nil {
		return Report{}, err
	}
	invoices, err := s.repo.GetPaidInvoices(ctx, corporationUUID)
	if err != nil {
		return Report{}, err
	}

	type task struct {
		run func(context.Context) docResult
	}
	tasks := make([]task, 0, len(estimates)+len(purchaseOrders)+len(changeOrders)+len(invoices))

	for _, est := range estimates {
		if !estimateQualifies(est, projectUUID) {
			continue
		}
		est := est
		tasks = append(tasks, task{run: func(ctx context.Context) docResult {
			items := est.LineItems
			if len(items) == 0 {
				fetched, err := s.repo.GetEstimateItems(ctx, est.UUID)
				if err != nil {
					return skippedResult("estimate", est.UUID, err)
				}
				items = fetched
			}
			return docResult{bucket: bucketBudgeted, amounts: EstimateBudget(items, project.ContingencyPct)}
		}})
	}

	for _, po := range purchaseOrders {
		if !commitmentQualifies(po.Status, po.IsActive, po.ProjectUUID, projectUUID) {
			continue
		}
		po := po
		tasks = append(tasks, task{run: func(ctx context.Context) docResult {
			items, err := s.repo.GetPurchaseOrderItems(ctx, po.UUID, po.Type)
			if err != nil {
				return skippedResult("purchase_order", po.UUID, err)
			}
			amounts := AllocateCommitment(poLines(po.Type, items), toAmount(po.ChargesTotal), toAmount(po.TaxTotal))
			return docResult{bucket: bucketPurchaseOrder, amounts: amounts}
		}})
	}

	for _, co := range changeOrders {
		if !commitmentQualifies(co.Status, co.IsActive, co.ProjectUUID, projectUUID) {
			continue
		}
		co := co
		tasks = append(tasks, task{run: func(ctx context.Context) docResult {
			items, err := s.repo.GetChangeOrderItems(ctx, co.UUID, co.Type)
			if err != nil {
				return skippedResult("change_order", co.UUID, err)
			}
			amounts := AllocateCommitment(coLines(co.Type, items), toAmount(co.ChargesTotal), toAmount(co.TaxTotal))
			return docResult{bucket: bucketChangeOrder, amounts: amounts}
		}})
	}

	for _, inv := range invoices {
		if !invoiceQualifies(inv, projectUUID) {
			continue
		}
		inv := inv
		tasks = append(tasks, task{run: func(ctx context.Context) docResult {
			detail, err := s.repo.GetInvoiceDetail(ctx, inv.UUID)
			if err != nil {
				return skippedResult("invoice", inv.UUID, err)
			}
			return docResult{bucket: bucketPaid, amounts: AllocateInvoice(invoiceLines(detail), toAmount(inv.Amount))}
		}})
	}

	// Fan out the per-document fetches; every task writes only its own slot,
	// so results merge into the shared accumulator in one serial pass below.
	results := make([]docResult, len(tasks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.fetchLimit)
	for i, t := range tasks {
		i, t := i, t
		group.Go(func() error {
			results[i] = t.run(groupCtx)
			return nil
		})
	}
	_ = group.Wait()

	acc := NewAccumulator()
	var skipped []SkippedDocument
	for _, res := range results {
		if res.skipped != nil {
			s.logger.Warn("budget: source degraded to zero",
				slog.String("kind", res.skipped.Kind),
				slog.String("uuid", res.skipped.UUID),
				slog.String("reason", res.skipped.Reason))
			skipped = append(skipped, *res.skipped)
			continue
		}
		switch res.bucket {
		case bucketBudgeted:
			acc.AddBudgeted(res.amounts)
		case bucketPurchaseOrder:
			acc.AddPurchaseOrder(res.amounts)
		case bucketChangeOrder:
			acc.AddChangeOrder(res.amounts)
		case bucketPaid:
			acc.AddPaid(res.amounts)
		}
	}

	divisionRows := BuildDivisions(divisions, costCodes, acc, project.NumberOfRooms)

	return Report{
		ReportUUID:    uuid.NewString(),
		ProjectUUID:   projectUUID,
		ProjectName:   project.Name,
		ExternalID:    project.ExternalID,
		NumberOfRooms: project.NumberOfRooms,
		Divisions:     divisionRows,
		Summary:       Summarize(divisionRows, project.NumberOfRooms),
		Skipped:       skipped,
		GeneratedAt:   s.clock(),
	}, nil
}

func skippedResult(kind, uuid string, err error) docResult {
	return docResult{skipped: &SkippedDocument{Kind: kind, UUID: uuid, Reason: err.Error()}}
}
