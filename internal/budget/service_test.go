package budget

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryBudgetRepo struct {
	mu sync.Mutex

	project    Project
	projectErr error

	divisions []Division
	costCodes []CostCodeNode

	estimates        []Estimate
	estimateItems    map[string][]RawEstimateItem
	estimateItemsErr map[string]error

	purchaseOrders []PurchaseOrder
	poItems        map[string][]RawPOItem
	poItemsErr     map[string]error

	changeOrders []ChangeOrder
	coItems      map[string][]RawCOItem

	invoices         []Invoice
	invoiceDetails   map[string]RawInvoiceDetail
	invoiceDetailErr map[string]error

	listCalls int
}

func (m *memoryBudgetRepo) GetProject(ctx context.Context, projectUUID string) (Project, error) {
	if m.projectErr != nil {
		return Project{}, m.projectErr
	}
	return m.project, nil
}

func (m *memoryBudgetRepo) GetDivisions(ctx context.Context, corporationUUID string) ([]Division, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	return m.divisions, nil
}

func (m *memoryBudgetRepo) GetCostCodes(ctx context.Context, corporationUUID string) ([]CostCodeNode, error) {
	return m.costCodes, nil
}

func (m *memoryBudgetRepo) GetEstimates(ctx context.Context, projectUUID string) ([]Estimate, error) {
	return m.estimates, nil
}

func (m *memoryBudgetRepo) GetEstimateItems(ctx context.Context, estimateUUID string) ([]RawEstimateItem, error) {
	if err := m.estimateItemsErr[estimateUUID]; err != nil {
		return nil, err
	}
	return m.estimateItems[estimateUUID], nil
}

func (m *memoryBudgetRepo) GetPurchaseOrders(ctx context.Context, projectUUID string) ([]PurchaseOrder, error) {
	return m.purchaseOrders, nil
}

func (m *memoryBudgetRepo) GetPurchaseOrderItems(ctx context.Context, poUUID string, docType DocType) ([]RawPOItem, error) {
	if err := m.poItemsErr[poUUID]; err != nil {
		return nil, err
	}
	return m.poItems[poUUID], nil
}

func (m *memoryBudgetRepo) GetChangeOrders(ctx context.Context, projectUUID string) ([]ChangeOrder, error) {
	return m.changeOrders, nil
}

func (m *memoryBudgetRepo) GetChangeOrderItems(ctx context.Context, coUUID string, docType DocType) ([]RawCOItem, error) {
	return m.coItems[coUUID], nil
}

func (m *memoryBudgetRepo) GetPaidInvoices(ctx context.Context, corporationUUID string) ([]Invoice, error) {
	return m.invoices, nil
}

func (m *memoryBudgetRepo) GetInvoiceDetail(ctx context.Context, invoiceUUID string) (RawInvoiceDetail, error) {
	if err := m.invoiceDetailErr[invoiceUUID]; err != nil {
		return RawInvoiceDetail{}, err
	}
	return m.invoiceDetails[invoiceUUID], nil
}

func (m *memoryBudgetRepo) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	testCorp    = "corp-1"
	testProject = "proj-1"
)

func fixtureRepo() *memoryBudgetRepo {
	return &memoryBudgetRepo{
		project: Project{UUID: testProject, Name: "Harbor Tower", ExternalID: "HT-12", NumberOfRooms: 10, ContingencyPct: 5},
		divisions: []Division{
			{UUID: "div-1", Number: "01", Name: "General", Order: 1},
		},
		costCodes: []CostCodeNode{
			{UUID: "cc-a", Number: "01-100", Name: "Concrete", Order: 1, DivisionUUID: "div-1"},
			{UUID: "cc-b", Number: "01-200", Name: "Steel", Order: 2, DivisionUUID: "div-1"},
		},
		estimates: []Estimate{
			{
				UUID: "est-1", ProjectUUID: testProject, Status: "Approved", IsActive: true,
				LineItems: []RawEstimateItem{
					{CostCodeUUID: "cc-a", BaseAmount: 1000.0, ContingencyEnabled: true, ContingencyPct: 5.0},
					{CostCodeUUID: "cc-b", BaseAmount: 500.0},
				},
			},
		},
		purchaseOrders: []PurchaseOrder{
			{UUID: "po-1", ProjectUUID: testProject, Status: "Approved", IsActive: true, Type: DocTypeMaterial, TaxTotal: 10.0},
			{UUID: "po-draft", ProjectUUID: testProject, Status: "Draft", IsActive: true, Type: DocTypeMaterial},
		},
		poItems: map[string][]RawPOItem{
			"po-1": {
				{CostCodeUUID: "cc-a", Total: 60.0},
				{CostCodeUUID: "cc-b", Total: 40.0},
			},
			"po-draft": {{CostCodeUUID: "cc-a", Total: 99999.0}},
		},
		changeOrders: []ChangeOrder{
			{UUID: "co-1", ProjectUUID: testProject, Status: "approved", Type: DocTypeLabor, ChargesTotal: 20.0},
		},
		coItems: map[string][]RawCOItem{
			"co-1": {{CostCodeUUID: "cc-a", Amount: 100.0}},
		},
		invoices: []Invoice{
			{UUID: "inv-1", ProjectUUID: testProject, Status: "Paid", Type: InvoiceDirect, Amount: 110.0},
			{UUID: "inv-other", ProjectUUID: "proj-2", Status: "Paid", Type: InvoiceDirect, Amount: 500.0},
		},
		invoiceDetails: map[string]RawInvoiceDetail{
			"inv-1": {
				Type: InvoiceDirect,
				DirectItems: []RawInvoiceDirectItem{
					{CostCodeUUID: "cc-a", Total: 60.0},
					{CostCodeUUID: "cc-b", Total: 40.0},
				},
			},
			"inv-other": {
				Type:        InvoiceDirect,
				DirectItems: []RawInvoiceDirectItem{{CostCodeUUID: "cc-a", Total: 500.0}},
			},
		},
	}
}

func TestBuildReportMissingIdentifiers(t *testing.T) {
	svc := NewService(fixtureRepo(), nil, testLogger())

	_, err := svc.BuildReport(context.Background(), "", testProject)
	require.ErrorIs(t, err, ErrMissingInput)

	_, err = svc.BuildReport(context.Background(), testCorp, "")
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestBuildReportAggregatesAllSources(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil, testLogger())

	report, err := svc.BuildReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	require.Empty(t, report.Skipped)
	require.NotEmpty(t, report.ReportUUID)
	require.Equal(t, "Harbor Tower", report.ProjectName)
	require.Equal(t, "HT-12", report.ExternalID)

	require.Len(t, report.Divisions, 1)
	div := report.Divisions[0]
	require.Len(t, div.CostCodes, 2)

	concrete := div.CostCodes[0]
	require.Equal(t, "cc-a", concrete.CostCodeUUID)
	require.InDelta(t, 1050, concrete.BudgetedAmount, 1e-9)
	require.InDelta(t, 66, concrete.PurchaseOrderAmount, 1e-9)
	require.InDelta(t, 120, concrete.ChangeOrderAmount, 1e-9)
	require.InDelta(t, 66, concrete.PaidAmount, 1e-9)
	require.InDelta(t, 186, concrete.TotalAmount, 1e-9)
	require.InDelta(t, 864, concrete.BudgetRemaining, 1e-9)

	steel := div.CostCodes[1]
	require.Equal(t, "cc-b", steel.CostCodeUUID)
	require.InDelta(t, 500, steel.BudgetedAmount, 1e-9)
	require.InDelta(t, 44, steel.PurchaseOrderAmount, 1e-9)
	require.InDelta(t, 44, steel.PaidAmount, 1e-9)

	require.InDelta(t, 1550, report.Summary.BudgetedAmount, 1e-9)
	require.InDelta(t, 110, report.Summary.PurchaseOrderAmount, 1e-9)
	require.InDelta(t, 120, report.Summary.ChangeOrderAmount, 1e-9)
	require.InDelta(t, 110, report.Summary.PaidAmount, 1e-9)
	require.InDelta(t, 230, report.Summary.TotalAmount, 1e-9)
	require.InDelta(t, 1320, report.Summary.BudgetRemaining, 1e-9)
	require.InDelta(t, 23, report.Summary.CostPerRoom, 1e-9)
}

func TestBuildReportIgnoresOtherProjectsInvoices(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil, testLogger())

	report, err := svc.BuildReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)

	// inv-other belongs to proj-2 and must not inflate the paid bucket.
	require.InDelta(t, 110, report.Summary.PaidAmount, 1e-9)
}

func TestBuildReportDegradesFailedDocumentToZero(t *testing.T) {
	repo := fixtureRepo()
	repo.poItemsErr = map[string]error{"po-1": errors.New("connection reset")}
	svc := NewService(repo, nil, testLogger())

	report, err := svc.BuildReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)

	require.Len(t, report.Skipped, 1)
	require.Equal(t, "purchase_order", report.Skipped[0].Kind)
	require.Equal(t, "po-1", report.Skipped[0].UUID)
	require.Contains(t, report.Skipped[0].Reason, "connection reset")

	// The rest of the report is unaffected; only the failed document
	// contributes zero.
	require.InDelta(t, 0, report.Summary.PurchaseOrderAmount, 1e-9)
	require.InDelta(t, 1550, report.Summary.BudgetedAmount, 1e-9)
	require.InDelta(t, 120, report.Summary.ChangeOrderAmount, 1e-9)
	require.InDelta(t, 110, report.Summary.PaidAmount, 1e-9)
}

func TestBuildReportProjectLoadFailureDegrades(t *testing.T) {
	repo := fixtureRepo()
	repo.projectErr = errors.New("timeout")
	svc := NewService(repo, nil, testLogger())

	report, err := svc.BuildReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)

	require.Empty(t, report.ProjectName)
	require.InDelta(t, 0, report.NumberOfRooms, 1e-9)
	require.InDelta(t, 0, report.Summary.CostPerRoom, 1e-9)
	// Amounts still aggregate normally.
	require.InDelta(t, 110, report.Summary.PurchaseOrderAmount, 1e-9)
}

func TestBuildReportFetchesEstimateItemsWhenNotInlined(t *testing.T) {
	repo := fixtureRepo()
	repo.estimates = []Estimate{
		{UUID: "est-2", ProjectUUID: testProject, Status: "Approved", IsActive: "true"},
	}
	repo.estimateItems = map[string][]RawEstimateItem{
		"est-2": {{CostCodeUUID: "cc-a", BaseAmount: 700.0}},
	}
	svc := NewService(repo, nil, testLogger())

	report, err := svc.BuildReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	require.InDelta(t, 700, report.Summary.BudgetedAmount, 1e-9)
}

func TestBuildReportEstimateItemFetchFailureSkips(t *testing.T) {
	repo := fixtureRepo()
	repo.estimates = []Estimate{
		{UUID: "est-2", ProjectUUID: testProject, Status: "Approved", IsActive: true},
	}
	repo.estimateItemsErr = map[string]error{"est-2": errors.New("gone")}
	svc := NewService(repo, nil, testLogger())

	report, err := svc.BuildReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	require.Equal(t, "estimate", report.Skipped[0].Kind)
	require.InDelta(t, 0, report.Summary.BudgetedAmount, 1e-9)
}

func TestBuildReportDeterministicAcrossRuns(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil, testLogger())

	first, err := svc.BuildReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := svc.BuildReport(context.Background(), testCorp, testProject)
		require.NoError(t, err)
		require.Equal(t, first.Summary, again.Summary)
		require.Equal(t, first.Divisions, again.Divisions)
	}
}

func TestBuildReportObserverOutcome(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil, testLogger())

	var outcomes []string
	svc.SetBuildObserver(func(outcome string, _ time.Duration) {
		outcomes = append(outcomes, outcome)
	})

	_, err := svc.BuildReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	_, err = svc.BuildReport(context.Background(), "", "")
	require.ErrorIs(t, err, ErrMissingInput)

	require.Equal(t, []string{"success", "error"}, outcomes)
}

func TestGetReportUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := fixtureRepo()
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache, testLogger())

	first, err := svc.GetReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls())

	second, err := svc.GetReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls())
	require.Equal(t, first.ReportUUID, second.ReportUUID)
	require.Equal(t, first.Summary, second.Summary)

	// Bumping the version invalidates every cached report.
	require.NoError(t, cache.Bump(context.Background()))
	_, err = svc.GetReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls())
}

func TestGetReportWithoutCacheRecomputes(t *testing.T) {
	repo := fixtureRepo()
	svc := NewService(repo, nil, testLogger())

	_, err := svc.GetReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	_, err = svc.GetReport(context.Background(), testCorp, testProject)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls())
}

func TestGetReportMissingIdentifiers(t *testing.T) {
	svc := NewService(fixtureRepo(), nil, testLogger())
	_, err := svc.GetReport(context.Background(), "", "")
	require.ErrorIs(t, err, ErrMissingInput)
}
