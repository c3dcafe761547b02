package budget

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo RepositoryPort) chi.Router {
	svc := NewService(repo, nil, testLogger())
	h := NewHandler(testLogger(), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func uuidFixtureRepo(corporationUUID, projectUUID string) *memoryBudgetRepo {
	repo := fixtureRepo()
	repo.project.UUID = projectUUID
	for i := range repo.estimates {
		repo.estimates[i].ProjectUUID = projectUUID
	}
	for i := range repo.purchaseOrders {
		repo.purchaseOrders[i].ProjectUUID = projectUUID
	}
	for i := range repo.changeOrders {
		repo.changeOrders[i].ProjectUUID = projectUUID
	}
	for i := range repo.invoices {
		if repo.invoices[i].ProjectUUID == testProject {
			repo.invoices[i].ProjectUUID = projectUUID
		}
	}
	return repo
}

func TestGetReportEndpoint(t *testing.T) {
	corpID := uuid.NewString()
	projectID := uuid.NewString()
	router := newTestRouter(uuidFixtureRepo(corpID, projectID))

	req := httptest.NewRequest(http.MethodGet, "/projects/"+projectID+"/budget-report?corporation_uuid="+corpID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, projectID, report.ProjectUUID)
	require.Len(t, report.Divisions, 1)
	require.InDelta(t, 1550, report.Summary.BudgetedAmount, 1e-9)
}

func TestGetReportEndpointRequiresCorporation(t *testing.T) {
	projectID := uuid.NewString()
	router := newTestRouter(fixtureRepo())

	req := httptest.NewRequest(http.MethodGet, "/projects/"+projectID+"/budget-report", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportEndpointRejectsMalformedIDs(t *testing.T) {
	router := newTestRouter(fixtureRepo())

	req := httptest.NewRequest(http.MethodGet, "/projects/not-a-uuid/budget-report?corporation_uuid="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportReportCSVEndpoint(t *testing.T) {
	corpID := uuid.NewString()
	projectID := uuid.NewString()
	router := newTestRouter(uuidFixtureRepo(corpID, projectID))

	req := httptest.NewRequest(http.MethodGet, "/projects/"+projectID+"/budget-report/export.csv?corporation_uuid="+corpID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "budget-report.csv")

	body := rec.Body.String()
	require.Contains(t, body, "# Budget report: Harbor Tower")
	require.Contains(t, body, "number,name,budgeted")
	require.Contains(t, body, "TOTAL")
}
