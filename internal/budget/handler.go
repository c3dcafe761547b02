package budget

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sitebook-erp/sitebook-erp/internal/platform/httpx"
)

// Handler exposes the budget report over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers the report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects/{projectUUID}/budget-report", h.getReport)
	r.Get("/projects/{projectUUID}/budget-report/export.csv", h.exportReportCSV)
}

type reportQuery struct {
	CorporationUUID string `validate:"required,uuid"`
	ProjectUUID     string `validate:"required,uuid"`
}

func (h *Handler) parseQuery(r *http.Request) (reportQuery, error) {
	q := reportQuery{
		CorporationUUID: r.URL.Query().Get("corporation_uuid"),
		ProjectUUID:     chi.URLParam(r, "projectUUID"),
	}
	if err := h.validate.Struct(q); err != nil {
		return reportQuery{}, err
	}
	return q, nil
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "corporation_uuid and project uuid are required")
		return
	}
	report, err := h.service.GetReport(r.Context(), q.CorporationUUID, q.ProjectUUID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) exportReportCSV(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "corporation_uuid and project uuid are required")
		return
	}
	report, err := h.service.GetReport(r.Context(), q.CorporationUUID, q.ProjectUUID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="budget-report.csv"`)
	if err := WriteReportCSV(w, report); err != nil {
		h.logger.Error("budget: stream csv", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("budget: build report",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
