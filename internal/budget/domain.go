// Package budget consolidates estimates, purchase orders, change orders and
// paid vendor invoices into a hierarchical budget-vs-actual report per project.
package budget

import (
	"errors"
	"time"
)

// Commitment document type, selecting which line-item collection and
// unit-price fields are read.
type DocType string

const (
	DocTypeMaterial DocType = "MATERIAL"
	DocTypeLabor    DocType = "LABOR"
)

// InvoiceType discriminates the heterogeneous paid-invoice item shapes.
type InvoiceType string

const (
	InvoiceAgainstPO      InvoiceType = "AGAINST_PO"
	InvoiceAgainstCO      InvoiceType = "AGAINST_CO"
	InvoiceAgainstAdvance InvoiceType = "AGAINST_ADVANCE_PAYMENT"
	InvoiceDirect         InvoiceType = "ENTER_DIRECT_INVOICE"
)

// Division is the top-level grouping of cost codes within a corporation.
type Division struct {
	UUID     string `json:"uuid"`
	Number   string `json:"number"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	Excluded bool   `json:"excluded"`
}

// CostCodeNode is one node in the cost-code tree. ParentUUID is empty for
// codes sitting directly under their division.
type CostCodeNode struct {
	UUID         string `json:"uuid"`
	Number       string `json:"number"`
	Name         string `json:"name"`
	Order        int    `json:"order"`
	ParentUUID   string `json:"parent_uuid"`
	DivisionUUID string `json:"division_uuid"`
	Active       bool   `json:"active"`
}

// Project carries the metadata attached to the report header.
type Project struct {
	UUID           string  `json:"uuid"`
	Name           string  `json:"name"`
	ExternalID     string  `json:"external_id"`
	NumberOfRooms  float64 `json:"number_of_rooms"`
	ContingencyPct float64 `json:"contingency_percent"`
}

// Estimate header. Status and IsActive arrive loosely typed from upstream and
// are interpreted by the qualification predicates. LineItems may be empty, in
// which case a secondary fetch by estimate UUID is required.
type Estimate struct {
	UUID        string
	ProjectUUID string
	Status      string
	IsActive    any
	LineItems   []RawEstimateItem
}

// PurchaseOrder header for a commitment document.
type PurchaseOrder struct {
	UUID         string
	ProjectUUID  string
	Status       string
	IsActive     any
	Type         DocType
	ChargesTotal any
	TaxTotal     any
}

// ChangeOrder header for a commitment document.
type ChangeOrder struct {
	UUID         string
	ProjectUUID  string
	Status       string
	IsActive     any
	Type         DocType
	ChargesTotal any
	TaxTotal     any
}

// Invoice header. Amount is the full invoice total including its own charges
// and taxes; it is the figure distributed across cost codes for paid invoices.
type Invoice struct {
	UUID        string
	ProjectUUID string
	Status      string
	IsActive    any
	Type        InvoiceType
	Amount      any
}

// AllocationTarget accumulates the four monetary buckets for one cost code.
// Fields are never netted against each other during accumulation.
type AllocationTarget struct {
	Budgeted      float64 `json:"budgeted"`
	PurchaseOrder float64 `json:"purchase_order"`
	ChangeOrder   float64 `json:"change_order"`
	Paid          float64 `json:"paid"`
}

// ReportRow is one cost-code row in the report tree, with rollups that
// include all descendant amounts plus any amount allocated directly to it.
type ReportRow struct {
	CostCodeUUID        string      `json:"cost_code_uuid"`
	Number              string      `json:"number"`
	Name                string      `json:"name"`
	BudgetedAmount      float64     `json:"budgeted_amount"`
	PurchaseOrderAmount float64     `json:"purchase_order_amount"`
	ChangeOrderAmount   float64     `json:"change_order_amount"`
	PaidAmount          float64     `json:"paid_amount"`
	TotalAmount         float64     `json:"total_amount"`
	BudgetRemaining     float64     `json:"budget_remaining"`
	CostPerRoom         float64     `json:"cost_per_room"`
	Children            []ReportRow `json:"children,omitempty"`
}

// DivisionRow groups the surviving cost-code rows of one division together
// with the division-level rollups.
type DivisionRow struct {
	DivisionUUID        string      `json:"division_uuid"`
	Number              string      `json:"number"`
	Name                string      `json:"name"`
	BudgetedAmount      float64     `json:"budgeted_amount"`
	PurchaseOrderAmount float64     `json:"purchase_order_amount"`
	ChangeOrderAmount   float64     `json:"change_order_amount"`
	PaidAmount          float64     `json:"paid_amount"`
	TotalAmount         float64     `json:"total_amount"`
	BudgetRemaining     float64     `json:"budget_remaining"`
	CostPerRoom         float64     `json:"cost_per_room"`
	CostCodes           []ReportRow `json:"cost_codes"`
}

// ReportSummary sums all surviving divisions.
type ReportSummary struct {
	BudgetedAmount      float64 `json:"budgeted_amount"`
	PurchaseOrderAmount float64 `json:"purchase_order_amount"`
	ChangeOrderAmount   float64 `json:"change_order_amount"`
	PaidAmount          float64 `json:"paid_amount"`
	TotalAmount         float64 `json:"total_amount"`
	BudgetRemaining     float64 `json:"budget_remaining"`
	CostPerRoom         float64 `json:"cost_per_room"`
}

// SkippedDocument records a source document that contributed zero because a
// sub-fetch failed. The report still generates; this is the manifest of what
// it under-counts.
type SkippedDocument struct {
	Kind   string `json:"kind"`
	UUID   string `json:"uuid"`
	Reason string `json:"reason"`
}

// Report is the assembled budget-vs-actual report for one project.
type Report struct {
	ReportUUID    string            `json:"report_uuid"`
	ProjectUUID   string            `json:"project_uuid"`
	ProjectName   string            `json:"project_name"`
	ExternalID    string            `json:"external_id"`
	NumberOfRooms float64           `json:"number_of_rooms"`
	Divisions     []DivisionRow     `json:"divisions"`
	Summary       ReportSummary     `json:"summary"`
	Skipped       []SkippedDocument `json:"skipped,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

var (
	// ErrMissingInput aborts report generation when corporation or project
	// identifiers are absent. This is the only aborting failure mode.
	ErrMissingInput = errors.New("budget: corporation and project identifiers are required")
	// ErrNotFound indicates a missing source record.
	ErrNotFound = errors.New("budget: not found")
)
