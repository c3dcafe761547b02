package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed access to the source collections.
// The record sets were migrated from a document store, so document-level
// monetary fields and line items live in jsonb columns and keep their loose
// upstream typing until they cross the normalization boundary.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProject returns report header metadata for a project.
func (r *Repository) GetProject(ctx context.Context, projectUUID string) (Project, error) {
	const query = `
		SELECT uuid, COALESCE(name, ''), COALESCE(external_id, ''),
		       COALESCE(number_of_rooms, 0), COALESCE(contingency_percent, 0)
		FROM projects WHERE uuid = $1`
	var p Project
	err := r.pool.QueryRow(ctx, query, projectUUID).Scan(&p.UUID, &p.Name, &p.ExternalID, &p.NumberOfRooms, &p.ContingencyPct)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("budget: get project: %w", err)
	}
	return p, nil
}

// GetDivisions lists a corporation's divisions.
func (r *Repository) GetDivisions(ctx context.Context, corporationUUID string) ([]Division, error) {
	const query = `
		SELECT uuid, COALESCE(number, ''), COALESCE(name, ''),
		       COALESCE(sort_order, 0), COALESCE(exclude_from_reports, FALSE)
		FROM divisions WHERE corporation_uuid = $1`
	rows, err := r.pool.Query(ctx, query, corporationUUID)
	if err != nil {
		return nil, fmt.Errorf("budget: list divisions: %w", err)
	}
	defer rows.Close()

	divisions := make([]Division, 0)
	for rows.Next() {
		var d Division
		if err := rows.Scan(&d.UUID, &d.Number, &d.Name, &d.Order, &d.Excluded); err != nil {
			return nil, err
		}
		divisions = append(divisions, d)
	}
	return divisions, rows.Err()
}

// GetCostCodes lists a corporation's cost-code configuration tree as a flat
// parent-pointer list.
func (r *Repository) GetCostCodes(ctx context.Context, corporationUUID string) ([]CostCodeNode, error) {
	const query = `
		SELECT uuid, COALESCE(number, ''), COALESCE(name, ''), COALESCE(sort_order, 0),
		       COALESCE(parent_uuid::text, ''), COALESCE(division_uuid::text, ''), COALESCE(is_active, TRUE)
		FROM cost_code_configurations WHERE corporation_uuid = $1`
	rows, err := r.pool.Query(ctx, query, corporationUUID)
	if err != nil {
		return nil, fmt.Errorf("budget: list cost codes: %w", err)
	}
	defer rows.Close()

	codes := make([]CostCodeNode, 0)
	for rows.Next() {
		var c CostCodeNode
		if err := rows.Scan(&c.UUID, &c.Number, &c.Name, &c.Order, &c.ParentUUID, &c.DivisionUUID, &c.Active); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// GetEstimates lists estimate headers with any inlined line items.
func (r *Repository) GetEstimates(ctx context.Context, projectUUID string) ([]Estimate, error) {
	const query = `
		SELECT uuid, project_uuid, COALESCE(status, ''), to_jsonb(is_active), COALESCE(line_items, '[]'::jsonb)
		FROM estimates WHERE project_uuid = $1`
	rows, err := r.pool.Query(ctx, query, projectUUID)
	if err != nil {
		return nil, fmt.Errorf("budget: list estimates: %w", err)
	}
	defer rows.Close()

	estimates := make([]Estimate, 0)
	for rows.Next() {
		var (
			e        Estimate
			activeJS []byte
			itemsJS  []byte
		)
		if err := rows.Scan(&e.UUID, &e.ProjectUUID, &e.Status, &activeJS, &itemsJS); err != nil {
			return nil, err
		}
		e.IsActive = decodeLoose(activeJS)
		if err := json.Unmarshal(itemsJS, &e.LineItems); err != nil {
			return nil, fmt.Errorf("budget: decode estimate items: %w", err)
		}
		estimates = append(estimates, e)
	}
	return estimates, rows.Err()
}

// GetEstimateItems is the secondary fetch for estimates stored without
// inlined line items.
func (r *Repository) GetEstimateItems(ctx context.Context, estimateUUID string) ([]RawEstimateItem, error) {
	const query = `SELECT payload FROM estimate_line_items WHERE estimate_uuid = $1`
	return queryPayloads[RawEstimateItem](ctx, r.pool, query, estimateUUID, "estimate items")
}

// GetPurchaseOrders lists purchase-order headers for a project.
func (r *Repository) GetPurchaseOrders(ctx context.Context, projectUUID string) ([]PurchaseOrder, error) {
	const query = `
		SELECT uuid, project_uuid, COALESCE(status, ''), to_jsonb(is_active),
		       COALESCE(po_type, 'MATERIAL'), to_jsonb(charges_total), to_jsonb(tax_total)
		FROM purchase_orders WHERE project_uuid = $1`
	rows, err := r.pool.Query(ctx, query, projectUUID)
	if err != nil {
		return nil, fmt.Errorf("budget: list purchase orders: %w", err)
	}
	defer rows.Close()

	orders := make([]PurchaseOrder, 0)
	for rows.Next() {
		var po PurchaseOrder
		var activeJS, chargesJS, taxJS []byte
		if err := rows.Scan(&po.UUID, &po.ProjectUUID, &po.Status, &activeJS, &po.Type, &chargesJS, &taxJS); err != nil {
			return nil, err
		}
		po.IsActive = decodeLoose(activeJS)
		po.ChargesTotal = decodeLoose(chargesJS)
		po.TaxTotal = decodeLoose(taxJS)
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// GetPurchaseOrderItems fetches the material or labor item collection of one
// purchase order, per the document type.
func (r *Repository) GetPurchaseOrderItems(ctx context.Context, poUUID string, docType DocType) ([]RawPOItem, error) {
	table := "purchase_order_material_items"
	if docType == DocTypeLabor {
		table = "purchase_order_labor_items"
	}
	query := `SELECT payload FROM ` + table + ` WHERE po_uuid = $1`
	return queryPayloads[RawPOItem](ctx, r.pool, query, poUUID, "purchase order items")
}

// GetChangeOrders lists change-order headers for a project.
func (r *Repository) GetChangeOrders(ctx context.Context, projectUUID string) ([]ChangeOrder, error) {
	const query = `
		SELECT uuid, project_uuid, COALESCE(status, ''), to_jsonb(is_active),
		       COALESCE(co_type, 'MATERIAL'), to_jsonb(charges_total), to_jsonb(tax_total)
		FROM change_orders WHERE project_uuid = $1`
	rows, err := r.pool.Query(ctx, query, projectUUID)
	if err != nil {
		return nil, fmt.Errorf("budget: list change orders: %w", err)
	}
	defer rows.Close()

	orders := make([]ChangeOrder, 0)
	for rows.Next() {
		var co ChangeOrder
		var activeJS, chargesJS, taxJS []byte
		if err := rows.Scan(&co.UUID, &co.ProjectUUID, &co.Status, &activeJS, &co.Type, &chargesJS, &taxJS); err != nil {
			return nil, err
		}
		co.IsActive = decodeLoose(activeJS)
		co.ChargesTotal = decodeLoose(chargesJS)
		co.TaxTotal = decodeLoose(taxJS)
		orders = append(orders, co)
	}
	return orders, rows.Err()
}

// GetChangeOrderItems fetches the material or labor item collection of one
// change order.
func (r *Repository) GetChangeOrderItems(ctx context.Context, coUUID string, docType DocType) ([]RawCOItem, error) {
	table := "change_order_material_items"
	if docType == DocTypeLabor {
		table = "change_order_labor_items"
	}
	query := `SELECT payload FROM ` + table + ` WHERE co_uuid = $1`
	return queryPayloads[RawCOItem](ctx, r.pool, query, coUUID, "change order items")
}

// GetPaidInvoices lists invoice headers corporation-wide. Invoices carry no
// direct project relation, so project filtering happens client-side.
func (r *Repository) GetPaidInvoices(ctx context.Context, corporationUUID string) ([]Invoice, error) {
	const query = `
		SELECT uuid, COALESCE(project_uuid::text, ''), COALESCE(status, ''), to_jsonb(is_active),
		       COALESCE(invoice_type, ''), to_jsonb(amount)
		FROM invoices WHERE corporation_uuid = $1`
	rows, err := r.pool.Query(ctx, query, corporationUUID)
	if err != nil {
		return nil, fmt.Errorf("budget: list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]Invoice, 0)
	for rows.Next() {
		var (
			inv                Invoice
			activeJS, amountJS []byte
		)
		if err := rows.Scan(&inv.UUID, &inv.ProjectUUID, &inv.Status, &activeJS, &inv.Type, &amountJS); err != nil {
			return nil, err
		}
		inv.IsActive = decodeLoose(activeJS)
		inv.Amount = decodeLoose(amountJS)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// GetInvoiceDetail fetches the type-discriminated item collection of one
// invoice.
func (r *Repository) GetInvoiceDetail(ctx context.Context, invoiceUUID string) (RawInvoiceDetail, error) {
	const query = `SELECT COALESCE(invoice_type, ''), COALESCE(detail, '{}'::jsonb) FROM invoice_details WHERE invoice_uuid = $1`
	var (
		invType  InvoiceType
		detailJS []byte
	)
	err := r.pool.QueryRow(ctx, query, invoiceUUID).Scan(&invType, &detailJS)
	if errors.Is(err, pgx.ErrNoRows) {
		return RawInvoiceDetail{}, ErrNotFound
	}
	if err != nil {
		return RawInvoiceDetail{}, fmt.Errorf("budget: get invoice detail: %w", err)
	}

	var payload struct {
		POItems      []RawInvoicePOItem      `json:"po_items"`
		COItems      []RawInvoiceCOItem      `json:"co_items"`
		AdvanceItems []RawInvoiceAdvanceItem `json:"advance_items"`
		DirectItems  []RawInvoiceDirectItem  `json:"direct_items"`
	}
	if err := json.Unmarshal(detailJS, &payload); err != nil {
		return RawInvoiceDetail{}, fmt.Errorf("budget: decode invoice detail: %w", err)
	}
	return RawInvoiceDetail{
		Type:         invType,
		POItems:      payload.POItems,
		COItems:      payload.COItems,
		AdvanceItems: payload.AdvanceItems,
		DirectItems:  payload.DirectItems,
	}, nil
}

// queryPayloads scans jsonb payload rows into raw item structs.
func queryPayloads[T any](ctx context.Context, pool *pgxpool.Pool, query, key, what string) ([]T, error) {
	rows, err := pool.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("budget: list %s: %w", what, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var item T
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, fmt.Errorf("budget: decode %s: %w", what, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// decodeLoose decodes a jsonb scalar into its dynamic Go value, keeping the
// upstream looseness (number, string, bool or null) for normalize.go.
func decodeLoose(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
