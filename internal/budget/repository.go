package budget

import "context"

// RepositoryPort describes read access to the source collections consumed by
// the report engine. Implementations own caching of the collections
// themselves; the engine never mutates anything it reads.
type RepositoryPort interface {
	GetProject(ctx context.Context, projectUUID string) (Project, error)
	GetDivisions(ctx context.Context, corporationUUID string) ([]Division, error)
	GetCostCodes(ctx context.Context, corporationUUID string) ([]CostCodeNode, error)
	GetEstimates(ctx context.Context, projectUUID string) ([]Estimate, error)
	GetEstimateItems(ctx context.Context, estimateUUID string) ([]RawEstimateItem, error)
	GetPurchaseOrders(ctx context.Context, projectUUID string) ([]PurchaseOrder, error)
	GetPurchaseOrderItems(ctx context.Context, poUUID string, docType DocType) ([]RawPOItem, error)
	GetChangeOrders(ctx context.Context, projectUUID string) ([]ChangeOrder, error)
	GetChangeOrderItems(ctx context.Context, coUUID string, docType DocType) ([]RawCOItem, error)
	GetPaidInvoices(ctx context.Context, corporationUUID string) ([]Invoice, error)
	GetInvoiceDetail(ctx context.Context, invoiceUUID string) (RawInvoiceDetail, error)
}
