package budget

// Raw line-item shapes as produced upstream. Monetary fields stay `any`
// until they pass through normalize.go; which fields are read depends on the
// document variant.

// RawEstimateItem is one estimate line.
type RawEstimateItem struct {
	CostCodeUUID       string `json:"cost_code_uuid"`
	BaseAmount         any    `json:"base_amount"`
	ContingencyAmount  any    `json:"contingency_amount"`
	ContingencyEnabled any    `json:"contingency_enabled"`
	ContingencyPct     any    `json:"contingency_percentage"`
}

// RawPOItem is one purchase-order line. Material orders carry po_total or a
// po_unit_price/po_quantity pair; labor orders carry po_amount.
type RawPOItem struct {
	CostCodeUUID string `json:"cost_code_uuid"`
	Total        any    `json:"po_total"`
	UnitPrice    any    `json:"po_unit_price"`
	Quantity     any    `json:"po_quantity"`
	Amount       any    `json:"po_amount"`
}

// RawCOItem is one change-order line, with the analogous co_* fields.
type RawCOItem struct {
	CostCodeUUID string `json:"cost_code_uuid"`
	Total        any    `json:"co_total"`
	UnitPrice    any    `json:"co_unit_price"`
	Quantity     any    `json:"co_quantity"`
	Amount       any    `json:"co_amount"`
}

// Paid-invoice item shapes, one per invoice type.

// RawInvoicePOItem is a line of an AGAINST_PO invoice.
type RawInvoicePOItem struct {
	CostCodeUUID string `json:"cost_code_uuid"`
	Total        any    `json:"invoice_total"`
	UnitPrice    any    `json:"po_unit_price"`
	Quantity     any    `json:"invoice_quantity"`
}

// RawInvoiceCOItem is a line of an AGAINST_CO invoice.
type RawInvoiceCOItem struct {
	CostCodeUUID string `json:"cost_code_uuid"`
	Total        any    `json:"invoice_total"`
	UnitPrice    any    `json:"co_unit_price"`
	Quantity     any    `json:"invoice_quantity"`
}

// RawInvoiceAdvanceItem is a line of an AGAINST_ADVANCE_PAYMENT invoice.
type RawInvoiceAdvanceItem struct {
	CostCodeUUID string `json:"cost_code_uuid"`
	Amount       any    `json:"advance_amount"`
}

// RawInvoiceDirectItem is a line of an ENTER_DIRECT_INVOICE invoice.
type RawInvoiceDirectItem struct {
	CostCodeUUID string `json:"cost_code_uuid"`
	Total        any    `json:"amount"`
	UnitPrice    any    `json:"unit_price"`
	Quantity     any    `json:"quantity"`
}

// RawInvoiceDetail is the type-discriminated item collection returned by the
// per-invoice detail fetch. Only the slice matching Type is populated.
type RawInvoiceDetail struct {
	Type         InvoiceType
	POItems      []RawInvoicePOItem
	COItems      []RawInvoiceCOItem
	AdvanceItems []RawInvoiceAdvanceItem
	DirectItems  []RawInvoiceDirectItem
}

// LineAmount is the common shape every document variant maps into before
// allocation.
type LineAmount struct {
	CostCodeUUID string
	Amount       float64
}

// explicitOrComputed applies the explicit-total-first rule: a present total
// wins even when it is zero; otherwise unit price times quantity.
func explicitOrComputed(total, unitPrice, quantity any) float64 {
	if total != nil {
		return toAmount(total)
	}
	return toAmount(unitPrice) * toAmount(quantity)
}

// poLines maps purchase-order items into the common line shape according to
// the material/labor variant.
func poLines(t DocType, items []RawPOItem) []LineAmount {
	lines := make([]LineAmount, 0, len(items))
	for _, it := range items {
		var amount float64
		if t == DocTypeLabor {
			amount = toAmount(it.Amount)
		} else {
			amount = explicitOrComputed(it.Total, it.UnitPrice, it.Quantity)
		}
		lines = append(lines, LineAmount{CostCodeUUID: it.CostCodeUUID, Amount: amount})
	}
	return lines
}

// coLines maps change-order items into the common line shape.
func coLines(t DocType, items []RawCOItem) []LineAmount {
	lines := make([]LineAmount, 0, len(items))
	for _, it := range items {
		var amount float64
		if t == DocTypeLabor {
			amount = toAmount(it.Amount)
		} else {
			amount = explicitOrComputed(it.Total, it.UnitPrice, it.Quantity)
		}
		lines = append(lines, LineAmount{CostCodeUUID: it.CostCodeUUID, Amount: amount})
	}
	return lines
}

// invoiceVariants binds each invoice type to the sub-collection and field
// fallbacks it reads. Keeping the mapping here means the aggregation logic
// never compares discriminant strings.
var invoiceVariants = map[InvoiceType]func(RawInvoiceDetail) []LineAmount{
	InvoiceAgainstPO: func(d RawInvoiceDetail) []LineAmount {
		lines := make([]LineAmount, 0, len(d.POItems))
		for _, it := range d.POItems {
			lines = append(lines, LineAmount{
				CostCodeUUID: it.CostCodeUUID,
				Amount:       explicitOrComputed(it.Total, it.UnitPrice, it.Quantity),
			})
		}
		return lines
	},
	InvoiceAgainstCO: func(d RawInvoiceDetail) []LineAmount {
		lines := make([]LineAmount, 0, len(d.COItems))
		for _, it := range d.COItems {
			lines = append(lines, LineAmount{
				CostCodeUUID: it.CostCodeUUID,
				Amount:       explicitOrComputed(it.Total, it.UnitPrice, it.Quantity),
			})
		}
		return lines
	},
	InvoiceAgainstAdvance: func(d RawInvoiceDetail) []LineAmount {
		lines := make([]LineAmount, 0, len(d.AdvanceItems))
		for _, it := range d.AdvanceItems {
			lines = append(lines, LineAmount{CostCodeUUID: it.CostCodeUUID, Amount: toAmount(it.Amount)})
		}
		return lines
	},
	InvoiceDirect: func(d RawInvoiceDetail) []LineAmount {
		lines := make([]LineAmount, 0, len(d.DirectItems))
		for _, it := range d.DirectItems {
			lines = append(lines, LineAmount{
				CostCodeUUID: it.CostCodeUUID,
				Amount:       explicitOrComputed(it.Total, it.UnitPrice, it.Quantity),
			})
		}
		return lines
	},
}

// invoiceLines maps an invoice detail into the common line shape. Unknown
// invoice types yield no lines.
func invoiceLines(d RawInvoiceDetail) []LineAmount {
	mapper, ok := invoiceVariants[d.Type]
	if !ok {
		return nil
	}
	return mapper(d)
}
