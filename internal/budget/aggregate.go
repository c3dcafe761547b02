package budget

import "strings"

// Accumulator maps cost-code UUIDs to their accumulated buckets for a single
// report generation. Accumulation is purely additive, so documents may be
// folded in any order and per-task private accumulators can be merged.
type Accumulator map[string]*AllocationTarget

// NewAccumulator returns an empty accumulator.
func NewAccumulator() Accumulator {
	return make(Accumulator)
}

func (a Accumulator) target(costCodeUUID string) *AllocationTarget {
	t, ok := a[costCodeUUID]
	if !ok {
		t = &AllocationTarget{}
		a[costCodeUUID] = t
	}
	return t
}

// AddBudgeted folds estimate amounts into the budgeted bucket.
func (a Accumulator) AddBudgeted(amounts map[string]float64) {
	for code, amount := range amounts {
		a.target(code).Budgeted += amount
	}
}

// AddPurchaseOrder folds an allocated PO into the purchase-order bucket.
func (a Accumulator) AddPurchaseOrder(amounts map[string]float64) {
	for code, amount := range amounts {
		a.target(code).PurchaseOrder += amount
	}
}

// AddChangeOrder folds an allocated CO into the change-order bucket.
func (a Accumulator) AddChangeOrder(amounts map[string]float64) {
	for code, amount := range amounts {
		a.target(code).ChangeOrder += amount
	}
}

// AddPaid folds an allocated invoice into the paid bucket.
func (a Accumulator) AddPaid(amounts map[string]float64) {
	for code, amount := range amounts {
		a.target(code).Paid += amount
	}
}

// Merge folds another accumulator into this one.
func (a Accumulator) Merge(other Accumulator) {
	for code, t := range other {
		dst := a.target(code)
		dst.Budgeted += t.Budgeted
		dst.PurchaseOrder += t.PurchaseOrder
		dst.ChangeOrder += t.ChangeOrder
		dst.Paid += t.Paid
	}
}

// Lookup returns the accumulated target for a cost code, zeros when absent.
func (a Accumulator) Lookup(costCodeUUID string) AllocationTarget {
	if t, ok := a[costCodeUUID]; ok {
		return *t
	}
	return AllocationTarget{}
}

// Statuses under which a PO/CO counts toward committed amounts.
var commitmentStatuses = map[string]struct{}{
	"approved":           {},
	"partially_received": {},
	"completed":          {},
}

// estimateQualifies requires an Approved status, a strictly truthy active
// flag and a project match.
func estimateQualifies(e Estimate, projectUUID string) bool {
	return e.Status == "Approved" && isTruthy(e.IsActive) && e.ProjectUUID == projectUUID
}

// commitmentQualifies requires one of the commitment statuses
// (case-insensitive), an active flag that is not explicitly false, and a
// project match.
func commitmentQualifies(status string, isActive any, docProject, projectUUID string) bool {
	if _, ok := commitmentStatuses[strings.ToLower(status)]; !ok {
		return false
	}
	return isActiveUnlessFalse(isActive) && docProject == projectUUID
}

// invoiceQualifies filters corporation-wide invoices client-side; there is no
// direct project relation on the invoice header.
func invoiceQualifies(inv Invoice, projectUUID string) bool {
	return inv.Status == "Paid" && isActiveUnlessFalse(inv.IsActive) && inv.ProjectUUID == projectUUID
}
