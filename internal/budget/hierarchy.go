package budget

import "sort"

// treeBuilder holds the adjacency index over the flat parent-pointer list so
// recursion works by map lookup instead of re-filtering the whole catalog at
// every level.
type treeBuilder struct {
	children map[string][]CostCodeNode
	roots    map[string][]CostCodeNode
	amounts  Accumulator
	rooms    float64
}

func newTreeBuilder(codes []CostCodeNode, amounts Accumulator, rooms float64) *treeBuilder {
	b := &treeBuilder{
		children: make(map[string][]CostCodeNode),
		roots:    make(map[string][]CostCodeNode),
		amounts:  amounts,
		rooms:    rooms,
	}
	for _, code := range codes {
		if code.ParentUUID == "" {
			b.roots[code.DivisionUUID] = append(b.roots[code.DivisionUUID], code)
			continue
		}
		b.children[code.ParentUUID] = append(b.children[code.ParentUUID], code)
	}
	for _, nodes := range b.roots {
		sortCodes(nodes)
	}
	for _, nodes := range b.children {
		sortCodes(nodes)
	}
	return b
}

func sortCodes(nodes []CostCodeNode) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
}

// subtree recursively builds report rows for the given sibling set. The
// recursion is depth-agnostic: tree depth is a business configuration choice,
// not a limit of the rollup.
func (b *treeBuilder) subtree(nodes []CostCodeNode) []ReportRow {
	rows := make([]ReportRow, 0, len(nodes))
	for _, node := range nodes {
		children := b.subtree(b.children[node.UUID])
		direct := b.amounts.Lookup(node.UUID)

		row := ReportRow{
			CostCodeUUID:        node.UUID,
			Number:              node.Number,
			Name:                node.Name,
			BudgetedAmount:      direct.Budgeted,
			PurchaseOrderAmount: direct.PurchaseOrder,
			ChangeOrderAmount:   direct.ChangeOrder,
			PaidAmount:          direct.Paid,
			Children:            children,
		}
		for _, child := range children {
			row.BudgetedAmount += child.BudgetedAmount
			row.PurchaseOrderAmount += child.PurchaseOrderAmount
			row.ChangeOrderAmount += child.ChangeOrderAmount
			row.PaidAmount += child.PaidAmount
		}
		// Budgeted is deliberately excluded from the commitment total.
		row.TotalAmount = row.PurchaseOrderAmount + row.ChangeOrderAmount
		row.BudgetRemaining = row.BudgetedAmount - row.TotalAmount
		row.CostPerRoom = perRoom(row.TotalAmount, b.rooms)

		if !keepRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// keepRow prunes rows with no financial activity anywhere beneath them.
func keepRow(row ReportRow) bool {
	if len(row.Children) > 0 {
		return true
	}
	return row.BudgetedAmount > 0 || row.PurchaseOrderAmount > 0 ||
		row.ChangeOrderAmount > 0 || row.PaidAmount > 0
}

func perRoom(total, rooms float64) float64 {
	if rooms <= 0 {
		return 0
	}
	return total / rooms
}

// BuildDivisions rolls the flat accumulator up into division-grouped report
// rows. Divisions flagged as excluded or left with no surviving rows are
// dropped entirely.
func BuildDivisions(divisions []Division, codes []CostCodeNode, amounts Accumulator, rooms float64) []DivisionRow {
	builder := newTreeBuilder(codes, amounts, rooms)

	ordered := append([]Division(nil), divisions...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	out := make([]DivisionRow, 0, len(ordered))
	for _, div := range ordered {
		if div.Excluded {
			continue
		}
		rows := builder.subtree(builder.roots[div.UUID])
		if len(rows) == 0 {
			continue
		}
		divRow := DivisionRow{
			DivisionUUID: div.UUID,
			Number:       div.Number,
			Name:         div.Name,
			CostCodes:    rows,
		}
		for _, row := range rows {
			divRow.BudgetedAmount += row.BudgetedAmount
			divRow.PurchaseOrderAmount += row.PurchaseOrderAmount
			divRow.ChangeOrderAmount += row.ChangeOrderAmount
			divRow.PaidAmount += row.PaidAmount
		}
		divRow.TotalAmount = divRow.PurchaseOrderAmount + divRow.ChangeOrderAmount
		divRow.BudgetRemaining = divRow.BudgetedAmount - divRow.TotalAmount
		divRow.CostPerRoom = perRoom(divRow.TotalAmount, rooms)
		out = append(out, divRow)
	}
	return out
}

// Summarize folds surviving division rows into the report summary.
func Summarize(divisions []DivisionRow, rooms float64) ReportSummary {
	var s ReportSummary
	for _, div := range divisions {
		s.BudgetedAmount += div.BudgetedAmount
		s.PurchaseOrderAmount += div.PurchaseOrderAmount
		s.ChangeOrderAmount += div.ChangeOrderAmount
		s.PaidAmount += div.PaidAmount
	}
	s.TotalAmount = s.PurchaseOrderAmount + s.ChangeOrderAmount
	s.BudgetRemaining = s.BudgetedAmount - s.TotalAmount
	s.CostPerRoom = perRoom(s.TotalAmount, rooms)
	return s
}
