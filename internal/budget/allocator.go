package budget

// sumByCostCode accumulates line amounts per cost code and the qualifying
// subtotal. Lines without a cost-code reference participate in neither the
// per-code map nor the subtotal, so their share of document-level charges is
// dropped from the breakdown.
func sumByCostCode(lines []LineAmount) (map[string]float64, float64) {
	perCode := make(map[string]float64, len(lines))
	var total float64
	for _, line := range lines {
		if line.CostCodeUUID == "" {
			continue
		}
		perCode[line.CostCodeUUID] += line.Amount
		total += line.Amount
	}
	return perCode, total
}

// AllocateCommitment distributes a PO/CO document across its cost codes:
// each code receives its item subtotal plus a proportional share of the
// document-level charges and taxes. A zero item subtotal distributes nothing.
func AllocateCommitment(lines []LineAmount, chargesTotal, taxTotal float64) map[string]float64 {
	perCode, total := sumByCostCode(lines)
	extra := chargesTotal + taxTotal
	out := make(map[string]float64, len(perCode))
	for code, amount := range perCode {
		share := 0.0
		if total > 0 {
			share = amount / total * extra
		}
		out[code] = amount + share
	}
	return out
}

// AllocateInvoice distributes the ENTIRE invoice amount proportionally to
// each cost code's share of the item subtotal. The invoice amount already
// includes its charges and taxes, which is why this formula differs from
// AllocateCommitment and must stay separate.
func AllocateInvoice(lines []LineAmount, invoiceAmount float64) map[string]float64 {
	perCode, total := sumByCostCode(lines)
	out := make(map[string]float64, len(perCode))
	if total <= 0 {
		return out
	}
	for code, amount := range perCode {
		out[code] = amount / total * invoiceAmount
	}
	return out
}

// EstimateBudget computes the budgeted amount per cost code. Estimates never
// use proportional allocation: each line contributes base plus contingency,
// where contingency is the stored value when positive, otherwise base times
// the item percentage (falling back to the project percentage) over 100.
func EstimateBudget(items []RawEstimateItem, projectContingencyPct float64) map[string]float64 {
	out := make(map[string]float64, len(items))
	for _, it := range items {
		if it.CostCodeUUID == "" {
			continue
		}
		base := toAmount(it.BaseAmount)
		contingency := toAmount(it.ContingencyAmount)
		if contingency <= 0 {
			contingency = 0
			if isTruthy(it.ContingencyEnabled) {
				pct := projectContingencyPct
				if it.ContingencyPct != nil {
					pct = toAmount(it.ContingencyPct)
				}
				contingency = base * pct / 100
			}
		}
		out[it.CostCodeUUID] += base + contingency
	}
	return out
}
