package derive

import (
	"time"

	"finreport/pkg/contracts/domain"
)

// Columns taken from each statement into the cross table
var (
	CrossIncomeColumns = []string{
		domain.KeyTotalRevenue,
		domain.KeyGrossProfit,
		domain.KeyCoreProfit,
		domain.KeyNetProfit,
	}
	CrossBalanceColumns = []string{
		domain.FieldTotalAssets,
		domain.FieldTotalLiabilities,
		domain.FieldParentEquity,
		domain.FieldTotalEquity,
		domain.FieldNotesAccountsRecv,
		domain.FieldReceivablesFinancing,
		domain.FieldInventory,
		domain.FieldFixedAssets,
		domain.FieldGoodwill,
		domain.FieldNotesAccountsPay,
		domain.FieldAdvanceReceipts,
		domain.FieldContractLiabilities,
		domain.FieldShortTermBorrowing,
		domain.FieldLongTermBorrowing,
		domain.FieldBondsPayable,
	}
	CrossCashFlowColumns = []string{
		domain.FieldEndingCash,
		domain.FieldCashFromSales,
		domain.FieldOperatingCashNet,
		domain.FieldInvestingCashNet,
		domain.FieldFinancingCashNet,
	}
)

// CrossRatioColumns are the ratios CrossRatios adds, in display order
var CrossRatioColumns = []string{
	domain.RatioReceivablePayable,
	domain.InterestBearingDebt,
	domain.RatioInterestDebtCash,
	domain.RatioReceivableRevenue,
	domain.RatioDebtToAsset,
	domain.RatioFixedAssetToAsset,
}

// Cross merges the whitelisted columns of the three statements on period,
// newest first, then adds the cross-statement ratios.
func Cross(income, balance, cash domain.Table) domain.Table {
	merged := OuterJoin(
		income.Select(CrossIncomeColumns...),
		balance.Select(CrossBalanceColumns...),
		cash.Select(CrossCashFlowColumns...),
	)
	return CrossRatios(merged.SortByPeriodDesc())
}

// OuterJoin joins tables on period. Every period of every input appears once,
// in order of first appearance; cells are missing where an input lacks the
// period. When an input repeats a period, its first row is used.
func OuterJoin(tables ...domain.Table) domain.Table {
	var periods []time.Time
	seen := make(map[int64]bool)
	for _, t := range tables {
		for _, p := range t.Periods {
			if !seen[p.Unix()] {
				seen[p.Unix()] = true
				periods = append(periods, p)
			}
		}
	}

	out := domain.Table{Periods: periods}
	for _, t := range tables {
		rowOf := make(map[int64]int, t.Len())
		for i := len(t.Periods) - 1; i >= 0; i-- {
			rowOf[t.Periods[i].Unix()] = i
		}
		for _, col := range t.Columns {
			if out.Has(col.Name) {
				continue
			}
			cells := make([]domain.Cell, len(periods))
			for r, p := range periods {
				if i, ok := rowOf[p.Unix()]; ok {
					cells[r] = col.Cells[i]
				} else {
					cells[r] = domain.Missing()
				}
			}
			out.Columns = append(out.Columns, domain.Column{Name: col.Name, Cells: cells})
		}
	}
	return out
}

// CrossRatios adds the cross-statement ratios and moves them right after the
// period column.
func CrossRatios(t domain.Table) domain.Table {
	switch {
	case t.Has(domain.FieldNotesAccountsRecv, domain.FieldReceivablesFinancing, domain.FieldNotesAccountsPay):
		t = t.WithColumn(domain.RatioReceivablePayable, rowwise(t, func(v []float64) (float64, bool) {
			recv := v[0] + v[1]
			if recv == 0 {
				return 0, false
			}
			return (recv - v[2]) / recv * 100, true
		}, domain.FieldNotesAccountsRecv, domain.FieldReceivablesFinancing, domain.FieldNotesAccountsPay))
	case t.Has(domain.FieldNotesAccountsRecv, domain.FieldNotesAccountsPay):
		t = t.WithColumn(domain.RatioReceivablePayable, rowwise(t, func(v []float64) (float64, bool) {
			if v[0] == 0 {
				return 0, false
			}
			return (v[0] - v[1]) / v[0] * 100, true
		}, domain.FieldNotesAccountsRecv, domain.FieldNotesAccountsPay))
	}

	t = t.WithColumn(domain.InterestBearingDebt, interestBearingDebt(t))

	if t.Has(domain.FieldEndingCash) {
		t = t.WithColumn(domain.RatioInterestDebtCash, percentOf(t, domain.InterestBearingDebt, domain.FieldEndingCash))
	}

	switch {
	case t.Has(domain.KeyTotalRevenue, domain.FieldNotesAccountsRecv, domain.FieldReceivablesFinancing):
		t = t.WithColumn(domain.RatioReceivableRevenue, sumPercentOf(t, domain.KeyTotalRevenue,
			domain.FieldNotesAccountsRecv, domain.FieldReceivablesFinancing))
	case t.Has(domain.KeyTotalRevenue, domain.FieldNotesAccountsRecv):
		t = t.WithColumn(domain.RatioReceivableRevenue, percentOf(t, domain.FieldNotesAccountsRecv, domain.KeyTotalRevenue))
	}

	if t.Has(domain.FieldTotalLiabilities, domain.FieldTotalAssets) {
		t = t.WithColumn(domain.RatioDebtToAsset, percentOf(t, domain.FieldTotalLiabilities, domain.FieldTotalAssets))
	}
	if t.Has(domain.FieldFixedAssets, domain.FieldTotalAssets) {
		t = t.WithColumn(domain.RatioFixedAssetToAsset, percentOf(t, domain.FieldFixedAssets, domain.FieldTotalAssets))
	}

	return t.MoveAfterPeriod(CrossRatioColumns...)
}

// interestBearingDebt sums short-term borrowing, long-term borrowing and bonds
// payable. Missing components count as zero; absent ones are skipped, so the
// column is all zeros when none is reported.
func interestBearingDebt(t domain.Table) []domain.Cell {
	total := make([]float64, t.Len())
	for _, name := range present(t, domain.FieldShortTermBorrowing, domain.FieldLongTermBorrowing, domain.FieldBondsPayable) {
		for i, c := range t.Cells(name) {
			if v, ok := c.Float(); ok {
				total[i] += v
			}
		}
	}
	out := make([]domain.Cell, len(total))
	for i, v := range total {
		out[i] = domain.Number(v)
	}
	return out
}
