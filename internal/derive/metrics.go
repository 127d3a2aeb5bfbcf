package derive

import (
	"finreport/pkg/contracts/domain"
)

// KeyColumns are the promoted income figures, in display order
var KeyColumns = []string{
	domain.KeyTotalRevenue,
	domain.KeyGrossProfit,
	domain.KeyCoreProfit,
	domain.KeyNetProfit,
	domain.KeyParentNetProfit,
	domain.KeyDeductedNetProfit,
}

// IncomeKeyMetrics adds the key income figures and moves them right after the
// period column. Each figure is only added when its inputs are present.
//
// R&D expense was not reported separately before 2018, so missing R&D values
// are filled with zero before any figure uses them.
func IncomeKeyMetrics(t domain.Table) domain.Table {
	if t.Has(domain.FieldTotalRevenue) {
		t = t.WithColumn(domain.KeyTotalRevenue, t.Cells(domain.FieldTotalRevenue))
	}
	if t.Has(domain.FieldRDExpense) {
		t = t.WithColumn(domain.FieldRDExpense, zeroFill(t.Cells(domain.FieldRDExpense)))
	}

	if t.Has(domain.FieldTotalRevenue, domain.FieldOperatingCost) {
		t = t.WithColumn(domain.KeyGrossProfit, difference(t, domain.FieldTotalRevenue, domain.FieldOperatingCost))
	}

	// Core profit needs the tax and period expense lines. Operating cost and
	// R&D are subtracted when the statement reports them.
	if t.Has(domain.FieldTotalRevenue, domain.FieldTaxesAndSurcharges, domain.FieldSellingExpense,
		domain.FieldAdminExpense, domain.FieldFinancialExpense) {
		terms := []string{domain.FieldTotalRevenue, domain.FieldTaxesAndSurcharges}
		terms = append(terms, present(t, domain.FieldOperatingCost)...)
		terms = append(terms, domain.FieldSellingExpense, domain.FieldAdminExpense)
		terms = append(terms, present(t, domain.FieldRDExpense)...)
		terms = append(terms, domain.FieldFinancialExpense)
		t = t.WithColumn(domain.KeyCoreProfit, difference(t, terms...))
	}

	for _, copyCol := range [][2]string{
		{domain.FieldNetProfit, domain.KeyNetProfit},
		{domain.FieldParentNetProfit, domain.KeyParentNetProfit},
		{domain.FieldDeductedNetProfit, domain.KeyDeductedNetProfit},
	} {
		if t.Has(copyCol[0]) {
			t = t.WithColumn(copyCol[1], t.Cells(copyCol[0]))
		}
	}

	return t.MoveAfterPeriod(KeyColumns...)
}

// IncomeRatios adds margin and expense ratios against total revenue. Ratios do
// not feed the YoY tables, so call this after YoYTable.
func IncomeRatios(t domain.Table) domain.Table {
	if !t.Has(domain.FieldTotalRevenue) {
		return t
	}

	ratios := []struct{ name, numerator string }{
		{domain.RatioGrossMargin, domain.KeyGrossProfit},
		{domain.RatioCoreMargin, domain.KeyCoreProfit},
		{domain.RatioNetMargin, domain.KeyNetProfit},
		{domain.RatioSellingExpense, domain.FieldSellingExpense},
		{domain.RatioAdminExpense, domain.FieldAdminExpense},
		{domain.RatioRDExpense, domain.FieldRDExpense},
		{domain.RatioFinancialExpense, domain.FieldFinancialExpense},
	}
	for _, r := range ratios {
		if t.Has(r.numerator) {
			t = t.WithColumn(r.name, percentOf(t, r.numerator, domain.FieldTotalRevenue))
		}
	}

	switch {
	case t.Has(domain.FieldSellingExpense, domain.FieldAdminExpense, domain.FieldRDExpense, domain.FieldFinancialExpense):
		t = t.WithColumn(domain.RatioFourExpenses, sumPercentOf(t, domain.FieldTotalRevenue,
			domain.FieldSellingExpense, domain.FieldAdminExpense, domain.FieldRDExpense, domain.FieldFinancialExpense))
	case t.Has(domain.FieldSellingExpense, domain.FieldAdminExpense, domain.FieldFinancialExpense):
		t = t.WithColumn(domain.RatioThreeExpenses, sumPercentOf(t, domain.FieldTotalRevenue,
			domain.FieldSellingExpense, domain.FieldAdminExpense, domain.FieldFinancialExpense))
	}
	return t
}
