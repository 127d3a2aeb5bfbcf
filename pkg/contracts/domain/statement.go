package domain

import (
	"fmt"
	"strings"
)

// Provider identifies an upstream financial statement data provider
type Provider string

const (
	// ProviderTHS reports magnitude-suffixed strings ("1.5亿") and false for missing data
	ProviderTHS Provider = "ths"
	// ProviderEastMoney reports numbers or strings and duplicates many items as *YOY columns
	ProviderEastMoney Provider = "em"
	// ProviderSina reports plain numbers
	ProviderSina Provider = "sina"
)

// Providers returns the supported providers in display order
func Providers() []Provider {
	return []Provider{ProviderTHS, ProviderEastMoney, ProviderSina}
}

// ParseProvider resolves a provider id or alias
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ths", "同花顺":
		return ProviderTHS, nil
	case "em", "east money", "eastmoney", "东方财富":
		return ProviderEastMoney, nil
	case "sina", "新浪":
		return ProviderSina, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// String returns the provider id
func (p Provider) String() string {
	return string(p)
}

// Label returns the provider's display name
func (p Provider) Label() string {
	switch p {
	case ProviderTHS:
		return "同花顺"
	case ProviderEastMoney:
		return "东方财富"
	case ProviderSina:
		return "新浪"
	default:
		return string(p)
	}
}

// Valid reports whether p is one of the supported providers
func (p Provider) Valid() bool {
	switch p {
	case ProviderTHS, ProviderEastMoney, ProviderSina:
		return true
	}
	return false
}

// StatementKind identifies one of the three canonical financial statements
type StatementKind string

const (
	StatementBalance  StatementKind = "balance"
	StatementIncome   StatementKind = "income"
	StatementCashFlow StatementKind = "cash"
)

// StatementKinds returns the statement kinds in fetch order
func StatementKinds() []StatementKind {
	return []StatementKind{StatementIncome, StatementCashFlow, StatementBalance}
}

// SheetName returns the mapping workbook sheet that describes this statement
func (k StatementKind) SheetName() string {
	switch k {
	case StatementIncome:
		return "profit"
	case StatementBalance:
		return "balance"
	case StatementCashFlow:
		return "cash"
	default:
		return string(k)
	}
}

// ParseStatementKind resolves a statement kind from its id or sheet name
func ParseStatementKind(s string) (StatementKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "balance":
		return StatementBalance, nil
	case "income", "profit":
		return StatementIncome, nil
	case "cash", "cashflow":
		return StatementCashFlow, nil
	default:
		return "", fmt.Errorf("unknown statement kind %q", s)
	}
}

// ReportName identifies one of the tables produced by a pipeline run
type ReportName string

const (
	ReportBalanceByReport    ReportName = "balance_by_report"
	ReportIncomeByReport     ReportName = "income_by_report"
	ReportIncomeByQuarter    ReportName = "income_by_quarter"
	ReportIncomeYoYByReport  ReportName = "income_yoy_by_report"
	ReportIncomeYoYByQuarter ReportName = "income_yoy_by_quarter"
	ReportCashFlowByReport   ReportName = "cash_by_report"
	ReportCashFlowByQuarter  ReportName = "cash_by_quarter"
	ReportCross              ReportName = "cross"
)

// ReportNames returns every report in display order
func ReportNames() []ReportName {
	return []ReportName{
		ReportCross,
		ReportIncomeByReport,
		ReportIncomeByQuarter,
		ReportIncomeYoYByReport,
		ReportIncomeYoYByQuarter,
		ReportCashFlowByReport,
		ReportCashFlowByQuarter,
		ReportBalanceByReport,
	}
}

// Title returns the report's display title
func (r ReportName) Title() string {
	switch r {
	case ReportBalanceByReport:
		return "资产负债表-报告期"
	case ReportIncomeByReport:
		return "利润表-报告期"
	case ReportIncomeByQuarter:
		return "利润表-单季度"
	case ReportIncomeYoYByReport:
		return "利润表-报告期同比"
	case ReportIncomeYoYByQuarter:
		return "利润表-单季度同比"
	case ReportCashFlowByReport:
		return "现金流量表-报告期"
	case ReportCashFlowByQuarter:
		return "现金流量表-单季度"
	case ReportCross:
		return "综合分析"
	default:
		return string(r)
	}
}

// Statement returns the statement whose column mapping governs this report.
// The cross report spans all statements and returns false.
func (r ReportName) Statement() (StatementKind, bool) {
	switch r {
	case ReportBalanceByReport:
		return StatementBalance, true
	case ReportIncomeByReport, ReportIncomeByQuarter, ReportIncomeYoYByReport, ReportIncomeYoYByQuarter:
		return StatementIncome, true
	case ReportCashFlowByReport, ReportCashFlowByQuarter:
		return StatementCashFlow, true
	default:
		return "", false
	}
}
