package domain

// Canonical line items referenced by derived metrics. The mapping workbook
// lists the complete canonical schema; only the names the pipeline computes
// with are spelled out here.
const (
	// Income statement
	FieldTotalRevenue         = "营业总收入"
	FieldOperatingCost        = "营业成本"
	FieldTaxesAndSurcharges   = "营业税金及附加"
	FieldSellingExpense       = "销售费用"
	FieldAdminExpense         = "管理费用"
	FieldRDExpense            = "研发费用"
	FieldFinancialExpense     = "财务费用"
	FieldNetProfit            = "净利润"
	FieldParentNetProfit      = "归母净利润"
	FieldDeductedNetProfit    = "扣非净利润"
	FieldAssetImpairmentLoss  = "资产减值损失"
	FieldCreditImpairmentLoss = "信用减值损失"

	// Balance sheet
	FieldTotalAssets          = "资产总计"
	FieldTotalLiabilities     = "负债合计"
	FieldParentEquity         = "归属于母公司股东权益总计"
	FieldTotalEquity          = "股东权益合计"
	FieldNotesAccountsRecv    = "应收票据及应收账款"
	FieldReceivablesFinancing = "应收款项融资"
	FieldInventory            = "存货"
	FieldFixedAssets          = "固定资产合计"
	FieldGoodwill             = "商誉"
	FieldNotesAccountsPay     = "应付票据及应付账款"
	FieldAdvanceReceipts      = "预收款项"
	FieldContractLiabilities  = "合同负债"
	FieldShortTermBorrowing   = "短期借款"
	FieldLongTermBorrowing    = "长期借款"
	FieldBondsPayable         = "应付债券"

	// Cash flow statement
	FieldEndingCash       = "期末现金及现金等价物余额"
	FieldCashFromSales    = "销售商品、提供劳务收到的现金"
	FieldOperatingCashNet = "经营活动产生的现金流量净额"
	FieldInvestingCashNet = "投资活动产生的现金流量净额"
	FieldFinancingCashNet = "筹资活动产生的现金流量净额"
)

// Derived columns. Key figures carry a "*" prefix, ratios a "[%]" suffix.
const (
	KeyTotalRevenue      = "*营业总收入"
	KeyGrossProfit       = "*毛利润"
	KeyCoreProfit        = "*核心利润"
	KeyNetProfit         = "*净利润"
	KeyParentNetProfit   = "*归母净利润"
	KeyDeductedNetProfit = "*扣非净利润"

	RatioGrossMargin       = "毛利润率[%]"
	RatioCoreMargin        = "核心利润率[%]"
	RatioNetMargin         = "净利润[%]"
	RatioSellingExpense    = "销售费用率[%]"
	RatioAdminExpense      = "管理费用率[%]"
	RatioRDExpense         = "研发费用率[%]"
	RatioFinancialExpense  = "财务费用率[%]"
	RatioFourExpenses      = "四费费率[%]"
	RatioThreeExpenses     = "三费费率[%]"
	RatioReceivablePayable = "应收应付账款比[%]"
	InterestBearingDebt    = "有息负债"
	RatioInterestDebtCash  = "有息负债率[%]"
	RatioReceivableRevenue = "应收总额营收比[%]"
	RatioDebtToAsset       = "资产负债率[%]"
	RatioFixedAssetToAsset = "固定资产总资产比[%]"
)
