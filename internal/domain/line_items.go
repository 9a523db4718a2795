package domain

import "sort"

// LineItem names a statement line item.
type LineItem string

// Income statement
const (
	Revenue                  LineItem = "revenue"
	COGS                     LineItem = "cogs"
	RnDExpense               LineItem = "rnd_expense"
	SGAExpense               LineItem = "sga_expense"
	OperatingIncome          LineItem = "operating_income"
	NetIncome                LineItem = "net_income"
	InterestExpense          LineItem = "interest_expense"
	InterestIncome           LineItem = "interest_income"
	PretaxIncome             LineItem = "pretax_income"
	IncomeTaxExpense         LineItem = "income_tax_expense"
	DepreciationAmortization LineItem = "depreciation_amortization"
	RealEstateDepreciation   LineItem = "real_estate_depreciation"
	GainsOnPropertySales     LineItem = "gains_on_property_sales"
	NetOperatingIncome       LineItem = "net_operating_income"
)

// Balance sheet
const (
	Inventory             LineItem = "inventory"
	InventoryPrior        LineItem = "inventory_prior"
	AccountsReceivable    LineItem = "accounts_receivable"
	AccountsPayable       LineItem = "accounts_payable"
	Cash                  LineItem = "cash"
	CurrentAssets         LineItem = "current_assets"
	CurrentLiabilities    LineItem = "current_liabilities"
	TotalAssets           LineItem = "total_assets"
	TotalDebt             LineItem = "total_debt"
	TotalEquity           LineItem = "total_equity"
	InterestEarningAssets LineItem = "interest_earning_assets"
	SharesOutstanding     LineItem = "shares_outstanding"
)

// Cash flow and operating data
const (
	OperatingCashFlow LineItem = "operating_cash_flow"
	Capex             LineItem = "capex"
	DividendsPaid     LineItem = "dividends_paid"
	OccupiedArea      LineItem = "occupied_area"
	LeasableArea      LineItem = "leasable_area"
)

var knownLineItems = map[LineItem]struct{}{
	Revenue: {}, COGS: {}, RnDExpense: {}, SGAExpense: {}, OperatingIncome: {},
	NetIncome: {}, InterestExpense: {}, InterestIncome: {}, PretaxIncome: {},
	IncomeTaxExpense: {}, DepreciationAmortization: {}, RealEstateDepreciation: {},
	GainsOnPropertySales: {}, NetOperatingIncome: {},
	Inventory: {}, InventoryPrior: {}, AccountsReceivable: {}, AccountsPayable: {},
	Cash: {}, CurrentAssets: {}, CurrentLiabilities: {}, TotalAssets: {},
	TotalDebt: {}, TotalEquity: {}, InterestEarningAssets: {}, SharesOutstanding: {},
	OperatingCashFlow: {}, Capex: {}, DividendsPaid: {}, OccupiedArea: {}, LeasableArea: {},
}

// IsKnown reports whether the item belongs to the closed set of line items.
func (l LineItem) IsKnown() bool {
	_, ok := knownLineItems[l]
	return ok
}

// LineItems returns every known line item, sorted by name.
func LineItems() []LineItem {
	items := make([]LineItem, 0, len(knownLineItems))
	for item := range knownLineItems {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}
