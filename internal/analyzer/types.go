package analyzer

import (
	"time"
)

// EmailType classifies a single email for routing to an extractor.
type EmailType string

const (
	EmailTypePromotional       EmailType = "promotional"
	EmailTypeCreditCard        EmailType = "credit_cards"
	EmailTypeCreditCardTxn     EmailType = "credit_card_transaction"
	EmailTypeCreditCardPayment EmailType = "credit_card_payment"
	EmailTypeFoodDining        EmailType = "food_dining"
	EmailTypeTravelTransport   EmailType = "travel_transport"
	EmailTypeShoppingRetail    EmailType = "shopping_retail"
	EmailTypeFinancial         EmailType = "financial"
	EmailTypeUnknown           EmailType = "unknown"
)

// PaymentMode is how a payment was made.
type PaymentMode string

const (
	PaymentModeUPI        PaymentMode = "upi"
	PaymentModeNetBanking PaymentMode = "netbanking"
	PaymentModeCard       PaymentMode = "card"
	PaymentModeWallet     PaymentMode = "wallet"
	PaymentModeCash       PaymentMode = "cash"
	PaymentModeUnknown    PaymentMode = "unknown"
)

// TransactionType distinguishes spends from credits.
type TransactionType string

const (
	TransactionDebit  TransactionType = "debit"
	TransactionCredit TransactionType = "credit"
)

// MerchantUnknown is the sentinel used when no merchant pattern matched.
const MerchantUnknown = "unknown"

// RawEmail is the input unit of the analysis pipeline.
type RawEmail struct {
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// ClassificationResult is the per-email routing decision. It is computed
// fresh for every email and never persisted.
type ClassificationResult struct {
	EmailType       EmailType
	MatchedCategory string
}

// ExtractedTransaction is a single transaction pulled out of one email.
type ExtractedTransaction struct {
	Date        time.Time       `json:"date"`
	Amount      float64         `json:"amount"`
	Merchant    string          `json:"merchant"`
	Category    string          `json:"category"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	Reference   string          `json:"reference,omitempty"`
	Type        TransactionType `json:"type"`

	// Credit-card fields, populated only on the credit-card path.
	CardLast4      string     `json:"card_last4,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	AvailableLimit float64    `json:"available_limit,omitempty"`
	TotalLimit     float64    `json:"total_limit,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	RewardPoints   int        `json:"reward_points,omitempty"`
}

// PaymentRecord is a credit-card payment confirmation.
type PaymentRecord struct {
	Date        time.Time   `json:"date"`
	Amount      float64     `json:"amount"`
	Mode        PaymentMode `json:"mode"`
	Reference   string      `json:"reference,omitempty"`
	CardLast4   string      `json:"card_last4,omitempty"`
	Issuer      string      `json:"issuer,omitempty"`
}

// CardMetrics are derived per-card figures computed during finalization.
type CardMetrics struct {
	PaymentRatio        float64  `json:"payment_ratio"`
	AverageMonthlySpend float64  `json:"average_monthly_spend"`
	// CreditUtilization is nil when no credit limit was ever observed.
	CreditUtilization *float64 `json:"credit_utilization"`
}

// CardAccount aggregates activity for one physical card, keyed
// issuer_last4.
type CardAccount struct {
	Issuer         string                 `json:"issuer"`
	Last4          string                 `json:"last4"`
	TotalSpend     float64                `json:"total_spend"`
	Transactions   []ExtractedTransaction `json:"transactions"`
	PaymentHistory []PaymentRecord        `json:"payment_history"`
	RewardPoints   int                    `json:"reward_points"`
	CreditLimit    float64                `json:"credit_limit,omitempty"`
	DueDates       []time.Time            `json:"-"`
	Metrics        CardMetrics            `json:"metrics"`
}

// Key returns the composite card identifier.
func (a *CardAccount) Key() string {
	return a.Issuer + "_" + a.Last4
}

// MerchantShare is one entry of a category's top-merchant list.
type MerchantShare struct {
	Merchant string  `json:"merchant"`
	Count    int     `json:"count"`
	Share    float64 `json:"share"`
}

// CategoryBucket aggregates all transactions of one category.
type CategoryBucket struct {
	Category           string                 `json:"category"`
	TotalSpend         float64                `json:"total_spend"`
	TransactionCount   int                    `json:"transaction_count"`
	MerchantFrequency  map[string]int         `json:"merchant_frequency"`
	MonthlyTrend       map[string]float64     `json:"monthly_trend"`
	LargestTransaction float64                `json:"largest_transaction"`
	RecentTransactions []ExtractedTransaction `json:"recent_transactions"`

	// Derived during finalization.
	AverageTransaction float64         `json:"average_transaction"`
	SpendPercentage    float64         `json:"spend_percentage"`
	TopMerchants       []MerchantShare `json:"top_merchants"`
}

// MerchantStats is one entry of the cross-category merchant ranking.
type MerchantStats struct {
	Merchant           string   `json:"merchant"`
	TransactionCount   int      `json:"transaction_count"`
	TotalSpend         float64  `json:"total_spend"`
	AverageTransaction float64  `json:"average_transaction"`
	Categories         []string `json:"categories"`
}

// OverallStats covers the whole batch across categories.
type OverallStats struct {
	TotalSpend        float64            `json:"total_spend"`
	TransactionCount  int                `json:"transaction_count"`
	MonthlyTotals     map[string]float64 `json:"monthly_totals"`
	PeakSpendingMonth string             `json:"peak_spending_month"`
	TopMerchants      []MerchantStats    `json:"top_merchants"`
}

// SpendingAnalysis is the category-level half of the result.
type SpendingAnalysis struct {
	Categories map[string]*CategoryBucket `json:"categories"`
	Overall    OverallStats               `json:"overall"`
}

// AnalysisResult is the top-level output of one analysis run. It is
// finalized once and never mutated afterwards.
type AnalysisResult struct {
	CreditAnalysis   map[string]*CardAccount `json:"credit_analysis"`
	SpendingAnalysis SpendingAnalysis        `json:"spending_analysis"`
	Insights         []string                `json:"insights"`
	TotalProcessed   int                     `json:"total_processed"`
	TotalTransactions int                    `json:"total_transactions"`
	GeneratedAt      time.Time               `json:"generated_at"`
}
