package analyzer

import (
	"sort"
	"time"
)

// CreditAggregator accumulates card activity across a batch. Not safe
// for concurrent use; the pipeline feeds it from a single goroutine.
type CreditAggregator struct {
	accounts map[string]*CardAccount
	// Payments that arrived without a resolvable card, attached to an
	// issuer account during finalization when unambiguous.
	orphanPayments []PaymentRecord
}

func NewCreditAggregator() *CreditAggregator {
	return &CreditAggregator{accounts: make(map[string]*CardAccount)}
}

// Add folds one card transaction into its account. A transaction whose
// sender resolved no issuer cannot be attributed to a card and is
// dropped here; the spending side still counts it.
func (c *CreditAggregator) Add(txn ExtractedTransaction) {
	if txn.Issuer == "" {
		return
	}
	last4 := txn.CardLast4
	if last4 == "" {
		last4 = "unknown"
	}
	acct := c.account(txn.Issuer, last4)
	acct.TotalSpend += txn.Amount
	acct.Transactions = append(acct.Transactions, txn)
	acct.RewardPoints += txn.RewardPoints
	if txn.TotalLimit > acct.CreditLimit {
		acct.CreditLimit = txn.TotalLimit
	}
	if txn.DueDate != nil {
		acct.DueDates = append(acct.DueDates, *txn.DueDate)
	}
}

// AddPayment records a payment confirmation against its card.
func (c *CreditAggregator) AddPayment(p PaymentRecord) {
	if p.Issuer == "" {
		return
	}
	if p.CardLast4 == "" {
		c.orphanPayments = append(c.orphanPayments, p)
		return
	}
	acct := c.account(p.Issuer, p.CardLast4)
	acct.PaymentHistory = append(acct.PaymentHistory, p)
}

func (c *CreditAggregator) account(issuer, last4 string) *CardAccount {
	key := issuer + "_" + last4
	acct, ok := c.accounts[key]
	if !ok {
		acct = &CardAccount{Issuer: issuer, Last4: last4}
		c.accounts[key] = acct
	}
	return acct
}

// Finalize computes derived metrics and returns the account map. The
// aggregator must not be fed after Finalize.
func (c *CreditAggregator) Finalize() map[string]*CardAccount {
	c.attachOrphans()
	for _, acct := range c.accounts {
		acct.Metrics = calculateCardMetrics(acct)
	}
	return c.accounts
}

// attachOrphans places payments without a card number on the issuer's
// only account. Ambiguous issuers keep the payment unattributed.
func (c *CreditAggregator) attachOrphans() {
	byIssuer := make(map[string][]*CardAccount)
	for _, acct := range c.accounts {
		byIssuer[acct.Issuer] = append(byIssuer[acct.Issuer], acct)
	}
	for _, p := range c.orphanPayments {
		accts := byIssuer[p.Issuer]
		if len(accts) == 1 {
			accts[0].PaymentHistory = append(accts[0].PaymentHistory, p)
		}
	}
	c.orphanPayments = nil
}

// calculateCardMetrics derives the per-card figures. Payments are
// matched to statement due dates in chronological order; a payment is
// on time when it lands on or before its due date. Utilization stays
// nil when no credit limit was ever observed for the card.
func calculateCardMetrics(acct *CardAccount) CardMetrics {
	m := CardMetrics{}

	if len(acct.DueDates) > 0 {
		dues := append([]time.Time(nil), acct.DueDates...)
		sort.Slice(dues, func(i, j int) bool { return dues[i].Before(dues[j]) })
		payments := append([]PaymentRecord(nil), acct.PaymentHistory...)
		sort.Slice(payments, func(i, j int) bool { return payments[i].Date.Before(payments[j].Date) })

		onTime := 0
		for i, due := range dues {
			if i < len(payments) && !payments[i].Date.After(due) {
				onTime++
			}
		}
		m.PaymentRatio = float64(onTime) / float64(len(dues))
	}

	if months := distinctMonths(acct.Transactions); months > 0 {
		m.AverageMonthlySpend = acct.TotalSpend / float64(months)
	}

	if acct.CreditLimit > 0 {
		util := acct.TotalSpend / acct.CreditLimit * 100
		m.CreditUtilization = &util
	}
	return m
}

func distinctMonths(txns []ExtractedTransaction) int {
	seen := make(map[string]struct{})
	for _, t := range txns {
		seen[t.Date.Format("2006-01")] = struct{}{}
	}
	return len(seen)
}
