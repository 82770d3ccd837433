package analyzer

import (
	"math"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cardTxn(issuer, last4 string, amount float64, date time.Time) ExtractedTransaction {
	return ExtractedTransaction{
		Date:      date,
		Amount:    amount,
		Merchant:  "STORE",
		Category:  "credit_cards",
		Type:      TransactionDebit,
		Issuer:    issuer,
		CardLast4: last4,
	}
}

func TestCreditAggregatorKeysByIssuerAndLast4(t *testing.T) {
	agg := NewCreditAggregator()
	agg.Add(cardTxn("hdfc", "1234", 1000, day(2024, 1, 10)))
	agg.Add(cardTxn("hdfc", "1234", 500, day(2024, 1, 20)))
	agg.Add(cardTxn("hdfc", "9876", 300, day(2024, 1, 21)))
	agg.Add(cardTxn("icici", "1234", 200, day(2024, 1, 22)))

	accounts := agg.Finalize()
	if len(accounts) != 3 {
		t.Fatalf("got %d accounts, want 3", len(accounts))
	}
	acct := accounts["hdfc_1234"]
	if acct == nil {
		t.Fatal("hdfc_1234 account missing")
	}
	if acct.TotalSpend != 1500 {
		t.Errorf("total spend = %v, want 1500", acct.TotalSpend)
	}
	if len(acct.Transactions) != 2 {
		t.Errorf("transactions = %d, want 2", len(acct.Transactions))
	}
}

func TestCreditAggregatorDropsIssuerlessTransactions(t *testing.T) {
	agg := NewCreditAggregator()
	agg.Add(cardTxn("", "1234", 1000, day(2024, 1, 10)))
	if accounts := agg.Finalize(); len(accounts) != 0 {
		t.Errorf("issuerless transaction created an account: %v", accounts)
	}
}

func TestCardMetrics(t *testing.T) {
	agg := NewCreditAggregator()

	jan := cardTxn("hdfc", "1234", 40000, day(2024, 1, 10))
	jan.TotalLimit = 100000
	due1 := day(2024, 2, 5)
	jan.DueDate = &due1
	agg.Add(jan)

	feb := cardTxn("hdfc", "1234", 20000, day(2024, 2, 12))
	due2 := day(2024, 3, 5)
	feb.DueDate = &due2
	agg.Add(feb)

	// First payment on time, second one late.
	agg.AddPayment(PaymentRecord{Issuer: "hdfc", CardLast4: "1234", Amount: 40000, Date: day(2024, 2, 3)})
	agg.AddPayment(PaymentRecord{Issuer: "hdfc", CardLast4: "1234", Amount: 20000, Date: day(2024, 3, 9)})

	acct := agg.Finalize()["hdfc_1234"]
	if acct == nil {
		t.Fatal("account missing")
	}

	if acct.Metrics.PaymentRatio != 0.5 {
		t.Errorf("payment ratio = %v, want 0.5", acct.Metrics.PaymentRatio)
	}
	if acct.Metrics.AverageMonthlySpend != 30000 {
		t.Errorf("average monthly spend = %v, want 30000", acct.Metrics.AverageMonthlySpend)
	}
	if acct.Metrics.CreditUtilization == nil {
		t.Fatal("utilization should be computed when a limit was observed")
	}
	if math.Abs(*acct.Metrics.CreditUtilization-60.0) > 1e-9 {
		t.Errorf("utilization = %v, want 60.0", *acct.Metrics.CreditUtilization)
	}
}

func TestUtilizationNilWithoutLimit(t *testing.T) {
	agg := NewCreditAggregator()
	agg.Add(cardTxn("hdfc", "1234", 5000, day(2024, 1, 10)))

	acct := agg.Finalize()["hdfc_1234"]
	if acct.Metrics.CreditUtilization != nil {
		t.Errorf("utilization = %v, want nil when no limit was ever seen", *acct.Metrics.CreditUtilization)
	}
}

func TestOrphanPaymentAttachedWhenUnambiguous(t *testing.T) {
	agg := NewCreditAggregator()
	agg.Add(cardTxn("hdfc", "1234", 5000, day(2024, 1, 10)))
	agg.AddPayment(PaymentRecord{Issuer: "hdfc", Amount: 5000, Date: day(2024, 2, 1)})

	acct := agg.Finalize()["hdfc_1234"]
	if len(acct.PaymentHistory) != 1 {
		t.Errorf("payment history = %d entries, want 1", len(acct.PaymentHistory))
	}
}
