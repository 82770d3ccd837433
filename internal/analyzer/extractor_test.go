package analyzer

import (
	"testing"
	"time"
)

func TestExtractCreditCardTransaction(t *testing.T) {
	lib := DefaultLibrary()
	c := NewClassifier(lib)
	e := NewExtractor(lib)

	email := testEmail("alerts@hdfcbank.net", "Transaction Alert",
		"Rs. 2,499.00 spent at AMAZON on 15-03-2024 using Credit Card XX1234. Available limit: Rs. 1,50,000.00")

	cls := c.Classify(email)
	if cls.EmailType != EmailTypeCreditCardTxn {
		t.Fatalf("classified as %s", cls.EmailType)
	}

	txn := e.ExtractTransaction(email, cls)
	if txn == nil {
		t.Fatal("no transaction extracted")
	}
	if txn.Amount != 2499.00 {
		t.Errorf("amount = %v, want 2499.00", txn.Amount)
	}
	if txn.Merchant != "AMAZON" {
		t.Errorf("merchant = %q, want AMAZON", txn.Merchant)
	}
	if txn.CardLast4 != "1234" {
		t.Errorf("card last4 = %q, want 1234", txn.CardLast4)
	}
	if txn.Issuer != "hdfc" {
		t.Errorf("issuer = %q, want hdfc", txn.Issuer)
	}
	if txn.AvailableLimit != 150000.00 {
		t.Errorf("available limit = %v, want 150000.00 (Indian digit grouping)", txn.AvailableLimit)
	}
	if !txn.Date.Equal(email.Timestamp) {
		t.Errorf("date = %v, want email timestamp", txn.Date)
	}
}

func TestExtractAmountMandatory(t *testing.T) {
	lib := DefaultLibrary()
	e := NewExtractor(lib)

	email := testEmail("alerts@hdfcbank.net", "Transaction Alert",
		"Your card was used at AMAZON but the amount did not come through")
	cls := ClassificationResult{EmailType: EmailTypeCreditCardTxn, MatchedCategory: "credit_cards"}

	if txn := e.ExtractTransaction(email, cls); txn != nil {
		t.Errorf("expected nil transaction without a parseable amount, got %+v", txn)
	}
}

func TestExtractMerchantSentinel(t *testing.T) {
	lib := DefaultLibrary()
	e := NewExtractor(lib)

	email := testEmail("alerts@hdfcbank.net", "Transaction Alert",
		"Transaction of Rs. 750.00 on your Credit Card XX9876")
	cls := ClassificationResult{EmailType: EmailTypeCreditCardTxn, MatchedCategory: "credit_cards"}

	txn := e.ExtractTransaction(email, cls)
	if txn == nil {
		t.Fatal("no transaction extracted")
	}
	if txn.Merchant != MerchantUnknown {
		t.Errorf("merchant = %q, want %q", txn.Merchant, MerchantUnknown)
	}
	if txn.Amount != 750.00 {
		t.Errorf("amount = %v, want 750.00", txn.Amount)
	}
}

func TestExtractPayment(t *testing.T) {
	lib := DefaultLibrary()
	e := NewExtractor(lib)

	email := testEmail("alerts@hdfcbank.net", "Payment received",
		"Payment received! Rs. 5,000.00 credited to your Credit Card XX1234 via UPI. Reference: HDFCPAY123")

	p := e.ExtractPayment(email)
	if p == nil {
		t.Fatal("no payment extracted")
	}
	if p.Amount != 5000.00 {
		t.Errorf("amount = %v, want 5000.00", p.Amount)
	}
	if p.Mode != PaymentModeUPI {
		t.Errorf("mode = %s, want upi", p.Mode)
	}
	if p.CardLast4 != "1234" {
		t.Errorf("card last4 = %q, want 1234", p.CardLast4)
	}
	if p.Issuer != "hdfc" {
		t.Errorf("issuer = %q, want hdfc", p.Issuer)
	}
	if p.Reference != "HDFCPAY123" {
		t.Errorf("reference = %q, want HDFCPAY123", p.Reference)
	}
}

func TestExtractFoodOrder(t *testing.T) {
	lib := DefaultLibrary()
	e := NewExtractor(lib)

	email := testEmail("noreply@zomato.com", "Order Confirmed",
		"Your order from Pizza Palace is confirmed. Amount paid: Rs. 649.00 via GPay")
	cls := ClassificationResult{EmailType: EmailTypeFoodDining, MatchedCategory: "food_dining"}

	txn := e.ExtractTransaction(email, cls)
	if txn == nil {
		t.Fatal("no transaction extracted")
	}
	if txn.Amount != 649.00 {
		t.Errorf("amount = %v, want 649.00", txn.Amount)
	}
	if txn.Merchant != "Pizza Palace" {
		t.Errorf("merchant = %q, want Pizza Palace", txn.Merchant)
	}
	if txn.PaymentMode != PaymentModeUPI {
		t.Errorf("mode = %s, want upi", txn.PaymentMode)
	}
	if txn.Category != "food_dining" {
		t.Errorf("category = %q, want food_dining", txn.Category)
	}
}

func TestParseAlertDate(t *testing.T) {
	got, err := parseAlertDate("15-03-2024")
	if err != nil {
		t.Fatalf("parseAlertDate: %v", err)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parsed %v, want %v", got, want)
	}
	if _, err := parseAlertDate("2024-03-15"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestDueDateAndRewards(t *testing.T) {
	lib := DefaultLibrary()
	e := NewExtractor(lib)

	email := testEmail("statements@icicibank.com", "Statement generated",
		"Transaction of Rs. 12,000.00 this cycle. Total Limit: Rs. 2,00,000.00. Payment due date: 05-04-2024. Reward points: 320")
	cls := ClassificationResult{EmailType: EmailTypeCreditCard, MatchedCategory: "credit_cards"}

	txn := e.ExtractTransaction(email, cls)
	if txn == nil {
		t.Fatal("no transaction extracted")
	}
	if txn.TotalLimit != 200000.00 {
		t.Errorf("total limit = %v, want 200000.00", txn.TotalLimit)
	}
	if txn.DueDate == nil {
		t.Fatal("due date not extracted")
	}
	want := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	if !txn.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", txn.DueDate, want)
	}
	if txn.RewardPoints != 320 {
		t.Errorf("reward points = %d, want 320", txn.RewardPoints)
	}
}
