package analyzer

import (
	"math"
	"testing"
	"time"
)

func spendTxn(category, merchant string, amount float64, date time.Time) ExtractedTransaction {
	return ExtractedTransaction{
		Date:     date,
		Amount:   amount,
		Merchant: merchant,
		Category: category,
		Type:     TransactionDebit,
	}
}

func TestSpendingAggregation(t *testing.T) {
	agg := NewSpendingAggregator()
	agg.Add(spendTxn("food_dining", "Zomato", 400, day(2024, 1, 5)))
	agg.Add(spendTxn("food_dining", "Swiggy", 600, day(2024, 1, 20)))
	agg.Add(spendTxn("food_dining", "Zomato", 500, day(2024, 2, 3)))
	agg.Add(spendTxn("shopping_retail", "Amazon", 2500, day(2024, 2, 10)))

	result := agg.Finalize()

	food := result.Categories["food_dining"]
	if food == nil {
		t.Fatal("food_dining bucket missing")
	}
	if food.TotalSpend != 1500 {
		t.Errorf("food total = %v, want 1500", food.TotalSpend)
	}
	if food.TransactionCount != 3 {
		t.Errorf("food count = %d, want 3", food.TransactionCount)
	}
	if food.AverageTransaction != 500 {
		t.Errorf("food average = %v, want 500", food.AverageTransaction)
	}
	if food.LargestTransaction != 600 {
		t.Errorf("food largest = %v, want 600", food.LargestTransaction)
	}
	if food.MerchantFrequency["Zomato"] != 2 {
		t.Errorf("Zomato frequency = %d, want 2", food.MerchantFrequency["Zomato"])
	}
	if food.MonthlyTrend["2024-01"] != 1000 {
		t.Errorf("Jan trend = %v, want 1000", food.MonthlyTrend["2024-01"])
	}

	if result.Overall.TotalSpend != 4000 {
		t.Errorf("overall total = %v, want 4000", result.Overall.TotalSpend)
	}
	if result.Overall.PeakSpendingMonth != "2024-02" {
		t.Errorf("peak month = %q, want 2024-02", result.Overall.PeakSpendingMonth)
	}

	// Category shares add up to the whole.
	sum := 0.0
	for _, bucket := range result.Categories {
		sum += bucket.SpendPercentage
	}
	if math.Abs(sum-100.0) > 1e-9 {
		t.Errorf("spend percentages sum to %v, want 100", sum)
	}
}

func TestRecentTransactionsOrderedAndCapped(t *testing.T) {
	agg := NewSpendingAggregator()
	// Insert out of order to exercise the ordering.
	days := []int{3, 1, 7, 5, 2, 6, 4}
	for _, d := range days {
		agg.Add(spendTxn("food_dining", "Zomato", float64(d), day(2024, 1, d)))
	}

	food := agg.Finalize().Categories["food_dining"]
	if len(food.RecentTransactions) != recentTransactionLimit {
		t.Fatalf("recent = %d entries, want %d", len(food.RecentTransactions), recentTransactionLimit)
	}
	for i := 1; i < len(food.RecentTransactions); i++ {
		if food.RecentTransactions[i].Date.After(food.RecentTransactions[i-1].Date) {
			t.Fatalf("recent transactions not in most-recent-first order: %v", food.RecentTransactions)
		}
	}
	if !food.RecentTransactions[0].Date.Equal(day(2024, 1, 7)) {
		t.Errorf("most recent = %v, want Jan 7", food.RecentTransactions[0].Date)
	}
}

func TestTopMerchants(t *testing.T) {
	agg := NewSpendingAggregator()
	for i := 0; i < 3; i++ {
		agg.Add(spendTxn("food_dining", "Zomato", 100, day(2024, 1, i+1)))
	}
	agg.Add(spendTxn("food_dining", "Swiggy", 900, day(2024, 1, 10)))

	result := agg.Finalize()

	food := result.Categories["food_dining"]
	if len(food.TopMerchants) != 2 {
		t.Fatalf("top merchants = %d, want 2", len(food.TopMerchants))
	}
	if food.TopMerchants[0].Merchant != "Zomato" {
		t.Errorf("top by visits = %q, want Zomato", food.TopMerchants[0].Merchant)
	}
	if math.Abs(food.TopMerchants[0].Share-75.0) > 1e-9 {
		t.Errorf("Zomato share = %v, want 75", food.TopMerchants[0].Share)
	}

	overall := result.Overall.TopMerchants
	if overall[0].Merchant != "Zomato" {
		t.Errorf("top overall = %q, want Zomato", overall[0].Merchant)
	}
	if overall[1].AverageTransaction != 900 {
		t.Errorf("Swiggy average = %v, want 900", overall[1].AverageTransaction)
	}
	if len(overall[0].Categories) != 1 || overall[0].Categories[0] != "food_dining" {
		t.Errorf("Zomato categories = %v, want [food_dining]", overall[0].Categories)
	}
}

func TestTopOverallMerchantsRankedByFrequency(t *testing.T) {
	agg := NewSpendingAggregator()
	// Three small orders versus one large purchase. Frequency wins the
	// top slot regardless of spend.
	for i := 0; i < 3; i++ {
		agg.Add(spendTxn("food_dining", "Chaayos", 10, day(2024, 1, i+1)))
	}
	agg.Add(spendTxn("shopping_retail", "Croma", 1000, day(2024, 1, 15)))

	overall := agg.Finalize().Overall.TopMerchants
	if overall[0].Merchant != "Chaayos" {
		t.Errorf("top overall = %q, want Chaayos", overall[0].Merchant)
	}
	if overall[0].TransactionCount != 3 {
		t.Errorf("top overall count = %d, want 3", overall[0].TransactionCount)
	}
	if overall[1].Merchant != "Croma" {
		t.Errorf("second overall = %q, want Croma", overall[1].Merchant)
	}

	// Equal counts fall back to spend.
	agg2 := NewSpendingAggregator()
	agg2.Add(spendTxn("food_dining", "Zomato", 200, day(2024, 1, 1)))
	agg2.Add(spendTxn("food_dining", "Swiggy", 500, day(2024, 1, 2)))
	overall2 := agg2.Finalize().Overall.TopMerchants
	if overall2[0].Merchant != "Swiggy" {
		t.Errorf("tiebreak top = %q, want Swiggy", overall2[0].Merchant)
	}
}
