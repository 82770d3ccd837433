package analyzer

import (
	"sort"
)

const recentTransactionLimit = 5

// SpendingAggregator accumulates category-level spending across a
// batch. Single-goroutine use, same contract as CreditAggregator.
type SpendingAggregator struct {
	categories map[string]*CategoryBucket
	overall    OverallStats

	// merchant -> cross-category rollup, built incrementally.
	merchants map[string]*MerchantStats
	// merchant -> set of categories seen, flattened at finalize.
	merchantCats map[string]map[string]struct{}
}

func NewSpendingAggregator() *SpendingAggregator {
	return &SpendingAggregator{
		categories:   make(map[string]*CategoryBucket),
		merchants:    make(map[string]*MerchantStats),
		merchantCats: make(map[string]map[string]struct{}),
		overall: OverallStats{
			MonthlyTotals: make(map[string]float64),
		},
	}
}

// Add folds one transaction into its category bucket and the overall
// stats. The peak month is tracked incrementally so finalization never
// rescans the trend maps.
func (s *SpendingAggregator) Add(txn ExtractedTransaction) {
	bucket, ok := s.categories[txn.Category]
	if !ok {
		bucket = &CategoryBucket{
			Category:          txn.Category,
			MerchantFrequency: make(map[string]int),
			MonthlyTrend:      make(map[string]float64),
		}
		s.categories[txn.Category] = bucket
	}

	month := txn.Date.Format("2006-01")

	bucket.TotalSpend += txn.Amount
	bucket.TransactionCount++
	bucket.MerchantFrequency[txn.Merchant]++
	bucket.MonthlyTrend[month] += txn.Amount
	if txn.Amount > bucket.LargestTransaction {
		bucket.LargestTransaction = txn.Amount
	}
	bucket.RecentTransactions = insertRecent(bucket.RecentTransactions, txn)

	s.overall.TotalSpend += txn.Amount
	s.overall.TransactionCount++
	s.overall.MonthlyTotals[month] += txn.Amount
	if s.overall.PeakSpendingMonth == "" ||
		s.overall.MonthlyTotals[month] > s.overall.MonthlyTotals[s.overall.PeakSpendingMonth] {
		s.overall.PeakSpendingMonth = month
	}

	stats, ok := s.merchants[txn.Merchant]
	if !ok {
		stats = &MerchantStats{Merchant: txn.Merchant}
		s.merchants[txn.Merchant] = stats
		s.merchantCats[txn.Merchant] = make(map[string]struct{})
	}
	stats.TransactionCount++
	stats.TotalSpend += txn.Amount
	s.merchantCats[txn.Merchant][txn.Category] = struct{}{}
}

// insertRecent keeps the bucket's recent list most-recent-first and
// capped.
func insertRecent(recent []ExtractedTransaction, txn ExtractedTransaction) []ExtractedTransaction {
	pos := len(recent)
	for i, r := range recent {
		if txn.Date.After(r.Date) {
			pos = i
			break
		}
	}
	recent = append(recent, ExtractedTransaction{})
	copy(recent[pos+1:], recent[pos:])
	recent[pos] = txn
	if len(recent) > recentTransactionLimit {
		recent = recent[:recentTransactionLimit]
	}
	return recent
}

// Finalize computes the derived figures and returns the analysis. The
// aggregator must not be fed afterwards.
func (s *SpendingAggregator) Finalize() SpendingAnalysis {
	for _, bucket := range s.categories {
		if bucket.TransactionCount > 0 {
			bucket.AverageTransaction = bucket.TotalSpend / float64(bucket.TransactionCount)
		}
		if s.overall.TotalSpend > 0 {
			bucket.SpendPercentage = bucket.TotalSpend / s.overall.TotalSpend * 100
		}
		bucket.TopMerchants = topMerchantShares(bucket)
	}

	s.overall.TopMerchants = s.topOverallMerchants()

	return SpendingAnalysis{Categories: s.categories, Overall: s.overall}
}

// topMerchantShares ranks a bucket's merchants by visit count, top 5,
// share of the bucket's transactions. Ties break alphabetically so the
// output is stable.
func topMerchantShares(bucket *CategoryBucket) []MerchantShare {
	shares := make([]MerchantShare, 0, len(bucket.MerchantFrequency))
	for merchant, count := range bucket.MerchantFrequency {
		shares = append(shares, MerchantShare{
			Merchant: merchant,
			Count:    count,
			Share:    float64(count) / float64(bucket.TransactionCount) * 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Merchant < shares[j].Merchant
	})
	if len(shares) > 5 {
		shares = shares[:5]
	}
	return shares
}

func (s *SpendingAggregator) topOverallMerchants() []MerchantStats {
	ranked := make([]MerchantStats, 0, len(s.merchants))
	for name, stats := range s.merchants {
		entry := *stats
		if entry.TransactionCount > 0 {
			entry.AverageTransaction = entry.TotalSpend / float64(entry.TransactionCount)
		}
		cats := make([]string, 0, len(s.merchantCats[name]))
		for cat := range s.merchantCats[name] {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		entry.Categories = cats
		ranked = append(ranked, entry)
	}
	// Ranked by visit count, spend breaks ties.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TransactionCount != ranked[j].TransactionCount {
			return ranked[i].TransactionCount > ranked[j].TransactionCount
		}
		if ranked[i].TotalSpend != ranked[j].TotalSpend {
			return ranked[i].TotalSpend > ranked[j].TotalSpend
		}
		return ranked[i].Merchant < ranked[j].Merchant
	})
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}
	return ranked
}
