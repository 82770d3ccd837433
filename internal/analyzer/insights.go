package analyzer

import (
	"fmt"
	"math"
	"sort"
)

// Utilization above this share of the limit triggers a warning insight.
const highUtilizationPct = 70.0

// Merchants need at least this many transactions before a recurring
// pattern can be claimed.
const recurringMinTxns = 3

// Consecutive intervals may drift this many days around the mean and
// still count as the same cadence.
const recurringToleranceDays = 5.0

// GenerateInsights renders the human-readable findings for one result.
// Amounts are always printed with the "Rs." prefix regardless of the
// symbol the source emails used. Ordering is fixed: summary first,
// then per-card warnings, then trends, then recurring payments.
func GenerateInsights(credit map[string]*CardAccount, spending SpendingAnalysis, txns []ExtractedTransaction) []string {
	var insights []string

	if top := topCategory(spending); top != nil {
		insights = append(insights, fmt.Sprintf(
			"Highest spending category: %s (Rs. %.2f across %d transactions)",
			top.Category, top.TotalSpend, top.TransactionCount))
	}

	if spending.Overall.PeakSpendingMonth != "" {
		insights = append(insights, fmt.Sprintf(
			"Peak spending month: %s (Rs. %.2f)",
			spending.Overall.PeakSpendingMonth,
			spending.Overall.MonthlyTotals[spending.Overall.PeakSpendingMonth]))
	}

	for _, key := range sortedAccountKeys(credit) {
		acct := credit[key]
		util := acct.Metrics.CreditUtilization
		if util != nil && *util >= highUtilizationPct {
			insights = append(insights, fmt.Sprintf(
				"High credit utilization on %s card ending %s: %.1f%% of the limit",
				acct.Issuer, acct.Last4, *util))
		}
	}

	if change, prev, cur, ok := monthOverMonth(spending.Overall.MonthlyTotals); ok {
		direction := "increased"
		if change < 0 {
			direction = "decreased"
			change = -change
		}
		insights = append(insights, fmt.Sprintf(
			"Spending %s %.1f%% in %s compared to %s", direction, change, cur, prev))
	}

	for _, r := range detectRecurring(txns) {
		insights = append(insights, fmt.Sprintf(
			"Recurring payment detected: %s (~Rs. %.2f every %d days)",
			r.Merchant, r.AverageAmount, r.IntervalDays))
	}

	return insights
}

func topCategory(spending SpendingAnalysis) *CategoryBucket {
	var top *CategoryBucket
	for _, bucket := range spending.Categories {
		if top == nil ||
			bucket.TotalSpend > top.TotalSpend ||
			(bucket.TotalSpend == top.TotalSpend && bucket.Category < top.Category) {
			top = bucket
		}
	}
	return top
}

func sortedAccountKeys(credit map[string]*CardAccount) []string {
	keys := make([]string, 0, len(credit))
	for k := range credit {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// monthOverMonth compares the two most recent months on record.
func monthOverMonth(totals map[string]float64) (change float64, prev, cur string, ok bool) {
	if len(totals) < 2 {
		return 0, "", "", false
	}
	months := make([]string, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Strings(months)
	prev = months[len(months)-2]
	cur = months[len(months)-1]
	if totals[prev] == 0 {
		return 0, "", "", false
	}
	change = (totals[cur] - totals[prev]) / totals[prev] * 100
	return change, prev, cur, true
}

// RecurringPayment is one detected subscription-like cadence.
type RecurringPayment struct {
	Merchant      string
	AverageAmount float64
	IntervalDays  int
}

// detectRecurring finds merchants charged on a steady cadence: at
// least three transactions whose consecutive gaps all sit within the
// tolerance window around the mean gap. A one-off gap outside the
// window disqualifies the merchant entirely.
func detectRecurring(txns []ExtractedTransaction) []RecurringPayment {
	byMerchant := make(map[string][]ExtractedTransaction)
	for _, t := range txns {
		if t.Merchant == MerchantUnknown {
			continue
		}
		byMerchant[t.Merchant] = append(byMerchant[t.Merchant], t)
	}

	merchants := make([]string, 0, len(byMerchant))
	for m := range byMerchant {
		merchants = append(merchants, m)
	}
	sort.Strings(merchants)

	var out []RecurringPayment
	for _, merchant := range merchants {
		list := byMerchant[merchant]
		if len(list) < recurringMinTxns {
			continue
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })

		deltas := make([]float64, 0, len(list)-1)
		total := 0.0
		for i := 1; i < len(list); i++ {
			deltas = append(deltas, list[i].Date.Sub(list[i-1].Date).Hours()/24)
		}
		mean := 0.0
		for _, d := range deltas {
			mean += d
		}
		mean /= float64(len(deltas))
		if mean <= 0 {
			continue
		}

		steady := true
		for _, d := range deltas {
			if math.Abs(d-mean) > recurringToleranceDays {
				steady = false
				break
			}
		}
		if !steady {
			continue
		}

		for _, t := range list {
			total += t.Amount
		}
		out = append(out, RecurringPayment{
			Merchant:      merchant,
			AverageAmount: total / float64(len(list)),
			IntervalDays:  int(math.Round(mean)),
		})
	}
	return out
}
