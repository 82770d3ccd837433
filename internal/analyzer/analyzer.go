package analyzer

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Analyzer runs the full classification/extraction/aggregation
// pipeline over a batch of emails. Safe for concurrent use; each
// AnalyzeEmails call owns its aggregation state.
type Analyzer struct {
	classifier *Classifier
	extractor  *Extractor
	workers    int

	// OnProgress, when set, is called after each email is folded into
	// the result. Called from a single goroutine.
	OnProgress func(processed, total int)
}

func New(lib *PatternLibrary) *Analyzer {
	if lib == nil {
		lib = DefaultLibrary()
	}
	return &Analyzer{
		classifier: NewClassifier(lib),
		extractor:  NewExtractor(lib),
		workers:    runtime.NumCPU(),
	}
}

// outcome carries one email's pipeline products to the reduce stage.
type outcome struct {
	cls     ClassificationResult
	txn     *ExtractedTransaction
	payment *PaymentRecord
}

// AnalyzeEmails processes the batch and returns the finalized result.
// Classification and extraction fan out across workers; aggregation
// runs single-threaded over the outcomes in input order, so identical
// input always yields an identical result. A malformed email is
// skipped, never fatal to the batch.
func (a *Analyzer) AnalyzeEmails(ctx context.Context, emails []RawEmail) (*AnalysisResult, error) {
	outcomes := make([]outcome, len(emails))

	workers := a.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(emails) && len(emails) > 0 {
		workers = len(emails)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				outcomes[i] = a.process(emails[i])
			}
		}()
	}

feed:
	for i := range emails {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	credit := NewCreditAggregator()
	spending := NewSpendingAggregator()
	var allTxns []ExtractedTransaction

	for i, out := range outcomes {
		if out.txn != nil {
			if out.cls.EmailType == EmailTypeCreditCardTxn || out.cls.EmailType == EmailTypeCreditCard {
				credit.Add(*out.txn)
			}
			spending.Add(*out.txn)
			allTxns = append(allTxns, *out.txn)
		}
		if out.payment != nil {
			credit.AddPayment(*out.payment)
		}
		if a.OnProgress != nil {
			a.OnProgress(i+1, len(emails))
		}
	}

	creditAnalysis := credit.Finalize()
	spendingAnalysis := spending.Finalize()

	return &AnalysisResult{
		CreditAnalysis:    creditAnalysis,
		SpendingAnalysis:  spendingAnalysis,
		Insights:          GenerateInsights(creditAnalysis, spendingAnalysis, allTxns),
		TotalProcessed:    len(emails),
		TotalTransactions: len(allTxns),
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

// process runs the per-email stages. Promotional and unrecognized mail
// produces an empty outcome.
func (a *Analyzer) process(email RawEmail) outcome {
	cls := a.classifier.Classify(email)
	out := outcome{cls: cls}

	switch cls.EmailType {
	case EmailTypePromotional, EmailTypeUnknown:
		return out
	case EmailTypeCreditCardPayment:
		out.payment = a.extractor.ExtractPayment(email)
	default:
		out.txn = a.extractor.ExtractTransaction(email, cls)
	}
	return out
}
