package analyzer

import (
	"strings"
)

// Classifier routes a raw email to an email type. It holds no state
// beyond the pattern library and is safe for concurrent use.
type Classifier struct {
	lib *PatternLibrary
}

func NewClassifier(lib *PatternLibrary) *Classifier {
	return &Classifier{lib: lib}
}

// Classify decides the email type for one email. It never fails: an
// email that matches nothing is "unknown", which downstream stages
// skip.
func (c *Classifier) Classify(email RawEmail) ClassificationResult {
	sender := strings.ToLower(email.Sender)
	text := strings.ToLower(email.Subject + " " + email.Content)

	if strings.TrimSpace(email.Subject) == "" && strings.TrimSpace(email.Content) == "" {
		return ClassificationResult{EmailType: EmailTypeUnknown}
	}

	// Promotional content never reaches an extractor, but a mail that
	// carries an actual transaction or payment confirmation is kept
	// even when it also advertises.
	if c.anyKeyword(text, c.lib.PromotionalKeywords) &&
		!c.anyKeyword(text, c.lib.TransactionKeywords) &&
		!c.anyKeyword(text, c.lib.PaymentKeywords) {
		return ClassificationResult{EmailType: EmailTypePromotional}
	}

	// Sender-domain routing, in table order.
	for _, cat := range c.lib.Categories {
		for _, company := range cat.Companies {
			if !strings.Contains(sender, company) {
				continue
			}
			if cat.EmailType == EmailTypeCreditCard {
				return ClassificationResult{
					EmailType:       c.refineCreditCard(text),
					MatchedCategory: cat.Name,
				}
			}
			return ClassificationResult{EmailType: cat.EmailType, MatchedCategory: cat.Name}
		}
	}

	return c.classifyByContent(text)
}

// refineCreditCard splits issuer mail into payment confirmations and
// transaction alerts. Payment keywords win over transaction keywords:
// payment confirmations routinely quote the original spend.
func (c *Classifier) refineCreditCard(text string) EmailType {
	if c.anyKeyword(text, c.lib.PaymentKeywords) {
		return EmailTypeCreditCardPayment
	}
	if c.anyKeyword(text, c.lib.TransactionKeywords) {
		return EmailTypeCreditCardTxn
	}
	return EmailTypeCreditCard
}

// classifyByContent is the fallback for unrecognized senders. Credit
// card wording is checked first, then categories are scored by total
// pattern match count; the first category in table order wins ties.
func (c *Classifier) classifyByContent(text string) ClassificationResult {
	// Unlike issuer-routed mail, transaction wording wins here: without
	// a recognized issuer the alert itself is the stronger signal.
	if c.anyKeyword(text, c.lib.TransactionKeywords) {
		return ClassificationResult{EmailType: EmailTypeCreditCardTxn, MatchedCategory: "credit_cards"}
	}
	if c.anyKeyword(text, c.lib.PaymentKeywords) {
		return ClassificationResult{EmailType: EmailTypeCreditCardPayment, MatchedCategory: "credit_cards"}
	}

	best := ClassificationResult{EmailType: EmailTypeUnknown}
	bestScore := 0
	for _, cat := range c.lib.ContentCategories {
		score := 0
		for _, re := range cat.Patterns {
			score += len(re.FindAllStringIndex(text, -1))
		}
		if score > bestScore {
			bestScore = score
			best = ClassificationResult{EmailType: cat.EmailType, MatchedCategory: cat.Name}
		}
	}
	return best
}

func (c *Classifier) anyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
