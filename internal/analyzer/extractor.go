package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extractor pulls structured transactions out of classified emails.
// Stateless apart from the pattern library, safe for concurrent use.
type Extractor struct {
	lib *PatternLibrary
}

func NewExtractor(lib *PatternLibrary) *Extractor {
	return &Extractor{lib: lib}
}

// ExtractTransaction builds a transaction from one classified email.
// Amount is the only mandatory field: without a parseable amount there
// is no transaction and nil is returned. Every other field falls back
// to a zero value or the merchant sentinel.
func (e *Extractor) ExtractTransaction(email RawEmail, cls ClassificationResult) *ExtractedTransaction {
	category := cls.MatchedCategory
	if category == "" {
		category = string(cls.EmailType)
	}
	text := email.Subject + " " + email.Content

	amount, ok := e.firstAmount(text, e.lib.Amounts[category])
	if !ok {
		return nil
	}

	txn := &ExtractedTransaction{
		Date:        email.Timestamp,
		Amount:      amount,
		Merchant:    e.merchant(text, category),
		Category:    category,
		PaymentMode: e.paymentMode(text),
		Reference:   firstGroup(e.lib.Reference, text),
		Type:        TransactionDebit,
	}

	if cls.EmailType == EmailTypeCreditCardTxn || cls.EmailType == EmailTypeCreditCard {
		e.fillCardFields(txn, email, text)
	}
	return txn
}

// ExtractPayment builds a payment confirmation record. Like
// transactions, a payment without a parseable amount is nil.
func (e *Extractor) ExtractPayment(email RawEmail) *PaymentRecord {
	text := email.Subject + " " + email.Content

	amount, ok := e.firstAmount(text, e.lib.PaymentAmount)
	if !ok {
		return nil
	}

	return &PaymentRecord{
		Date:      email.Timestamp,
		Amount:    amount,
		Mode:      e.paymentMode(text),
		Reference: firstGroup(e.lib.Reference, text),
		CardLast4: firstGroup(e.lib.CardNumber, text),
		Issuer:    e.lib.IssuerForSender(email.Sender),
	}
}

func (e *Extractor) fillCardFields(txn *ExtractedTransaction, email RawEmail, text string) {
	txn.CardLast4 = firstGroup(e.lib.CardNumber, text)
	txn.Issuer = e.lib.IssuerForSender(email.Sender)

	if v, ok := e.firstAmount(text, e.lib.AvailableLimit); ok {
		txn.AvailableLimit = v
	}
	if v, ok := e.firstAmount(text, e.lib.TotalLimit); ok {
		txn.TotalLimit = v
	} else if v, ok := e.firstAmount(text, e.lib.CreditLimit); ok {
		txn.TotalLimit = v
	}
	if raw := firstGroup(e.lib.DueDate, text); raw != "" {
		if due, err := parseAlertDate(raw); err == nil {
			txn.DueDate = &due
		}
	}
	if raw := firstGroup(e.lib.RewardPoints, text); raw != "" {
		if pts, err := strconv.Atoi(raw); err == nil {
			txn.RewardPoints = pts
		}
	}
}

// firstAmount returns the first parseable amount across the ordered
// pattern list. Commas are grouping separators in Indian alert text
// ("1,00,000.00") and carry no meaning, so they are stripped before
// parsing.
func (e *Extractor) firstAmount(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			raw := strings.ReplaceAll(m[1], ",", "")
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v <= 0 {
				continue
			}
			return v, true
		}
	}
	return 0, false
}

func (e *Extractor) merchant(text, category string) string {
	for _, re := range e.lib.Merchants[category] {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			name := strings.TrimSpace(m[1])
			if name != "" {
				return name
			}
		}
	}
	return MerchantUnknown
}

// paymentMode resolves the payment mode by keyword containment, first
// matching group wins.
func (e *Extractor) paymentMode(text string) PaymentMode {
	lower := strings.ToLower(text)
	for _, group := range e.lib.ModeGroups {
		for _, kw := range group.Keywords {
			if strings.Contains(lower, kw) {
				return group.Mode
			}
		}
	}
	return PaymentModeUnknown
}

func firstGroup(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var alertDateLayouts = []string{"02-01-2006", "02/01/2006", "2-1-2006", "2/1/2006"}

// parseAlertDate parses the DD-MM-YYYY style dates issuer alerts use.
func parseAlertDate(raw string) (time.Time, error) {
	var err error
	var t time.Time
	for _, layout := range alertDateLayouts {
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
