package analyzer

import (
	"regexp"
)

// PatternLibrary is the static table of regular expressions and keyword
// sets the classifier and extractor run against. It is built once at
// startup and never mutated; adding an issuer or a category is a change
// to this table only, extraction logic stays untouched.
type PatternLibrary struct {
	// Ordered most-specific first; first match wins.
	CardNumber      []*regexp.Regexp
	AvailableLimit  []*regexp.Regexp
	TotalLimit      []*regexp.Regexp
	CreditLimit     []*regexp.Regexp
	DueDate         []*regexp.Regexp
	StatementPeriod []*regexp.Regexp
	RewardPoints    []*regexp.Regexp
	PaymentAmount   []*regexp.Regexp
	PaymentModeRE   []*regexp.Regexp
	Reference       []*regexp.Regexp

	// Per-category ordered pattern lists.
	Amounts   map[string][]*regexp.Regexp
	Merchants map[string][]*regexp.Regexp

	// Content-fallback scoring patterns per category, in declaration
	// order (order breaks score ties).
	ContentCategories []ContentCategory

	// Sender-domain routing, in declaration order (order breaks ties).
	Categories []CategoryKeywords

	PromotionalKeywords []string
	TransactionKeywords []string
	PaymentKeywords     []string

	ModeGroups []ModeKeywords
}

// CategoryKeywords maps a category to the lowercase company/issuer
// keywords matched against the sender domain.
type CategoryKeywords struct {
	Name      string
	EmailType EmailType
	Companies []string
}

// ContentCategory holds the regex set scored against the body in the
// content-fallback path.
type ContentCategory struct {
	Name      string
	EmailType EmailType
	Patterns  []*regexp.Regexp
}

// ModeKeywords maps a payment mode to its containment keywords.
type ModeKeywords struct {
	Mode     PaymentMode
	Keywords []string
}

const amountRE = `([\d,]+(?:\.\d{1,2})?)`
const currencyRE = `(?:INR|Rs\.?|₹)`

var (
	cardNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Credit\s+Card|Card)(?:\s+ending(?:\s+in)?|(?:\s+no\.?|number)?)\s+(?:in\s+)?(?:[Xx*]+|XX)(\d{4})`),
		regexp.MustCompile(`(?i)(?:Credit\s+Card|Card)\s+XX(\d{4})`),
		regexp.MustCompile(`(?i)Card\s+ending\s+(?:in\s+)?(\d{4})`),
		regexp.MustCompile(`(?i)(?:Credit\s+Card|Card)\s+(?:ending\s+)?(?:[Xx*]+|XX)(\d{4})`),
		regexp.MustCompile(`(?i)(?:Credit\s+Card|Card)\s+account\s+(?:[Xx*]+|XX)(\d{4})`),
	}

	availableLimitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Available\s+(?:Credit\s+)?[Ll]imit(?:\s+on\s+your\s+card)?\s+(?:is|:)?\s*` + currencyRE + `\s*` + amountRE),
		regexp.MustCompile(`(?i)Available\s+limit:\s*` + currencyRE + `\s*` + amountRE),
	}

	totalLimitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Total\s+(?:Credit\s+)?Limit(?:\s+is)?\s*:?\s*` + currencyRE + `\s*` + amountRE),
	}

	creditLimitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)credit\s+limit[:\s]*` + currencyRE + `\s*` + amountRE),
	}

	dueDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:due|payment)\s*(?:date)?[:\s]*(\d{1,2}[-/]\d{1,2}[-/]\d{4})`),
	}

	statementPeriodPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:statement|billing)\s*period[:\s]*(\d{1,2}[-/]\d{1,2}[-/]\d{4})\s*(?:to|-)\s*(\d{1,2}[-/]\d{1,2}[-/]\d{4})`),
	}

	rewardPointsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:reward|points)[:\s]*(\d+)`),
	}

	paymentAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:payment\s+of|credited)\s+` + currencyRE + `\s*` + amountRE),
		regexp.MustCompile(`(?i)Amount\s+of\s+` + currencyRE + `\s*` + amountRE + `\s+credited`),
		regexp.MustCompile(`(?i)` + currencyRE + `\s*` + amountRE + `\s+credited`),
		regexp.MustCompile(`(?i)` + currencyRE + `\s*` + amountRE + `\s+has\s+been\s+credited`),
	}

	paymentModePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:via|through|mode:|method:)\s+(UPI|NEFT|IMPS|Net\s*Banking|wallet)`),
		regexp.MustCompile(`(?i)Payment(?:\s+received)?\s+via\s+([A-Za-z\s]+)`),
		regexp.MustCompile(`(?i)paid\s+(?:using|through|by)\s+([A-Za-z\s]+)`),
	}

	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Reference(?:\s+number)?[:.]\s*([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)Ref\s*(?:no)?\.?\s*:\s*([A-Z0-9]+)`),
	}

	amountPatterns = map[string][]*regexp.Regexp{
		"credit_cards": {
			regexp.MustCompile(`(?i)(?:transaction\s+of|charged|used\s+for|spent)\s*:?\s*` + currencyRE + `\s*` + amountRE),
			regexp.MustCompile(`(?i)` + currencyRE + `\s*` + amountRE + `\s+(?:spent|at|@)`),
		},
		"food_dining": {
			regexp.MustCompile(`(?i)Amount\s+paid:\s*` + currencyRE + `\s*` + amountRE),
			regexp.MustCompile(`(?i)(?:Amount|Total):\s*` + currencyRE + `\s*` + amountRE),
		},
		"travel_transport": {
			regexp.MustCompile(`(?i)(?:Fare|Amount)(?:\s+paid)?:\s*` + currencyRE + `\s*` + amountRE),
			regexp.MustCompile(`(?i)(?:Estimated\s+)?[Ff]are:\s*` + currencyRE + `\s*` + amountRE),
		},
		"shopping_retail": {
			regexp.MustCompile(`(?i)Total(?:\s+Amount)?:\s*` + currencyRE + `\s*` + amountRE),
			regexp.MustCompile(`(?i)Amount:\s*` + currencyRE + `\s*` + amountRE),
		},
		"financial": {
			regexp.MustCompile(`(?i)Total\s+(?:investment|value|amount):\s*` + currencyRE + `\s*` + amountRE),
			regexp.MustCompile(`(?i)` + currencyRE + `\s*` + amountRE + `\s+invested`),
			regexp.MustCompile(`(?i)Amount:\s*` + currencyRE + `\s*` + amountRE + `\s+redeemed`),
		},
	}

	merchantPatterns = map[string][]*regexp.Regexp{
		"credit_cards": {
			regexp.MustCompile(`(?i)Info:\s+([A-Za-z0-9\s&\-.]+?)(?:\.|$)`),
			regexp.MustCompile(`(?i)at\s+([A-Za-z0-9\s&\-.]+?)\s+(?:on\s+\d{2}-\d{2}-\d{4}|using)`),
			regexp.MustCompile(`(?i)at\s+([A-Za-z0-9\s&\-.]+?)\.\s+The\s+Available`),
		},
		"food_dining": {
			regexp.MustCompile(`(?i)Order\s+(?:Confirmed|Ready):\s+([A-Za-z0-9\s&\-'.]+?)\s+\(Order\s+#`),
			regexp.MustCompile(`(?i)order\s+from\s+([A-Za-z0-9\s&\-'.]+?)\s+is`),
			regexp.MustCompile(`(?i)from\s+([A-Za-z0-9\s&\-'.]+?)(?:\sis\s+confirmed|\sis\s+ready|\sis\s+on|!|\.|$)`),
			regexp.MustCompile(`(?i)([A-Za-z0-9\s&\-'.]+?)\s+Order\s+#[A-Z0-9]+`),
		},
		"travel_transport": {
			regexp.MustCompile(`(?i)^Your\s+([A-Za-z]+(?:\s+(?:Prime|Mini|Auto|Outstation|XL|Premier|bike))?\s+(?:booking|ride))`),
			regexp.MustCompile(`(?i)^([A-Za-z]+(?:\s+(?:Prime|Mini|Auto|Outstation|XL|Premier|bike))?\s+(?:booking|ride))`),
			regexp.MustCompile(`(?i)([A-Za-z]+(?:\s+(?:Prime|Mini|Auto|Outstation|XL|Premier)))\s+(?:confirmed|Ride)`),
		},
		"shopping_retail": {
			regexp.MustCompile(`(?i)^([A-Za-z]+(?:\.[a-z]+)?)\s+order\s+(?:#|ID:)\s*[A-Z0-9-]+`),
			regexp.MustCompile(`(?i)Order\s+(?:Confirmation|confirmed)\s+from\s+([A-Za-z\s]+)!`),
			regexp.MustCompile(`(?i)([A-Za-z]+(?:\.[A-Za-z]+)?)\s+order\s+#[A-Z0-9-]+`),
			regexp.MustCompile(`(?i)Order\s+(?:from|at)\s+([A-Za-z\s&\-.]+)`),
		},
		"financial": {
			regexp.MustCompile(`(?i)invested\s+in\s+([A-Za-z\s]+\s+Fund)`),
			regexp.MustCompile(`(?i)(?:shares\s+of|in)\s+([A-Z]+)\s+(?:at|@)`),
			regexp.MustCompile(`(?i)([A-Za-z\s]+\s+Fund)\s+(?:Units|NAV)`),
		},
	}

	contentCategoryPatterns = []ContentCategory{
		{
			Name:      "food_dining",
			EmailType: EmailTypeFoodDining,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)order\s+(?:confirmed|placed|delivered|ready)`),
				regexp.MustCompile(`(?i)(?:zomato|swiggy)`),
				regexp.MustCompile(`(?i)restaurant`),
				regexp.MustCompile(`(?i)delivery\s+partner`),
			},
		},
		{
			Name:      "travel_transport",
			EmailType: EmailTypeTravelTransport,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:ride|trip)\s+(?:completed|confirmed|receipt)`),
				regexp.MustCompile(`(?i)booking\s+(?:id|confirmed|ref)`),
				regexp.MustCompile(`(?i)(?:fare|driver|pickup|drop)`),
				regexp.MustCompile(`(?i)pnr[:\s]*[A-Z0-9]{10}`),
			},
		},
		{
			Name:      "shopping_retail",
			EmailType: EmailTypeShoppingRetail,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:shipped|out\s+for\s+delivery|delivered)`),
				regexp.MustCompile(`(?i)order\s+(?:#|ID:)\s*[A-Z0-9-]+`),
				regexp.MustCompile(`(?i)track\s+your\s+(?:order|package)`),
			},
		},
		{
			Name:      "financial",
			EmailType: EmailTypeFinancial,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:shares|units|nav|dividend)`),
				regexp.MustCompile(`(?i)(?:invested|redeemed|order\s+executed)`),
				regexp.MustCompile(`(?i)(?:nse|bse|mutual\s+fund)`),
			},
		},
	}

	senderCategories = []CategoryKeywords{
		{
			Name:      "credit_cards",
			EmailType: EmailTypeCreditCard,
			Companies: []string{
				"hdfc", "icici", "sbi", "axis", "kotak", "yes", "idfc",
				"indusind", "rbl", "federal", "dcb", "bandhan", "tata",
				"au", "standard_chartered", "hsbc", "dbs", "slice", "uni",
				"onecard", "amex", "citi",
			},
		},
		{Name: "food_dining", EmailType: EmailTypeFoodDining, Companies: []string{"zomato", "swiggy"}},
		{Name: "travel_transport", EmailType: EmailTypeTravelTransport, Companies: []string{"uber", "ola", "rapido"}},
		{
			Name:      "shopping_retail",
			EmailType: EmailTypeShoppingRetail,
			Companies: []string{
				"amazon", "flipkart", "myntra", "ajio", "bigbasket",
				"dmart", "tata cliq", "nykaa", "meesho",
			},
		},
		{Name: "financial", EmailType: EmailTypeFinancial, Companies: []string{"zerodha", "groww", "upstox"}},
	}

	promotionalKeywords = []string{
		"offer", "cashback", "reward points", "pre-approved", "discount",
		"sale", "exclusive deal", "limited time", "voucher", "coupon",
		"flat off", "% off", "unsubscribe",
	}

	transactionKeywords = []string{
		"transaction alert", "spent", "debited", "charged", "purchase",
		"has been used", "for using", "transaction of",
	}

	paymentKeywords = []string{
		"payment received", "payment confirmed", "thank you for your payment",
		"payment credited", "amount credited", "payment processed",
		"payment successful",
	}

	modeGroups = []ModeKeywords{
		{Mode: PaymentModeUPI, Keywords: []string{"upi", "bhim", "gpay", "google pay", "phonepe", "paytm upi"}},
		{Mode: PaymentModeNetBanking, Keywords: []string{"netbanking", "net banking", "neft", "imps", "rtgs"}},
		{Mode: PaymentModeCard, Keywords: []string{"card", "visa", "mastercard", "rupay"}},
		{Mode: PaymentModeWallet, Keywords: []string{"wallet", "paytm wallet", "amazon pay"}},
		{Mode: PaymentModeCash, Keywords: []string{"cash"}},
	}
)

// DefaultLibrary builds the built-in pattern library. The taxonomy it
// carries mirrors the issuer and brand set of the Indian alert corpus
// this service was calibrated on.
func DefaultLibrary() *PatternLibrary {
	return &PatternLibrary{
		CardNumber:          cardNumberPatterns,
		AvailableLimit:      availableLimitPatterns,
		TotalLimit:          totalLimitPatterns,
		CreditLimit:         creditLimitPatterns,
		DueDate:             dueDatePatterns,
		StatementPeriod:     statementPeriodPatterns,
		RewardPoints:        rewardPointsPatterns,
		PaymentAmount:       paymentAmountPatterns,
		PaymentModeRE:       paymentModePatterns,
		Reference:           referencePatterns,
		Amounts:             amountPatterns,
		Merchants:           merchantPatterns,
		ContentCategories:   contentCategoryPatterns,
		Categories:          senderCategories,
		PromotionalKeywords: promotionalKeywords,
		TransactionKeywords: transactionKeywords,
		PaymentKeywords:     paymentKeywords,
		ModeGroups:          modeGroups,
	}
}

// IssuerForSender resolves the card issuer from the sender address.
// Returns empty string when the sender matches no known issuer.
func (l *PatternLibrary) IssuerForSender(sender string) string {
	for _, cat := range l.Categories {
		if cat.Name != "credit_cards" {
			continue
		}
		for _, company := range cat.Companies {
			if containsFold(sender, company) {
				return company
			}
		}
	}
	return ""
}
