package services

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/parthsarkhelia/EYE/internal/database/models"
)

func TestExtractPlainText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "simple plain text",
			raw: "From: alerts@hdfcbank.net\r\n" +
				"Subject: Transaction Alert\r\n" +
				"Content-Type: text/plain\r\n" +
				"\r\n" +
				"Rs. 2499.00 spent at AMAZON",
			want: "Rs. 2499.00 spent at AMAZON",
		},
		{
			name: "multipart prefers plain part",
			raw: "From: alerts@icicibank.com\r\n" +
				"Subject: Alert\r\n" +
				"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
				"\r\n" +
				"--b1\r\n" +
				"Content-Type: text/plain\r\n" +
				"\r\n" +
				"plain body\r\n" +
				"--b1\r\n" +
				"Content-Type: text/html\r\n" +
				"\r\n" +
				"<p>html body</p>\r\n" +
				"--b1--\r\n",
			want: "plain body",
		},
		{
			name: "html only gets stripped",
			raw: "From: alerts@axisbank.com\r\n" +
				"Subject: Alert\r\n" +
				"Content-Type: text/html\r\n" +
				"\r\n" +
				"<html><body>Rs. <b>500.00</b> debited</body></html>",
			want: "Rs. 500.00 debited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.TrimSpace(extractPlainText([]byte(tt.raw)))
			if got != tt.want {
				t.Errorf("extractPlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripHTMLTags(t *testing.T) {
	got := stripHTMLTags("<div>Payment of <b>Rs. 5,000.00</b> received.<br/>Thank you.</div>")
	want := "Payment of Rs. 5,000.00 received. Thank you."
	if got != want {
		t.Errorf("stripHTMLTags() = %q, want %q", got, want)
	}
}

func TestFormatAddress(t *testing.T) {
	addr := &imap.Address{PersonalName: "HDFC Bank", MailboxName: "alerts", HostName: "hdfcbank.net"}
	if got := formatAddress(addr); got != "HDFC Bank <alerts@hdfcbank.net>" {
		t.Errorf("formatAddress() = %q", got)
	}

	bare := &imap.Address{MailboxName: "alerts", HostName: "hdfcbank.net"}
	if got := formatAddress(bare); got != "alerts@hdfcbank.net" {
		t.Errorf("formatAddress() = %q", got)
	}
}

func seedEmails(t *testing.T, svc *IngestService, userID, accountID uint, n int) {
	t.Helper()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		email := models.Email{
			AccountID: accountID,
			UserID:    userID,
			MessageID: strings.Repeat("x", i+1) + "@test",
			Subject:   "Transaction Alert",
			FromAddr:  "alerts@hdfcbank.net",
			Date:      base.AddDate(0, 0, i),
			Body:      "Rs. 100.00 spent at AMAZON",
		}
		if err := svc.db.Create(&email).Error; err != nil {
			t.Fatalf("seed email: %v", err)
		}
	}
}

func TestListEmailsPaginationAndOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	if err := db.AutoMigrate(&models.Email{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewIngestService(db, NewAccountService(db, []byte("test-encryption-key-32-bytes!!")))
	seedEmails(t, svc, 1, 1, 7)

	page1, err := svc.ListEmails(1, EmailListOptions{Page: 1, Limit: 5})
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if page1.Total != 7 {
		t.Errorf("Total = %d, want 7", page1.Total)
	}
	if len(page1.Emails) != 5 {
		t.Fatalf("page 1 size = %d, want 5", len(page1.Emails))
	}
	// Newest first.
	if !page1.Emails[0].Date.After(page1.Emails[1].Date) {
		t.Error("emails not ordered newest first")
	}

	page2, err := svc.ListEmails(1, EmailListOptions{Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("ListEmails page 2: %v", err)
	}
	if len(page2.Emails) != 2 {
		t.Errorf("page 2 size = %d, want 2", len(page2.Emails))
	}

	// Other users see nothing.
	other, err := svc.ListEmails(2, EmailListOptions{})
	if err != nil {
		t.Fatalf("ListEmails other user: %v", err)
	}
	if other.Total != 0 {
		t.Errorf("other user total = %d, want 0", other.Total)
	}
}

func TestRawEmailsForUserOrderAndConversion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	if err := db.AutoMigrate(&models.Email{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewIngestService(db, NewAccountService(db, []byte("test-encryption-key-32-bytes!!")))
	seedEmails(t, svc, 1, 1, 3)
	seedEmails(t, svc, 1, 2, 0)

	raw, err := svc.RawEmailsForUser(1, 0)
	if err != nil {
		t.Fatalf("RawEmailsForUser: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("got %d raw emails, want 3", len(raw))
	}
	// Oldest first for stable aggregation.
	for i := 1; i < len(raw); i++ {
		if raw[i].Timestamp.Before(raw[i-1].Timestamp) {
			t.Fatal("raw emails not ordered oldest first")
		}
	}
	if raw[0].Sender != "alerts@hdfcbank.net" || raw[0].Content == "" {
		t.Errorf("conversion lost fields: %+v", raw[0])
	}

	scoped, err := svc.RawEmailsForUser(1, 99)
	if err != nil {
		t.Fatalf("RawEmailsForUser scoped: %v", err)
	}
	if len(scoped) != 0 {
		t.Errorf("account scoping failed, got %d emails", len(scoped))
	}
}

func TestGetEmailByIDAndUserIDScoping(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	if err := db.AutoMigrate(&models.Email{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewIngestService(db, NewAccountService(db, []byte("test-encryption-key-32-bytes!!")))
	seedEmails(t, svc, 1, 1, 1)

	var stored models.Email
	if err := db.First(&stored).Error; err != nil {
		t.Fatalf("load seeded email: %v", err)
	}

	if _, err := svc.GetEmailByIDAndUserID(stored.ID, 1); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := svc.GetEmailByIDAndUserID(stored.ID, 2); err != ErrEmailNotFound {
		t.Errorf("cross-user lookup error = %v, want ErrEmailNotFound", err)
	}
}
