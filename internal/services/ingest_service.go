package services

import (
	"bytes"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	id "github.com/emersion/go-imap-id"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/parthsarkhelia/EYE/internal/analyzer"
	"github.com/parthsarkhelia/EYE/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrEmailNotFound indicates the email was not found
	ErrEmailNotFound = errors.New("email not found")
	// ErrIMAPConnectionFailed indicates IMAP connection failed
	ErrIMAPConnectionFailed = errors.New("IMAP connection failed")
	// ErrAccountDisabled indicates the mailbox account is disabled
	ErrAccountDisabled = errors.New("account is disabled")
)

// IngestService pulls alert emails from configured mailboxes into the
// store. It only keeps what the analysis pipeline reads: subject,
// sender, date and the plain-text body.
type IngestService struct {
	db             *gorm.DB
	accountService *AccountService
	logService     *LogService
}

// NewIngestService creates a new IngestService instance
func NewIngestService(db *gorm.DB, accountService *AccountService) *IngestService {
	return &IngestService{
		db:             db,
		accountService: accountService,
		logService:     NewLogService(db),
	}
}

// FetchedEmail represents an email fetched from IMAP
type FetchedEmail struct {
	UID       uint32
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	Body      string
}

// connectIMAP establishes an authenticated IMAP connection
func (s *IngestService) connectIMAP(account *models.EmailAccount) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", account.IMAPHost, account.IMAPPort)
	var c *client.Client

	dialer := &net.Dialer{Timeout: 10 * time.Second}

	if account.UseSSL {
		tlsConfig := &tls.Config{ServerName: account.IMAPHost}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
		}
	} else {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
		}
	}

	// Large windows take a while to page through.
	c.Timeout = 5 * time.Minute

	// Some providers require client identification before login.
	if ok, _ := c.Support("ID"); ok {
		idClient := id.NewClient(c)
		_, _ = idClient.ID(id.ID{
			id.FieldName:    "Bureau EYE",
			id.FieldVersion: "1.0.0",
			id.FieldVendor:  "Bureau EYE",
		})
	}

	if account.AuthType == models.AuthTypeOAuth2 {
		accessToken, _, err := s.accountService.GetDecryptedOAuthTokens(account)
		if err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: failed to get OAuth tokens: %v", ErrIMAPConnectionFailed, err)
		}

		if account.OAuthTokenExpiry.Before(time.Now()) {
			accessToken, err = s.refreshOAuthToken(account)
			if err != nil {
				c.Logout()
				return nil, fmt.Errorf("%w: failed to refresh OAuth token: %v", ErrIMAPConnectionFailed, err)
			}
		}

		saslClient := NewXOAuth2Client(account.Username, accessToken)
		if err := c.Authenticate(saslClient); err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: XOAUTH2 authentication failed: %v", ErrIMAPConnectionFailed, err)
		}
	} else {
		password, err := s.accountService.GetDecryptedPassword(account)
		if err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
		}

		if err := c.Login(account.Username, password); err != nil {
			c.Logout()
			return nil, fmt.Errorf("%w: login failed: %v", ErrIMAPConnectionFailed, err)
		}
	}

	return c, nil
}

// XOAuth2Client implements the SASL XOAUTH2 mechanism
type XOAuth2Client struct {
	Username    string
	AccessToken string
}

// NewXOAuth2Client creates a new XOAUTH2 SASL client
func NewXOAuth2Client(username, accessToken string) *XOAuth2Client {
	return &XOAuth2Client{
		Username:    username,
		AccessToken: accessToken,
	}
}

// Start begins the XOAUTH2 authentication
func (c *XOAuth2Client) Start() (mech string, ir []byte, err error) {
	ir = []byte(fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", c.Username, c.AccessToken))
	return "XOAUTH2", ir, nil
}

// Next handles server challenges (XOAUTH2 doesn't have additional challenges)
func (c *XOAuth2Client) Next(challenge []byte) (response []byte, err error) {
	return nil, nil
}

// refreshOAuthToken refreshes the OAuth access token using the refresh token
func (s *IngestService) refreshOAuthToken(account *models.EmailAccount) (string, error) {
	_, refreshToken, err := s.accountService.GetDecryptedOAuthTokens(account)
	if err != nil {
		return "", err
	}

	if refreshToken == "" {
		return "", fmt.Errorf("no refresh token available")
	}

	if account.OAuthProvider == "google" {
		return s.refreshGoogleToken(account, refreshToken)
	}

	return "", fmt.Errorf("unsupported OAuth provider: %s", account.OAuthProvider)
}

// refreshGoogleToken refreshes a Google OAuth token
func (s *IngestService) refreshGoogleToken(account *models.EmailAccount, refreshToken string) (string, error) {
	// Per-user OAuth client from settings, environment as fallback.
	var settings models.UserSettings
	if err := s.db.Where("user_id = ?", account.UserID).First(&settings).Error; err == nil {
		if settings.GoogleClientID != "" && settings.GoogleClientSecret != "" {
			return s.doGoogleTokenRefresh(account, settings.GoogleClientID, settings.GoogleClientSecret, refreshToken)
		}
	}

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")

	if clientID == "" || clientSecret == "" {
		return "", fmt.Errorf("Google OAuth credentials not configured")
	}

	return s.doGoogleTokenRefresh(account, clientID, clientSecret, refreshToken)
}

// doGoogleTokenRefresh performs the actual token refresh request
func (s *IngestService) doGoogleTokenRefresh(account *models.EmailAccount, clientID, clientSecret, refreshToken string) (string, error) {
	resp, err := http.PostForm("https://oauth2.googleapis.com/token", map[string][]string{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh failed with status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	expiry := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	if err := s.accountService.UpdateOAuthTokens(account.ID, tokenResp.AccessToken, "", expiry); err != nil {
		return "", err
	}

	return tokenResp.AccessToken, nil
}

// FetchNewEmails fetches emails from an account within the given
// window. days: -1 fetches everything, 0 continues from the last sync,
// >0 fetches that many days back. Already stored messages are skipped.
func (s *IngestService) FetchNewEmails(userID, accountID uint, days int) ([]FetchedEmail, error) {
	account, err := s.accountService.GetAccountByIDAndUserID(accountID, userID)
	if err != nil {
		return nil, err
	}

	if !account.Enabled {
		return nil, ErrAccountDisabled
	}

	c, err := s.connectIMAP(account)
	if err != nil {
		s.logService.LogError(userID, models.LogModuleIngest, "fetch", "IMAP connection failed", map[string]interface{}{
			"account_id": accountID,
			"error":      err.Error(),
		})
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %v", err)
	}

	if mbox.Messages == 0 {
		return []FetchedEmail{}, nil
	}

	criteria := imap.NewSearchCriteria()
	switch {
	case days == -1:
		// No criteria, everything.
	case days == 0:
		if !account.LastSyncAt.IsZero() {
			sinceDate := account.LastSyncAt.AddDate(0, 0, -1)
			criteria.Since = time.Date(sinceDate.Year(), sinceDate.Month(), sinceDate.Day(), 0, 0, 0, 0, time.UTC)
		}
	default:
		sinceDate := time.Now().AddDate(0, 0, -days)
		criteria.Since = time.Date(sinceDate.Year(), sinceDate.Month(), sinceDate.Day(), 0, 0, 0, 0, time.UTC)
	}

	seqNums, err := c.Search(criteria)
	if err != nil || len(seqNums) == 0 {
		seqNums = make([]uint32, mbox.Messages)
		for i := uint32(1); i <= mbox.Messages; i++ {
			seqNums[i-1] = i
		}
	}

	// Step 1: envelopes and UIDs.
	type msgMeta struct {
		uid       uint32
		messageID string
		envelope  *imap.Envelope
	}
	var allMetas []msgMeta

	const batchSize = 10
	for i := 0; i < len(seqNums); i += batchSize {
		batchEnd := i + batchSize
		if batchEnd > len(seqNums) {
			batchEnd = len(seqNums)
		}
		batch := seqNums[i:batchEnd]

		seqSet := new(imap.SeqSet)
		seqSet.AddNum(batch...)

		items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope}
		messages := make(chan *imap.Message, batchSize)
		done := make(chan error, 1)

		go func() {
			done <- c.Fetch(seqSet, items, messages)
		}()

		for msg := range messages {
			if msg == nil || msg.Envelope == nil {
				continue
			}
			messageID := msg.Envelope.MessageId
			if messageID == "" {
				messageID = fmt.Sprintf("uid:%d", msg.Uid)
			}
			allMetas = append(allMetas, msgMeta{
				uid:       msg.Uid,
				messageID: messageID,
				envelope:  msg.Envelope,
			})
		}
		<-done
	}

	// Step 2: drop messages already in the store.
	existingIDs := make(map[string]bool)
	const dbBatchSize = 500
	for i := 0; i < len(allMetas); i += dbBatchSize {
		end := i + dbBatchSize
		if end > len(allMetas) {
			end = len(allMetas)
		}
		ids := make([]string, 0, end-i)
		for _, meta := range allMetas[i:end] {
			ids = append(ids, meta.messageID)
		}
		var existingEmails []models.Email
		s.db.Select("message_id").Where("account_id = ? AND message_id IN ?", accountID, ids).Find(&existingEmails)
		for _, e := range existingEmails {
			existingIDs[e.MessageID] = true
		}
	}

	var newMetas []msgMeta
	for _, meta := range allMetas {
		if !existingIDs[meta.messageID] {
			newMetas = append(newMetas, meta)
		}
	}

	if len(newMetas) == 0 {
		return []FetchedEmail{}, nil
	}

	// Step 3: bodies for the new messages, same connection.
	var uidsToFetch []uint32
	for _, meta := range newMetas {
		uidsToFetch = append(uidsToFetch, meta.uid)
	}

	section := &imap.BodySectionName{Peek: true}
	uidToBody := make(map[uint32][]byte)

	for i := 0; i < len(uidsToFetch); i += batchSize {
		batchEnd := i + batchSize
		if batchEnd > len(uidsToFetch) {
			batchEnd = len(uidsToFetch)
		}
		batch := uidsToFetch[i:batchEnd]

		uidSet := new(imap.SeqSet)
		uidSet.AddNum(batch...)

		items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}
		messages := make(chan *imap.Message, batchSize)
		done := make(chan error, 1)

		go func() {
			done <- c.UidFetch(uidSet, items, messages)
		}()

		for msg := range messages {
			if msg == nil {
				continue
			}
			for _, literal := range msg.Body {
				content, err := io.ReadAll(literal)
				if err == nil && len(content) > 0 {
					uidToBody[msg.Uid] = content
				}
			}
		}

		if err := <-done; err != nil {
			s.logService.LogWarn(userID, models.LogModuleIngest, "fetch", "UidFetch error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Step 4: assemble.
	var fetched []FetchedEmail
	for _, meta := range newMetas {
		email := FetchedEmail{
			UID:       meta.uid,
			MessageID: meta.messageID,
			Subject:   meta.envelope.Subject,
			Date:      meta.envelope.Date,
		}
		if len(meta.envelope.From) > 0 {
			email.From = formatAddress(meta.envelope.From[0])
		}
		if body, ok := uidToBody[meta.uid]; ok {
			email.Body = extractPlainText(body)
		}
		if email.MessageID == "" {
			sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", email.Date.UnixNano(), email.Subject, email.From)))
			email.MessageID = "gen:" + hex.EncodeToString(sum[:16])
		}
		fetched = append(fetched, email)
	}

	return fetched, nil
}

// SyncAccount fetches the account's window and stores the new messages.
// Returns the number of emails saved.
func (s *IngestService) SyncAccount(userID, accountID uint) (int, error) {
	account, err := s.accountService.GetAccountByIDAndUserID(accountID, userID)
	if err != nil {
		return 0, err
	}

	fetched, err := s.FetchNewEmails(userID, accountID, account.SyncDays)
	if err != nil {
		s.logService.LogIngestRun(userID, accountID, 0, err)
		return 0, err
	}

	saved := 0
	for _, f := range fetched {
		email := models.Email{
			AccountID: accountID,
			UserID:    userID,
			MessageID: f.MessageID,
			Subject:   f.Subject,
			FromAddr:  f.From,
			Date:      f.Date,
			Body:      f.Body,
		}
		if err := s.db.Create(&email).Error; err != nil {
			// Unique message_id races with concurrent syncs; skip dupes.
			continue
		}
		saved++
	}

	s.db.Model(account).Update("last_sync_at", time.Now())
	s.logService.LogIngestRun(userID, accountID, saved, nil)

	return saved, nil
}

// GetEmailByIDAndUserID retrieves a stored email, scoped to its owner
func (s *IngestService) GetEmailByIDAndUserID(id, userID uint) (*models.Email, error) {
	var email models.Email
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}
	return &email, nil
}

// EmailListOptions controls stored-email listing
type EmailListOptions struct {
	AccountID uint
	Page      int
	Limit     int
}

// EmailListResult is one page of stored emails
type EmailListResult struct {
	Total  int64          `json:"total"`
	Emails []models.Email `json:"emails"`
}

// ListEmails returns stored emails for a user, newest first
func (s *IngestService) ListEmails(userID uint, opts EmailListOptions) (*EmailListResult, error) {
	db := s.db.Model(&models.Email{}).Where("user_id = ?", userID)
	if opts.AccountID > 0 {
		db = db.Where("account_id = ?", opts.AccountID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}

	var emails []models.Email
	if err := db.Order("date DESC").Offset((opts.Page - 1) * opts.Limit).Limit(opts.Limit).Find(&emails).Error; err != nil {
		return nil, err
	}

	return &EmailListResult{Total: total, Emails: emails}, nil
}

// DeleteEmail removes a stored email
func (s *IngestService) DeleteEmail(id, userID uint) error {
	email, err := s.GetEmailByIDAndUserID(id, userID)
	if err != nil {
		return err
	}
	return s.db.Delete(email).Error
}

// RawEmailsForUser loads the user's stored emails as pipeline input,
// oldest first so aggregation order is stable.
func (s *IngestService) RawEmailsForUser(userID uint, accountID uint) ([]analyzer.RawEmail, error) {
	db := s.db.Where("user_id = ?", userID)
	if accountID > 0 {
		db = db.Where("account_id = ?", accountID)
	}

	var emails []models.Email
	if err := db.Order("date ASC, id ASC").Find(&emails).Error; err != nil {
		return nil, err
	}

	raw := make([]analyzer.RawEmail, 0, len(emails))
	for _, e := range emails {
		raw = append(raw, analyzer.RawEmail{
			Subject:   e.Subject,
			Content:   e.Body,
			Sender:    e.FromAddr,
			Timestamp: e.Date,
		})
	}
	return raw, nil
}

// formatAddress formats an IMAP address to a string
func formatAddress(addr *imap.Address) string {
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", addr.PersonalName, addr.MailboxName, addr.HostName)
	}
	return fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
}

// extractPlainText pulls the text/plain part out of a raw RFC 822
// message. Multipart messages are walked recursively; a message with
// only an HTML part gets the HTML stripped to its text.
func extractPlainText(raw []byte) string {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil {
		// Fall back to net/mail for slightly malformed messages.
		m, err := mail.ReadMessage(bytes.NewReader(raw))
		if err != nil {
			return ""
		}
		b, _ := io.ReadAll(m.Body)
		return string(b)
	}

	var plain, html string
	walkEntity(entity, &plain, &html)
	if plain != "" {
		return plain
	}
	return stripHTMLTags(html)
}

func walkEntity(entity *message.Entity, plain, html *string) {
	mediaType, _, _ := entity.Header.ContentType()

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := entity.MultipartReader()
		for {
			part, err := mr.NextPart()
			if err != nil {
				return
			}
			walkEntity(part, plain, html)
		}
	case mediaType == "text/plain" && *plain == "":
		body, _ := io.ReadAll(entity.Body)
		*plain = string(body)
	case mediaType == "text/html" && *html == "":
		body, _ := io.ReadAll(entity.Body)
		*html = string(body)
	}
}

// stripHTMLTags removes markup so alert text in HTML-only mail is
// still searchable by the pattern library.
func stripHTMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
