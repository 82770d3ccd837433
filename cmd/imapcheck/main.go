// Command imapcheck verifies IMAP connectivity for a mailbox before it
// is added as an ingestion source. It logs in, selects INBOX and prints
// the envelopes of the most recent messages.
package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

func main() {
	var (
		server   = flag.String("server", "", "IMAP server address, host:port")
		username = flag.String("user", "", "mailbox username")
		password = flag.String("pass", "", "mailbox password or app password")
		recent   = flag.Int("recent", 5, "number of recent envelopes to print")
	)
	flag.Parse()

	if *server == "" || *username == "" || *password == "" {
		log.Fatal("usage: imapcheck -server imap.example.com:993 -user you@example.com -pass secret")
	}

	host, _, err := net.SplitHostPort(*server)
	if err != nil {
		log.Fatalf("invalid server address %q, expected host:port", *server)
	}

	log.Printf("Connecting to %s...", *server)
	tlsConfig := &tls.Config{ServerName: host}
	c, err := client.DialTLS(*server, tlsConfig)
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer c.Logout()
	log.Println("Connected.")

	log.Printf("Logging in as %s...", *username)
	if err := c.Login(*username, *password); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.Println("Logged in.")

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		log.Fatalf("Failed to select INBOX: %v", err)
	}
	log.Printf("INBOX has %d messages", mbox.Messages)

	if mbox.Messages == 0 {
		log.Println("Mailbox is empty.")
		return
	}

	// Fetch envelopes of the most recent messages
	from := uint32(1)
	if mbox.Messages > uint32(*recent) {
		from = mbox.Messages - uint32(*recent) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope}, messages)
	}()

	fmt.Println("--------------------------------------------------")
	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		fmt.Printf("Subject: %s\n", msg.Envelope.Subject)
		if len(msg.Envelope.From) > 0 {
			from := msg.Envelope.From[0]
			fmt.Printf("From: %s <%s@%s>\n", from.PersonalName, from.MailboxName, from.HostName)
		}
		fmt.Printf("Date: %s\n", msg.Envelope.Date)
		fmt.Println("--------------------------------------------------")
	}

	if err := <-done; err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}

	log.Println("Connectivity check passed.")
}
