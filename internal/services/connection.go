package services

import (
	"fmt"
	"time"

	"github.com/emersion/go-imap/client"
)

const (
	connectionTimeout = 10 * time.Second
)

// buildAddress builds a host:port address string
func buildAddress(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// testIMAPConnectionInternal dials the IMAP server and attempts a
// login, then logs out immediately. Used by the account connection
// test endpoint before credentials are saved.
func testIMAPConnectionInternal(addr, username, password string, useSSL bool) ConnectionTestResult {
	var c *client.Client
	var err error

	if useSSL {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Failed to connect to IMAP server: %v", err),
		}
	}
	defer c.Logout()

	c.Timeout = connectionTimeout

	if err := c.Login(username, password); err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("IMAP authentication failed: %v", err),
		}
	}

	return ConnectionTestResult{
		Success: true,
		Message: "IMAP connection and authentication successful",
	}
}
