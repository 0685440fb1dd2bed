package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailSender delivers notifications over SMTP. Authentication uses plain
// auth, and smtp.SendMail upgrades the connection with STARTTLS when the
// server advertises it.
type EmailSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string

	// send is swapped out in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender creates an EmailSender for the given SMTP server and
// recipients.
func NewEmailSender(host string, port int, username, password, from string, to []string) *EmailSender {
	return &EmailSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

// Send delivers the notification as a plain-text email with the title as
// subject.
func (e *EmailSender) Send(_ context.Context, title, message string) error {
	if len(e.to) == 0 {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", title)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(message)

	if err := e.send(addr, auth, e.from, e.to, []byte(b.String())); err != nil {
		return fmt.Errorf("email: send via %s: %w", addr, err)
	}
	return nil
}

// Name returns the sender identifier.
func (e *EmailSender) Name() string {
	return "email"
}
