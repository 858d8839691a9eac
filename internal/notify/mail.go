package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers confirmation links over a plain SMTP relay. The link
// is built from the deployment's public base URL so it resolves for the
// reserver, not just inside the cluster.
type SMTPMailer struct {
	addr    string
	from    string
	baseURL string
}

// NewSMTPMailer creates a mailer for the given relay address (host:port),
// envelope sender and public base URL.
func NewSMTPMailer(addr, from, baseURL string) *SMTPMailer {
	return &SMTPMailer{
		addr:    addr,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SendConfirmation mails the single-use confirmation link to the reserver.
func (m *SMTPMailer) SendConfirmation(_ context.Context, to, token string) error {
	link := fmt.Sprintf("%s/api/reservations/confirm/%s", m.baseURL, token)
	body := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: Confirm your reservation",
		"",
		"Follow this link to confirm your reservation:",
		link,
		"",
		"The link works once and expires if unused.",
	}, "\r\n")

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send confirmation mail: %w", err)
	}
	return nil
}
