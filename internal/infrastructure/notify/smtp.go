package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPNotifier struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

func (n *SMTPNotifier) OrderPlaced(_ context.Context, c OrderConfirmation) error {
	if c.Email == "" {
		return fmt.Errorf("order %d: customer has no email", c.OrderID)
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.sendMail(addr, auth, n.cfg.From, []string{c.Email}, confirmationMessage(n.cfg.From, c)); err != nil {
		return fmt.Errorf("send confirmation for order %d: %w", c.OrderID, err)
	}
	return nil
}

func confirmationMessage(from string, c OrderConfirmation) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", c.Email)
	fmt.Fprintf(&b, "Subject: Order #%d confirmed\r\n", c.OrderID)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", c.Name)
	fmt.Fprintf(&b, "Your order #%d with %d item(s) has been placed.\r\n", c.OrderID, c.ItemCount)
	fmt.Fprintf(&b, "Total: %s\r\n", c.Total.StringFixed(2))
	if c.TransactionReference != "" {
		fmt.Fprintf(&b, "Payment reference: %s\r\n", c.TransactionReference)
	}
	return []byte(b.String())
}
