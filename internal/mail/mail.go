// Package mail sends the transactional emails of the store over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookworm/internal/entity"
	"bookworm/internal/format"

	gomail "github.com/wneessen/go-mail"
)

// Mailer is implemented by SMTP and Noop.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, user entity.User, order entity.Order) error
	SendNewsletterWelcome(ctx context.Context, email string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTP delivers messages through a mail server.
type SMTP struct {
	cfg     Config
	deliver func(ctx context.Context, msg *gomail.Msg) error
}

func NewSMTP(cfg Config) *SMTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &SMTP{cfg: cfg}
	s.deliver = s.dialAndSend
	return s
}

func (s *SMTP) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTimeout(s.cfg.Timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthLogin),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	c, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (s *SMTP) send(ctx context.Context, op, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		slog.Error("failed to set From address", slog.String("op", op), slog.String("from", s.cfg.From), slog.String("err", err.Error()))
		return err
	}
	if err := msg.To(to); err != nil {
		slog.Error("failed to set To address", slog.String("op", op), slog.String("to", to), slog.String("err", err.Error()))
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := s.deliver(ctx, msg); err != nil {
		slog.Error("failed to send mail", slog.String("op", op), slog.String("to", to), slog.String("err", err.Error()))
		return err
	}
	slog.Info("mail sent", slog.String("op", op), slog.String("to", to))
	return nil
}

func (s *SMTP) SendOrderConfirmation(ctx context.Context, user entity.User, order entity.Order) error {
	subject := fmt.Sprintf("Your Bookworm order #%s", order.ID)
	return s.send(ctx, "mail.SendOrderConfirmation", user.Email, subject, OrderConfirmationBody(user, order))
}

func (s *SMTP) SendNewsletterWelcome(ctx context.Context, email string) error {
	return s.send(ctx, "mail.SendNewsletterWelcome", email, "Welcome to the Bookworm newsletter", newsletterBody)
}

// OrderConfirmationBody is the plain text of the order confirmation.
func OrderConfirmationBody(user entity.User, order entity.Order) string {
	var b strings.Builder
	name := user.Name
	if name == "" {
		name = "reader"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Thanks for your order #%s. We will let you know when it ships.\n\n", order.ID)
	for _, item := range order.OrderItems {
		title := "Book #" + item.BookID.String()
		if item.Book != nil && item.Book.Title != "" {
			title = item.Book.Title
		}
		fmt.Fprintf(&b, "  %d x %s  %s\n", item.Quantity, title, format.Currency(item.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", format.Currency(order.TotalAmount.Float()))
	if order.ShippingAddress != "" {
		fmt.Fprintf(&b, "Shipping to: %s\n", order.ShippingAddress)
	}
	b.WriteString("\nHappy reading,\nThe Bookworm team\n")
	return b.String()
}

const newsletterBody = `Hi,

Thanks for subscribing to the Bookworm newsletter. You will hear from us about
new arrivals, staff picks and the occasional sale.

Happy reading,
The Bookworm team
`

// Noop drops every message. Used when no mail server is configured.
type Noop struct{}

func (Noop) SendOrderConfirmation(context.Context, entity.User, entity.Order) error { return nil }

func (Noop) SendNewsletterWelcome(context.Context, string) error { return nil }
