package services

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/AzimPial/Chat-Us/internal/config"
	"github.com/AzimPial/Chat-Us/internal/logging"
)

// Email represents an email to be sent.
type Email struct {
	To      string
	Subject string
	Text    string
}

// EmailProvider is the interface for sending emails.
type EmailProvider interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService sends relationship notification mail. Delivery is best-effort;
// callers fire it asynchronously and only log failures.
type EmailService struct {
	provider    EmailProvider
	fromAddress string
	fromName    string
	baseURL     string
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	var provider EmailProvider
	switch cfg.Provider {
	case "resend":
		provider = NewResendProvider(cfg.ResendAPIKey, cfg.FromName, cfg.FromAddress)
	default:
		provider = NewConsoleProvider()
	}

	return &EmailService{
		provider:    provider,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		baseURL:     cfg.BaseURL,
	}
}

func (s *EmailService) SendFriendRequestReceived(ctx context.Context, toEmail, senderName string) error {
	text := fmt.Sprintf(`%s sent you a friend request.

Open %s to accept or decline it.

--
%s`, senderName, s.baseURL, s.fromName)

	return s.provider.Send(ctx, &Email{
		To:      toEmail,
		Subject: fmt.Sprintf("%s wants to chat with you", senderName),
		Text:    text,
	})
}

func (s *EmailService) SendFriendRequestAccepted(ctx context.Context, toEmail, accepterName string) error {
	text := fmt.Sprintf(`%s accepted your friend request. You can now chat at %s.

--
%s`, accepterName, s.baseURL, s.fromName)

	return s.provider.Send(ctx, &Email{
		To:      toEmail,
		Subject: fmt.Sprintf("%s accepted your friend request", accepterName),
		Text:    text,
	})
}

// ResendProvider sends emails through the Resend API.
type ResendProvider struct {
	client *resend.Client
	from   string
}

func NewResendProvider(apiKey, fromName, fromAddress string) *ResendProvider {
	return &ResendProvider{
		client: resend.NewClient(apiKey),
		from:   fmt.Sprintf("%s <%s>", fromName, fromAddress),
	}
}

func (p *ResendProvider) Send(ctx context.Context, email *Email) error {
	params := &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Text:    email.Text,
	}

	if _, err := p.client.Emails.Send(params); err != nil {
		return fmt.Errorf("sending email via Resend: %w", err)
	}

	logging.Info("Email sent via Resend", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

// ConsoleProvider logs emails instead of sending them (development).
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) Send(ctx context.Context, email *Email) error {
	logging.Info("Email (console provider)", map[string]interface{}{
		"to":      email.To,
		"subject": email.Subject,
		"body":    email.Text,
	})
	return nil
}
