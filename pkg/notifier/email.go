package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

// EmailNotifier delivers codes and welcome messages over email via Resend.
type EmailNotifier struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

func NewEmailNotifier(apiKey, fromEmail, fromName string) (*EmailNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}
	if fromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	return &EmailNotifier{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

func (n *EmailNotifier) SendCode(ctx context.Context, destination, code string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail),
		To:      []string{destination},
		Subject: "Your verification code",
		Html:    codeEmailTemplate(code),
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("Failed to send code email to %s: %v", destination, err)
		return fmt.Errorf("failed to send code email: %w", err)
	}

	log.Printf("Code email sent to %s (ID: %s)", destination, sent.Id)
	return nil
}

func (n *EmailNotifier) SendWelcome(ctx context.Context, destination, name string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail),
		To:      []string{destination},
		Subject: "Welcome to AI Job Portal",
		Html:    welcomeEmailTemplate(name),
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("Failed to send welcome email to %s: %v", destination, err)
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	log.Printf("Welcome email sent to %s (ID: %s)", destination, sent.Id)
	return nil
}

func codeEmailTemplate(code string) string {
	return fmt.Sprintf(`
		<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
			<h2>Verification code</h2>
			<p>Use this code to continue. It expires shortly.</p>
			<p style="font-size: 32px; letter-spacing: 8px; font-weight: bold;">%s</p>
			<p style="color: #666;">If you didn't request this, you can ignore this email.</p>
		</div>`, code)
}

func welcomeEmailTemplate(name string) string {
	return fmt.Sprintf(`
		<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
			<h2>Welcome, %s!</h2>
			<p>Your employer account is ready. You can now post jobs and manage applications.</p>
		</div>`, name)
}
