package services

import (
	"fmt"
	"log"
	"strings"

	"expedientes_app_go/config"
	"expedientes_app_go/models"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// SendEmail sends an email using the Resend API. In test mode the
// email is logged instead of sent.
func SendEmail(cfg *config.Config, email *Email) error {
	if cfg.EmailTestMode {
		log.Printf("[EMAIL TEST MODE] To: %v | Subject: %s\n%s", email.To, email.Subject, email.TextBody)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
	}
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %v", err)
	}

	log.Printf("Email sent successfully via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// SendEmailAsync sends an email in the background.
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}
	go func() {
		if err := SendEmail(cfg, emailCopy); err != nil {
			log.Printf("Error sending async email: %v", err)
		}
	}()
}

// BuildStaleDigestEmail builds the periodic digest listing cases with
// no recent movement.
func BuildStaleDigestEmail(to string, stale []models.Expediente, staleDays int) *Email {
	var lines []string
	for i := range stale {
		lines = append(lines, fmt.Sprintf("- %s (%s, última actuación %s)",
			stale[i].Folio, stale[i].Handler, stale[i].LastMovementDate))
	}

	body := fmt.Sprintf(
		"Hay %d expediente(s) sin movimiento en los últimos %d días:\n\n%s\n",
		len(stale), staleDays, strings.Join(lines, "\n"))

	return &Email{
		To:       []string{to},
		Subject:  fmt.Sprintf("Expedientes sin movimiento: %d", len(stale)),
		TextBody: body,
	}
}
