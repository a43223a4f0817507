package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/pamarcar/stays/internal/config"
	"github.com/rs/zerolog"
)

// Service handles email sending with SMTP
type Service struct {
	config    config.EmailConfig
	templates *template.Template
	logger    zerolog.Logger
}

// AccessLinkData holds data for rendering the traveler access email template
type AccessLinkData struct {
	GuestName    string
	PlatformCode string
	CheckIn      string
	CheckOut     string
	CurrentYear  int
}

const accessLinkTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>Your stay is confirmed</h2>
  <p>Hello {{.GuestName}},</p>
  <p>The traveler registry for booking <strong>{{.PlatformCode}}</strong> has been completed.</p>
  <p>Check-in: {{.CheckIn}}<br>Check-out: {{.CheckOut}}</p>
  <p>You will receive the apartment access instructions shortly before your arrival.</p>
  <p style="color: #999; font-size: 12px;">&copy; {{.CurrentYear}}</p>
</body>
</html>
`

// NewService creates a new email service instance
func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	// Validate sender email address if email is enabled
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.New("access_link").Parse(accessLinkTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}, nil
}

// SendAccessLink notifies a guest that their stay registry is complete.
func (s *Service) SendAccessLink(to string, data AccessLinkData) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	// If email is disabled, just log and return
	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("platform_code", data.PlatformCode).
			Msg("email service disabled, skipping access link email")
		return nil
	}

	data.CurrentYear = time.Now().Year()
	htmlBody, err := s.renderTemplate("access_link", data)
	if err != nil {
		return fmt.Errorf("failed to render access link template: %w", err)
	}

	subject := fmt.Sprintf("Your stay %s - access instructions", data.PlatformCode)
	if err := s.send(to, subject, htmlBody); err != nil {
		return fmt.Errorf("failed to send access link email: %w", err)
	}

	s.logger.Info().
		Str("to", to).
		Str("platform_code", data.PlatformCode).
		Msg("access link email sent successfully")
	return nil
}

// validateEmailAddress validates an email address for format and header injection attempts
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}

	// Check for header injection attempts (newlines)
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}

	return nil
}

// send sends an email with the given subject and HTML body over SMTP with STARTTLS
func (s *Service) send(to, subject, htmlBody string) error {
	from := s.config.From
	headers := make(map[string]string)
	headers["From"] = from
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var msg bytes.Buffer
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = client.Close() }()

	tlsConfig := &tls.Config{
		ServerName: s.config.Host,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to quit SMTP connection: %w", err)
	}

	return nil
}

// renderTemplate renders an email template with the given data
func (s *Service) renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
