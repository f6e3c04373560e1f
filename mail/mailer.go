package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned by Compose when no sender is configured.
var ErrNotConfigured = errors.New("mail: sender not configured")

// Config describes the SMTP relay and the reset link.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	SenderName  string
	Product     string
	FrontendURL string
	// LinkTTL is only quoted in the message body.
	LinkTTL time.Duration
}

// DefaultConfig targets Gmail with STARTTLS on port 587.
func DefaultConfig() Config {
	return Config{
		Host:        "smtp.gmail.com",
		Port:        587,
		SenderName:  "PharmaPilot",
		Product:     "PharmaPilot",
		FrontendURL: "http://localhost:5173",
		LinkTTL:     30 * time.Minute,
	}
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends reset emails over SMTP.
type SMTPMailer struct {
	cfg    Config
	logger zerolog.Logger
	send   sendFunc
	now    func() time.Time
}

// NewSMTPMailer returns a mailer for cfg. Zero fields fall back to
// DefaultConfig.
func NewSMTPMailer(cfg Config, logger zerolog.Logger) *SMTPMailer {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.SenderName == "" {
		cfg.SenderName = def.SenderName
	}
	if cfg.Product == "" {
		cfg.Product = def.Product
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = def.FrontendURL
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = def.LinkTTL
	}

	m := &SMTPMailer{
		cfg:    cfg,
		logger: logger.With().Str("component", "mail").Logger(),
		send:   smtp.SendMail,
		now:    time.Now,
	}
	m.logger.Info().
		Bool("has_email", cfg.Username != "").
		Bool("has_password", cfg.Password != "").
		Msg("smtp mailer loaded")
	return m
}

// Configured reports whether credentials are present.
func (m *SMTPMailer) Configured() bool {
	return m.cfg.Username != "" && m.cfg.Password != ""
}

// SendResetEmail delivers the reset link. It returns false without an error
// when the mailer is not configured.
func (m *SMTPMailer) SendResetEmail(ctx context.Context, address, token, displayName string) (bool, error) {
	if !m.Configured() {
		m.logger.Warn().Msg("smtp mailer not configured: missing username or password")
		return false, nil
	}

	msg, err := m.Compose(address, token, displayName)
	if err != nil {
		return false, err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	// net/smtp has no context support; abandon the wait when ctx ends.
	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.cfg.Username, []string{address}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Error().Err(err).Str("recipient", address).Msg("smtp error sending password reset email")
			return false, fmt.Errorf("mail: send: %w", err)
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}

	m.logger.Info().Str("recipient", address).Msg("password reset email sent")
	return true, nil
}

// Compose renders the multipart/alternative reset message.
func (m *SMTPMailer) Compose(address, token, displayName string) ([]byte, error) {
	if m.cfg.Username == "" {
		return nil, ErrNotConfigured
	}
	if displayName == "" {
		displayName = "User"
	}
	data := resetData{
		Product: m.cfg.Product,
		Name:    displayName,
		Link:    ResetLink(m.cfg.FrontendURL, token),
		Minutes: int(m.cfg.LinkTTL / time.Minute),
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	from := mail.Address{Name: m.cfg.SenderName, Address: m.cfg.Username}
	to := mail.Address{Address: address}

	var head bytes.Buffer
	fmt.Fprintf(&head, "From: %s\r\n", from.String())
	fmt.Fprintf(&head, "To: %s\r\n", to.String())
	fmt.Fprintf(&head, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Reset Your "+m.cfg.Product+" Password"))
	fmt.Fprintf(&head, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	head.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&head, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	textPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, err
	}
	if err := resetText.Execute(textPart, data); err != nil {
		return nil, err
	}

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
	if err != nil {
		return nil, err
	}
	if err := resetHTML.Execute(htmlPart, data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}

// ResetLink builds <frontendURL>/reset-password?token=<token>.
func ResetLink(frontendURL, token string) string {
	return frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

// LogMailer logs reset links instead of sending them.
type LogMailer struct {
	FrontendURL string
	Logger      zerolog.Logger
}

// SendResetEmail logs the link at info level and reports success.
func (m LogMailer) SendResetEmail(ctx context.Context, address, token, displayName string) (bool, error) {
	m.Logger.Info().
		Str("recipient", address).
		Str("name", displayName).
		Str("reset_link", ResetLink(m.FrontendURL, token)).
		Msg("password reset email (not sent)")
	return true, nil
}
