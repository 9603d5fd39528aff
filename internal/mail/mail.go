// File path: internal/mail/mail.go
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/nicodishanthj/ata_conselho/internal/common"
)

// ErrNotConfigured is returned by Send when no SMTP host is set.
var ErrNotConfigured = errors.New("mail: smtp not configured")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      string
	Timeout  time.Duration
}

// LoadConfig reads SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS, SMTP_FROM and
// SMTP_TLS (mandatory|opportunistic|none).
func LoadConfig() (Config, error) {
	cfg := Config{
		Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Username: strings.TrimSpace(os.Getenv("SMTP_USER")),
		Password: os.Getenv("SMTP_PASS"),
		From:     strings.TrimSpace(os.Getenv("SMTP_FROM")),
		TLS:      strings.ToLower(strings.TrimSpace(os.Getenv("SMTP_TLS"))),
	}
	if port := strings.TrimSpace(os.Getenv("SMTP_PORT")); port != "" {
		value, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("parse SMTP_PORT: %w", err)
		}
		cfg.Port = value
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 587
	}
	if c.From == "" {
		c.From = c.Username
	}
	if c.TLS == "" {
		c.TLS = "mandatory"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

func (c Config) Configured() bool {
	return c.Host != "" && c.From != ""
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Name string
	Data []byte
}

type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Client delivers messages over SMTP.
type Client struct {
	cfg  Config
	send func(ctx context.Context, msg *gomail.Msg) error
}

func New(cfg Config) *Client {
	cfg.applyDefaults()
	c := &Client{cfg: cfg}
	c.send = c.dialAndSend
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.cfg.Configured()
}

// Build assembles the MIME message without sending it.
func (c *Client) Build(message Message) (*gomail.Msg, error) {
	if len(message.To) == 0 {
		return nil, errors.New("mail: recipient required")
	}
	msg := gomail.NewMsg()
	if err := msg.From(c.cfg.From); err != nil {
		return nil, fmt.Errorf("mail: from: %w", err)
	}
	if err := msg.To(message.To...); err != nil {
		return nil, fmt.Errorf("mail: to: %w", err)
	}
	msg.Subject(message.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, message.Body)
	for _, att := range message.Attachments {
		if err := msg.AttachReader(att.Name, bytes.NewReader(att.Data)); err != nil {
			return nil, fmt.Errorf("mail: attach %s: %w", att.Name, err)
		}
	}
	return msg, nil
}

func (c *Client) Send(ctx context.Context, message Message) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	msg, err := c.Build(message)
	if err != nil {
		return err
	}
	if err := c.send(ctx, msg); err != nil {
		common.Logger().Warnw("mail: delivery failed", "to", message.To, "error", err)
		return fmt.Errorf("mail: send: %w", err)
	}
	common.Logger().Infow("mail: delivered", "to", message.To, "attachments", len(message.Attachments))
	return nil
}

func (c *Client) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(c.cfg.Port),
		gomail.WithTimeout(c.cfg.Timeout),
		gomail.WithTLSPolicy(tlsPolicy(c.cfg.TLS)),
	}
	if c.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(c.cfg.Username),
			gomail.WithPassword(c.cfg.Password),
		)
	}
	client, err := gomail.NewClient(c.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func tlsPolicy(value string) gomail.TLSPolicy {
	switch value {
	case "none", "off":
		return gomail.NoTLS
	case "opportunistic":
		return gomail.TLSOpportunistic
	default:
		return gomail.TLSMandatory
	}
}
