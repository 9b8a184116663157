package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/utils"
)

const smtpTimeout = 15 * time.Second

var (
	ErrMailNotConfigured = errors.New("smtp is not configured")
	// ErrMailKeyMissing means the saved password is encrypted but no key is set.
	ErrMailKeyMissing = errors.New("smtp password is encrypted but MAIL_CONFIG_ENCRYPTION_KEY is not set")
)

type MailSettingsSource interface {
	GetMailSettings(ctx context.Context) (*models.MailSettings, error)
}

// Mailer is the email Sink. The SMTP account saved by an admin wins over the
// environment defaults.
type Mailer struct {
	settings MailSettingsSource
	defaults models.MailSettings
	box      *utils.SecretBox
	send     func(d *mail.Dialer, m *mail.Message) error
}

// NewMailer builds the email Sink. box may be nil when stored passwords are
// kept in plain text.
func NewMailer(settings MailSettingsSource, defaults models.MailSettings, box *utils.SecretBox) *Mailer {
	return &Mailer{
		settings: settings,
		defaults: defaults,
		box:      box,
		send: func(d *mail.Dialer, m *mail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

// Settings returns the effective SMTP account with the password decrypted.
func (m *Mailer) Settings(ctx context.Context) (models.MailSettings, error) {
	if m.settings != nil {
		saved, err := m.settings.GetMailSettings(ctx)
		if err != nil {
			return models.MailSettings{}, err
		}
		if saved.Complete() {
			cfg := *saved
			if m.box == nil && utils.Sealed(cfg.Password) {
				return models.MailSettings{}, ErrMailKeyMissing
			}
			if m.box != nil {
				dec, err := m.box.Open(cfg.Password)
				if err != nil {
					return models.MailSettings{}, fmt.Errorf("decrypt smtp password: %w", err)
				}
				cfg.Password = dec
			}
			return cfg, nil
		}
	}
	return m.defaults, nil
}

// AdminAddress is where new-order mail for the store operator goes.
func (m *Mailer) AdminAddress(ctx context.Context) string {
	cfg, err := m.Settings(ctx)
	if err != nil {
		log.Printf("[mail] resolve admin address: %v", err)
		return m.defaults.AdminNotify
	}
	return cfg.AdminNotify
}

func (m *Mailer) Deliver(ctx context.Context, n *models.Notification) error {
	if n.To == "" {
		return errors.New("notification has no recipient")
	}
	cfg, err := m.Settings(ctx)
	if err != nil {
		return err
	}
	if !cfg.Complete() {
		return ErrMailNotConfigured
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", cfg.From)
	msg.SetHeader("To", n.To)
	msg.SetHeader("Subject", n.Subject)
	msg.SetBody("text/html", n.Body)

	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	d.Timeout = smtpTimeout
	return m.send(d, msg)
}
