package service

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/utils"
)

// MailSettingsView is the admin-facing form of MailSettings. The password
// never leaves the server.
type MailSettingsView struct {
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Username    string    `json:"username"`
	PasswordSet bool      `json:"passwordSet"`
	From        string    `json:"from"`
	AdminNotify string    `json:"adminNotify"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MailSettingsInput struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	// Empty keeps the stored password.
	Password    string `json:"password"`
	From        string `json:"from"`
	AdminNotify string `json:"adminNotify"`
}

type MailSettingsService struct {
	store MailSettingsStore
	box   *utils.SecretBox // nil stores the password in plain text
	now   func() time.Time
}

func NewMailSettingsService(store MailSettingsStore, box *utils.SecretBox) *MailSettingsService {
	if box == nil {
		log.Println("[mail] MAIL_CONFIG_ENCRYPTION_KEY not set; SMTP password is stored unencrypted")
	}
	return &MailSettingsService{store: store, box: box, now: time.Now}
}

func (s *MailSettingsService) Get(ctx context.Context) (*MailSettingsView, error) {
	cfg, err := s.store.GetMailSettings(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &MailSettingsView{}, nil
	}
	return view(cfg), nil
}

func (s *MailSettingsService) Save(ctx context.Context, in MailSettingsInput) (*MailSettingsView, error) {
	in.Host = strings.TrimSpace(in.Host)
	in.From = strings.TrimSpace(in.From)
	in.AdminNotify = strings.TrimSpace(in.AdminNotify)
	if in.Host == "" {
		return nil, invalid("host is required")
	}
	if in.Port <= 0 || in.Port > 65535 {
		return nil, invalid("port must be between 1 and 65535")
	}
	if _, err := mail.ParseAddress(in.From); err != nil {
		return nil, invalid("from must be an email address")
	}
	if in.AdminNotify != "" {
		if _, err := mail.ParseAddress(in.AdminNotify); err != nil {
			return nil, invalid("adminNotify must be an email address")
		}
	}

	existing, err := s.store.GetMailSettings(ctx)
	if err != nil {
		return nil, err
	}
	password := in.Password
	switch {
	case password == "" && existing != nil:
		password = existing.Password
	case password != "" && s.box != nil:
		if password, err = s.box.Seal(password); err != nil {
			return nil, fmt.Errorf("encrypt smtp password: %w", err)
		}
	}

	cfg := &models.MailSettings{
		ID:          models.MailSettingsID,
		Host:        in.Host,
		Port:        in.Port,
		Username:    strings.TrimSpace(in.Username),
		Password:    password,
		From:        in.From,
		AdminNotify: in.AdminNotify,
		UpdatedAt:   s.now(),
	}
	if err := s.store.UpsertMailSettings(ctx, cfg); err != nil {
		return nil, err
	}
	return view(cfg), nil
}

func view(cfg *models.MailSettings) *MailSettingsView {
	return &MailSettingsView{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		PasswordSet: cfg.Password != "",
		From:        cfg.From,
		AdminNotify: cfg.AdminNotify,
		UpdatedAt:   cfg.UpdatedAt,
	}
}
