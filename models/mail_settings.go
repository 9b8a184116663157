package models

import "time"

// MailSettingsID is the fixed _id of the mail settings singleton document.
const MailSettingsID = "mail"

// MailSettings holds the store operator's SMTP account. Password is encrypted at
// rest when an encryption key is configured.
type MailSettings struct {
	ID          string    `bson:"_id" json:"-"`
	Host        string    `bson:"host" json:"host"`
	Port        int       `bson:"port" json:"port"`
	Username    string    `bson:"username" json:"username"`
	Password    string    `bson:"password" json:"password"`
	From        string    `bson:"from" json:"from"`
	AdminNotify string    `bson:"adminNotify" json:"adminNotify"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Complete reports whether the settings are enough to dial an SMTP server.
func (m *MailSettings) Complete() bool {
	return m != nil && m.Host != "" && m.Port > 0 && m.From != ""
}
