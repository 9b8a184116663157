package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationKind names what an email is about. Event notifications use their
// event type ("order.placed", ...) as kind.
type NotificationKind string

const (
	KindOrderPlacedCustomer NotificationKind = "order_placed_customer"
	KindOrderPlacedAdmin    NotificationKind = "order_placed_admin"
	KindOrderStatusChanged  NotificationKind = "order_status_changed"
	KindPaymentVerified     NotificationKind = "payment_verified"
)

const (
	ChannelEmail = "email"
	ChannelEvent = "event"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationDead    NotificationStatus = "dead"
)

// Notification is an outbox record: the intent to deliver one email or event.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind          NotificationKind   `bson:"kind" json:"kind"`
	Channel       string             `bson:"channel" json:"channel"`
	To            string             `bson:"to,omitempty" json:"to,omitempty"`
	Subject       string             `bson:"subject,omitempty" json:"subject,omitempty"`
	Body          string             `bson:"body,omitempty" json:"body,omitempty"`
	EventKey      string             `bson:"eventKey,omitempty" json:"eventKey,omitempty"`
	Payload       []byte             `bson:"payload,omitempty" json:"-"`
	OrderID       primitive.ObjectID `bson:"orderId,omitempty" json:"orderId,omitempty"`
	Status        NotificationStatus `bson:"status" json:"status"`
	Attempts      int                `bson:"attempts" json:"attempts"`
	LastError     string             `bson:"lastError,omitempty" json:"lastError,omitempty"`
	NextAttemptAt time.Time          `bson:"nextAttemptAt" json:"nextAttemptAt"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	SentAt        *time.Time         `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
}
