package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusPaid       OrderStatus = "Paid"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

var OrderStatuses = []OrderStatus{
	StatusPending, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled,
}

// OrderItem is a line captured at order time. Price is a snapshot, not a live reference.
type OrderItem struct {
	Book     primitive.ObjectID `bson:"book" json:"book"`
	Title    string             `bson:"title" json:"title"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price" json:"price"`
}

type ShippingAddress struct {
	FullName    string `bson:"fullName" json:"fullName"`
	Phone       string `bson:"phone" json:"phone"`
	AddressLine string `bson:"addressLine" json:"addressLine"`
	City        string `bson:"city" json:"city"`
	District    string `bson:"district,omitempty" json:"district,omitempty"`
	PostalCode  string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
}

type StatusChange struct {
	Status OrderStatus        `bson:"status" json:"status"`
	At     time.Time          `bson:"at" json:"at"`
	By     primitive.ObjectID `bson:"by,omitempty" json:"by,omitempty"`
}

type Order struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User              primitive.ObjectID  `bson:"user" json:"user"`
	Items             []OrderItem         `bson:"items" json:"items"`
	TotalAmount       float64             `bson:"totalAmount" json:"totalAmount"`
	Status            OrderStatus         `bson:"status" json:"status"`
	ShippingAddress   ShippingAddress     `bson:"shippingAddress" json:"shippingAddress"`
	Notes             string              `bson:"notes,omitempty" json:"notes,omitempty"`
	ReceiptImage      *string             `bson:"receiptImage" json:"receiptImage"`
	PaymentVerifiedAt *time.Time          `bson:"paymentVerifiedAt" json:"paymentVerifiedAt"`
	PaymentVerifiedBy *primitive.ObjectID `bson:"paymentVerifiedBy" json:"paymentVerifiedBy"`
	StatusHistory     []StatusChange      `bson:"statusHistory" json:"statusHistory"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// HasReceipt reports whether a non-empty receipt URL is attached.
func (o *Order) HasReceipt() bool {
	return o.ReceiptImage != nil && *o.ReceiptImage != ""
}
