package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultDisplayOrder sorts books without an explicit position after curated ones.
const DefaultDisplayOrder = 999

type Book struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title              string             `bson:"title" json:"title"`
	TitleLocal         string             `bson:"titleLocal,omitempty" json:"titleLocal,omitempty"`
	Author             string             `bson:"author,omitempty" json:"author,omitempty"`
	Publisher          string             `bson:"publisher,omitempty" json:"publisher,omitempty"`
	ISBN               string             `bson:"isbn,omitempty" json:"isbn,omitempty"`
	Description        string             `bson:"description,omitempty" json:"description,omitempty"`
	Category           string             `bson:"category,omitempty" json:"category,omitempty"`
	Grade              string             `bson:"grade,omitempty" json:"grade,omitempty"`
	Subject            string             `bson:"subject,omitempty" json:"subject,omitempty"`
	Price              float64            `bson:"price" json:"price"`
	Stock              int                `bson:"stock" json:"stock"`
	SalePrice          *float64           `bson:"salePrice,omitempty" json:"salePrice,omitempty"`
	DiscountPercentage *float64           `bson:"discountPercentage,omitempty" json:"discountPercentage,omitempty"`
	SaleStartDate      *time.Time         `bson:"saleStartDate,omitempty" json:"saleStartDate,omitempty"`
	SaleEndDate        *time.Time         `bson:"saleEndDate,omitempty" json:"saleEndDate,omitempty"`
	IsFlashSale        bool               `bson:"isFlashSale" json:"isFlashSale"`
	DisplayOrder       int                `bson:"displayOrder" json:"displayOrder"`
	Images             []string           `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`

	// OnSale is filled in at response time; never stored.
	OnSale bool `bson:"-" json:"isOnSale"`
}

// IsOnSale reports whether sale pricing is advertised at now. Sale fields are
// advisory: orders are always charged Price.
func (b *Book) IsOnSale(now time.Time) bool {
	if b.SalePrice == nil && b.DiscountPercentage == nil {
		return false
	}
	if b.SaleStartDate != nil && now.Before(*b.SaleStartDate) {
		return false
	}
	if b.SaleEndDate != nil && now.After(*b.SaleEndDate) {
		return false
	}
	return true
}
