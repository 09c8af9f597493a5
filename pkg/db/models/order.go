package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/archivobordado/bordado-backend/pkg/enums"
)

// Order is a purchase attempt created at checkout time. It stays pending
// until the gateway webhook (or a manual transfer approval) settles it.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerEmail  string              `gorm:"column:customer_email;not null"`
	CustomerName   *string             `gorm:"column:customer_name"`
	Total          decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'mercadopago'"`
	MPPreferenceID *string             `gorm:"column:mp_preference_id"`
	MPPaymentID    *string             `gorm:"column:mp_payment_id"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// ShortNumber is the customer-facing order reference used in emails.
func (o Order) ShortNumber() string {
	id := o.ID.String()
	return id[len(id)-6:]
}
