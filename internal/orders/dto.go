package orders

import (
	"time"

	"github.com/archivobordado/bordado-backend/pkg/db/models"
	"github.com/archivobordado/bordado-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDTO is the order payload returned to the admin dashboard and to
// checkout responses.
type OrderDTO struct {
	ID             uuid.UUID       `json:"id"`
	ShortNumber    string          `json:"short_number"`
	CustomerEmail  string          `json:"customer_email"`
	CustomerName   *string         `json:"customer_name,omitempty"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"payment_method"`
	MPPreferenceID *string         `json:"mp_preference_id,omitempty"`
	MPPaymentID    *string         `json:"mp_payment_id,omitempty"`
	Items          []OrderItemDTO  `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderItemDTO is one purchased matrix at its charged price.
type OrderItemDTO struct {
	ID       uuid.UUID       `json:"id"`
	MatrixID uuid.UUID       `json:"matrix_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
}

// ListOrdersInput captures the admin listing filters.
type ListOrdersInput struct {
	Status        *string
	PaymentMethod *string
	Pagination    pagination.Params
}

// OrderListResult is one page of orders plus the cursor for the next.
type OrderListResult struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// NewOrderDTO builds the DTO from the persisted model.
func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:             order.ID,
		ShortNumber:    order.ShortNumber(),
		CustomerEmail:  order.CustomerEmail,
		CustomerName:   order.CustomerName,
		Total:          order.Total,
		Status:         order.Status.String(),
		PaymentMethod:  order.PaymentMethod.String(),
		MPPreferenceID: order.MPPreferenceID,
		MPPaymentID:    order.MPPaymentID,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	dto.Items = make([]OrderItemDTO, len(order.Items))
	for i, item := range order.Items {
		dto.Items[i] = OrderItemDTO{
			ID:       item.ID,
			MatrixID: item.MatrixID,
			Title:    item.Title,
			Price:    item.Price,
		}
	}
	return dto
}
