package orders

import (
	"context"

	"github.com/archivobordado/bordado-backend/pkg/db/models"
	"github.com/archivobordado/bordado-backend/pkg/enums"
	"github.com/archivobordado/bordado-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository defines persistence operations for purchase orders.
type OrderRepository interface {
	Create(context.Context, *models.Order) (*models.Order, error)
	FindByID(context.Context, uuid.UUID) (*models.Order, error)
	SetPreferenceID(context.Context, uuid.UUID, string) error
	MarkApproved(context.Context, uuid.UUID, *string) (*models.Order, error)
	Delete(context.Context, uuid.UUID) error
	List(context.Context, ListOrdersInput) (*OrderListResult, error)
}

// Repository wires together order persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the order together with its line items.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order with its line items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// SetPreferenceID records the checkout preference the gateway opened for the order.
func (r *Repository) SetPreferenceID(ctx context.Context, id uuid.UUID, preferenceID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("mp_preference_id", preferenceID).
		Error
}

// MarkApproved transitions the order to approved and records the settling
// payment when one exists. Already-approved orders are left untouched.
func (r *Repository) MarkApproved(ctx context.Context, id uuid.UUID, paymentID *string) (*models.Order, error) {
	updates := map[string]any{"status": enums.OrderStatusApproved}
	if paymentID != nil {
		updates["mp_payment_id"] = *paymentID
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).
		Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete removes an order; line items go with it via the FK cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id).Error
}

// List returns a page of orders newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, input ListOrdersInput) (*OrderListResult, error) {
	limit := pagination.NormalizeLimit(input.Pagination.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit))

	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
	}
	if input.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *input.PaymentMethod)
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := &OrderListResult{}
	if len(rows) > limit {
		last := rows[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		rows = rows[:limit]
	}

	result.Items = make([]OrderDTO, len(rows))
	for i := range rows {
		result.Items[i] = *NewOrderDTO(&rows[i])
	}
	return result, nil
}
