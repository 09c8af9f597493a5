package catalog

import (
	"context"

	"github.com/archivobordado/bordado-backend/pkg/db/models"
	"github.com/archivobordado/bordado-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatrixRepository defines persistence operations for catalog matrices.
type MatrixRepository interface {
	Create(context.Context, *models.Matrix) (*models.Matrix, error)
	Update(context.Context, *models.Matrix) (*models.Matrix, error)
	Delete(context.Context, uuid.UUID) error
	FindByID(context.Context, uuid.UUID) (*models.Matrix, error)
	FindBySlug(context.Context, string) (*models.Matrix, error)
	FindByIDs(context.Context, []uuid.UUID) ([]models.Matrix, error)
	Random(context.Context, []uuid.UUID) (*models.Matrix, error)
}

// Repository wires together matrix persistence helpers.
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

// Create inserts a new matrix row.
func (r *Repository) Create(ctx context.Context, matrix *models.Matrix) (*models.Matrix, error) {
	if err := r.db.WithContext(ctx).Create(matrix).Error; err != nil {
		return nil, err
	}
	return matrix, nil
}

// Update saves an existing matrix row.
func (r *Repository) Update(ctx context.Context, matrix *models.Matrix) (*models.Matrix, error) {
	if err := r.db.WithContext(ctx).Save(matrix).Error; err != nil {
		return nil, err
	}
	return matrix, nil
}

// Delete removes the matrix row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Matrix{}, "id = ?", id).Error
}

// FindByID loads a matrix by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Matrix, error) {
	var matrix models.Matrix
	if err := r.db.WithContext(ctx).First(&matrix, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &matrix, nil
}

// FindBySlug loads a matrix by its public slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Matrix, error) {
	var matrix models.Matrix
	if err := r.db.WithContext(ctx).First(&matrix, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &matrix, nil
}

// FindByIDs loads the matrices for the provided ids, in no particular order.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Matrix, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var matrices []models.Matrix
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&matrices).Error; err != nil {
		return nil, err
	}
	return matrices, nil
}

// Random picks one matrix at random, excluding the provided ids. Returns
// gorm.ErrRecordNotFound when nothing qualifies.
func (r *Repository) Random(ctx context.Context, excludeIDs []uuid.UUID) (*models.Matrix, error) {
	query := r.db.WithContext(ctx).Order("random()")
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	var matrix models.Matrix
	if err := query.First(&matrix).Error; err != nil {
		return nil, err
	}
	return &matrix, nil
}

// List returns a page of matrices ordered newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, input ListMatricesInput) (*MatrixListResult, error) {
	limit := pagination.NormalizeLimit(input.Pagination.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Matrix{}).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit))

	if input.Tag != "" {
		query = query.Where("? = ANY(tags)", input.Tag)
	}
	if input.Search != "" {
		query = query.Where("title ILIKE ?", "%"+input.Search+"%")
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Matrix
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := &MatrixListResult{}
	if len(rows) > limit {
		last := rows[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		rows = rows[:limit]
	}

	result.Items = make([]MatrixDTO, len(rows))
	for i := range rows {
		result.Items[i] = *NewMatrixDTO(&rows[i])
	}
	return result, nil
}
