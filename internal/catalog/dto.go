package catalog

import (
	"time"

	"github.com/archivobordado/bordado-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatrixDTO is the public catalog payload. The pattern archive location is
// never exposed here; buyers only receive files by email after payment.
type MatrixDTO struct {
	ID          uuid.UUID       `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stitches    int             `json:"stitches"`
	WidthMm     int             `json:"width_mm"`
	HeightMm    int             `json:"height_mm"`
	Colors      int             `json:"colors"`
	Formats     []string        `json:"formats"`
	Tags        []string        `json:"tags"`
	ImageURL    string          `json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AdminMatrixDTO extends the public payload with the stored archive location.
type AdminMatrixDTO struct {
	MatrixDTO
	FileURL string `json:"file_url"`
}

// NewMatrixDTO builds the public DTO from the persisted model.
func NewMatrixDTO(matrix *models.Matrix) *MatrixDTO {
	return &MatrixDTO{
		ID:          matrix.ID,
		Slug:        matrix.Slug,
		Title:       matrix.Title,
		Description: matrix.Description,
		Price:       matrix.Price,
		Stitches:    matrix.Stitches,
		WidthMm:     matrix.WidthMm,
		HeightMm:    matrix.HeightMm,
		Colors:      matrix.Colors,
		Formats:     append([]string{}, matrix.Formats...),
		Tags:        append([]string{}, matrix.Tags...),
		ImageURL:    matrix.ImageURL,
		CreatedAt:   matrix.CreatedAt,
		UpdatedAt:   matrix.UpdatedAt,
	}
}

// NewAdminMatrixDTO builds the admin DTO including the archive location.
func NewAdminMatrixDTO(matrix *models.Matrix) *AdminMatrixDTO {
	return &AdminMatrixDTO{
		MatrixDTO: *NewMatrixDTO(matrix),
		FileURL:   matrix.FileURL,
	}
}
