package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Matrix represents a digital embroidery pattern offered in the catalog.
type Matrix struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string          `gorm:"column:slug;not null;uniqueIndex"`
	Title       string          `gorm:"column:title;not null"`
	Description *string         `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stitches    int             `gorm:"column:stitches;not null;default:0"`
	WidthMm     int             `gorm:"column:width_mm;not null;default:0"`
	HeightMm    int             `gorm:"column:height_mm;not null;default:0"`
	Colors      int             `gorm:"column:colors;not null;default:1"`
	Formats     pq.StringArray  `gorm:"column:formats;type:text[];not null;default:'{}'"`
	Tags        pq.StringArray  `gorm:"column:tags;type:text[];not null;default:'{}'"`
	ImageURL    string          `gorm:"column:image_url;not null"`
	FileURL     string          `gorm:"column:file_url;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Matrix) TableName() string {
	return "matrices"
}
