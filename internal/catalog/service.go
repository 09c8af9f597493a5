package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/archivobordado/bordado-backend/pkg/config"
	"github.com/archivobordado/bordado-backend/pkg/db"
	"github.com/archivobordado/bordado-backend/pkg/db/models"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Service exposes catalog browsing plus admin matrix management.
type Service interface {
	ListMatrices(ctx context.Context, input ListMatricesInput) (*MatrixListResult, error)
	GetMatrixBySlug(ctx context.Context, slug string) (*MatrixDTO, error)
	RandomMatrix(ctx context.Context, excludeIDs []uuid.UUID) (*MatrixDTO, error)
	CreateMatrix(ctx context.Context, input CreateMatrixInput) (*AdminMatrixDTO, error)
	UpdateMatrix(ctx context.Context, id uuid.UUID, input UpdateMatrixInput) (*AdminMatrixDTO, error)
	DeleteMatrix(ctx context.Context, id uuid.UUID) error
}

// FileUpload carries one uploaded file from a multipart form.
type FileUpload struct {
	Filename string
	Data     []byte
}

// CreateMatrixInput holds the validated payload to publish a matrix.
type CreateMatrixInput struct {
	Title       string
	Description *string
	Price       decimal.Decimal
	Stitches    int
	WidthMm     int
	HeightMm    int
	Colors      int
	Formats     []string
	Tags        []string
	Archive     FileUpload
	Image       FileUpload
}

// UpdateMatrixInput holds the mutable fields of a published matrix. The
// archive and image are immutable after publication; replacing them means
// deleting and re-creating the listing.
type UpdateMatrixInput struct {
	Title *string
	Price *decimal.Decimal
	Tags  *[]string
}

type objectStore interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) error
	Remove(ctx context.Context, bucket string, paths ...string) error
	PublicURL(bucket, path string) string
}

var imageContentTypes = []string{"image/jpeg", "image/png", "image/webp"}

// placeholderImagePath is the shared cover shown for listings uploaded
// without one.
const placeholderImagePath = "matrices/placeholder.png"

var slugSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

type service struct {
	repo     *Repository
	dbClient *db.Client
	store    objectStore
	buckets  config.StorageConfig
	logg     *logger.Logger
}

// NewService constructs the catalog service.
func NewService(repo *Repository, dbClient *db.Client, store objectStore, buckets config.StorageConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("matrix repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		store:    store,
		buckets:  buckets,
		logg:     logg,
	}, nil
}

func (s *service) ListMatrices(ctx context.Context, input ListMatricesInput) (*MatrixListResult, error) {
	result, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list matrices")
	}
	return result, nil
}

func (s *service) GetMatrixBySlug(ctx context.Context, slug string) (*MatrixDTO, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	matrix, err := s.repo.FindBySlug(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "matrix not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load matrix")
	}
	return NewMatrixDTO(matrix), nil
}

// RandomMatrix picks an upsell candidate outside the excluded set. A nil
// result with nil error means the catalog has nothing left to suggest.
func (s *service) RandomMatrix(ctx context.Context, excludeIDs []uuid.UUID) (*MatrixDTO, error) {
	matrix, err := s.repo.Random(ctx, excludeIDs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pick random matrix")
	}
	return NewMatrixDTO(matrix), nil
}

func (s *service) CreateMatrix(ctx context.Context, input CreateMatrixInput) (*AdminMatrixDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.Price.IsNegative() || input.Price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if len(input.Archive.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pattern archive is required")
	}

	archiveType := mimetype.Detect(input.Archive.Data)
	if !archiveType.Is("application/zip") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pattern archive must be a zip file")
	}
	var imageType *mimetype.MIME
	if len(input.Image.Data) > 0 {
		imageType = mimetype.Detect(input.Image.Data)
		if !isAllowedImage(imageType) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cover image must be jpeg, png, or webp")
		}
	}

	slug := Slugify(title)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title produces an empty slug")
	}

	archivePath := fmt.Sprintf("%s/%s", slug, SanitizeFileName(input.Archive.Filename))
	imagePath := ""
	if imageType != nil {
		imagePath = fmt.Sprintf("matrices/%s%s", slug, imageType.Extension())
	}

	// Storage writes happen before the insert so a published listing never
	// points at files that are still uploading.
	if err := s.store.Upload(ctx, s.buckets.MatrixBucket, archivePath, archiveType.String(), input.Archive.Data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload pattern archive")
	}
	imageURL := s.store.PublicURL(s.buckets.PublicBucket, placeholderImagePath)
	if imagePath != "" {
		if err := s.store.Upload(ctx, s.buckets.PublicBucket, imagePath, imageType.String(), input.Image.Data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload cover image")
		}
		imageURL = s.store.PublicURL(s.buckets.PublicBucket, imagePath)
	}

	matrix := &models.Matrix{
		Slug:        slug,
		Title:       title,
		Description: input.Description,
		Price:       input.Price,
		Stitches:    input.Stitches,
		WidthMm:     input.WidthMm,
		HeightMm:    input.HeightMm,
		Colors:      max(input.Colors, 1),
		Formats:     append([]string{}, input.Formats...),
		Tags:        append([]string{}, input.Tags...),
		ImageURL:    imageURL,
		FileURL:     archivePath,
	}

	created, err := s.repo.Create(ctx, matrix)
	if err != nil {
		s.cleanupOrphanedUploads(ctx, archivePath, imagePath)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a matrix with this title already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert matrix")
	}

	return NewAdminMatrixDTO(created), nil
}

func (s *service) UpdateMatrix(ctx context.Context, id uuid.UUID, input UpdateMatrixInput) (*AdminMatrixDTO, error) {
	matrix, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "matrix not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load matrix")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		matrix.Title = title
	}
	if input.Price != nil {
		if input.Price.IsNegative() || input.Price.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		matrix.Price = *input.Price
	}
	if input.Tags != nil {
		matrix.Tags = append([]string{}, *input.Tags...)
	}

	updated, err := s.repo.Update(ctx, matrix)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update matrix")
	}
	return NewAdminMatrixDTO(updated), nil
}

// DeleteMatrix removes the listing. Storage cleanup is best effort: losing
// an orphaned file is acceptable, keeping a sellable listing for a deleted
// product is not.
func (s *service) DeleteMatrix(ctx context.Context, id uuid.UUID) error {
	matrix, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "matrix not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load matrix")
	}

	var cleanupErr error
	if matrix.FileURL != "" {
		cleanupErr = multierr.Append(cleanupErr, s.store.Remove(ctx, s.buckets.MatrixBucket, matrix.FileURL))
	}
	if imagePath, ok := storagePathFromPublicURL(matrix.ImageURL, s.store.PublicURL(s.buckets.PublicBucket, "")); ok && imagePath != placeholderImagePath {
		cleanupErr = multierr.Append(cleanupErr, s.store.Remove(ctx, s.buckets.PublicBucket, imagePath))
	}
	if cleanupErr != nil {
		ctx := s.logg.WithFields(ctx, map[string]any{"matrix_id": matrix.ID.String()})
		s.logg.Warn(ctx, "storage cleanup incomplete for deleted matrix")
	}

	if err := s.repo.Delete(ctx, matrix.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete matrix")
	}
	return nil
}

func (s *service) cleanupOrphanedUploads(ctx context.Context, archivePath, imagePath string) {
	var cleanupErr error
	cleanupErr = multierr.Append(cleanupErr, s.store.Remove(ctx, s.buckets.MatrixBucket, archivePath))
	if imagePath != "" {
		cleanupErr = multierr.Append(cleanupErr, s.store.Remove(ctx, s.buckets.PublicBucket, imagePath))
	}
	if cleanupErr != nil {
		s.logg.Warn(ctx, "could not clean up uploads after failed insert")
	}
}

func isAllowedImage(detected *mimetype.MIME) bool {
	for _, allowed := range imageContentTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

// Slugify lowercases the title and collapses non-alphanumeric runs to
// single hyphens.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugSanitizeRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// SanitizeFileName replaces every non-alphanumeric character (except dots)
// with an underscore so gateway emails and object paths stay portable.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	sanitized := b.String()
	if sanitized == "" || sanitized == ".zip" {
		sanitized = "archivo.zip"
	}
	if !strings.HasSuffix(strings.ToLower(sanitized), ".zip") {
		sanitized += ".zip"
	}
	return sanitized
}

// storagePathFromPublicURL recovers the object path from a stored public URL.
func storagePathFromPublicURL(publicURL, bucketPrefix string) (string, bool) {
	if publicURL == "" || bucketPrefix == "" {
		return "", false
	}
	if !strings.HasPrefix(publicURL, bucketPrefix) {
		return "", false
	}
	path := strings.TrimPrefix(publicURL, bucketPrefix)
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", false
	}
	return path, true
}
