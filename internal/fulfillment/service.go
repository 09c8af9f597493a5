package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/archivobordado/bordado-backend/internal/catalog"
	"github.com/archivobordado/bordado-backend/pkg/config"
	"github.com/archivobordado/bordado-backend/pkg/db/models"
	"github.com/archivobordado/bordado-backend/pkg/enums"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
	"github.com/archivobordado/bordado-backend/pkg/mailer"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service delivers purchased pattern files by email.
type Service interface {
	SendOrderFiles(ctx context.Context, orderID uuid.UUID) error
}

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type matrixLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Matrix, error)
}

type archiveDownloader interface {
	Download(ctx context.Context, bucket, path string) ([]byte, error)
}

type service struct {
	orders   orderLoader
	matrices matrixLoader
	store    archiveDownloader
	sender   mailer.Sender
	buckets  config.StorageConfig
	logg     *logger.Logger
}

// NewService constructs the fulfillment service.
func NewService(orders orderLoader, matrices matrixLoader, store archiveDownloader, sender mailer.Sender, buckets config.StorageConfig, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if matrices == nil {
		return nil, fmt.Errorf("matrix loader required")
	}
	if store == nil {
		return nil, fmt.Errorf("archive downloader required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   orders,
		matrices: matrices,
		store:    store,
		sender:   sender,
		buckets:  buckets,
		logg:     logg,
	}, nil
}

// SendOrderFiles emails the buyer every pattern archive on the order. An
// archive that cannot be downloaded is dropped from the email rather than
// blocking delivery of the rest.
func (s *service) SendOrderFiles(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not approved")
	}
	if len(order.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no items")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	matrixIDs := make([]uuid.UUID, len(order.Items))
	for i, item := range order.Items {
		matrixIDs[i] = item.MatrixID
	}
	rows, err := s.matrices.FindByIDs(ctx, matrixIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchased matrices")
	}
	matrixByID := make(map[uuid.UUID]*models.Matrix, len(rows))
	for i := range rows {
		matrixByID[rows[i].ID] = &rows[i]
	}

	attachments := make([]mailer.Attachment, 0, len(order.Items))
	for _, item := range order.Items {
		matrix, ok := matrixByID[item.MatrixID]
		if !ok || matrix.FileURL == "" {
			s.logg.Warn(ctx, fmt.Sprintf("matrix %s missing from catalog, skipping attachment", item.MatrixID))
			continue
		}
		data, err := s.store.Download(ctx, s.buckets.MatrixBucket, matrix.FileURL)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("could not download archive for %q, skipping attachment", item.Title))
			continue
		}
		attachments = append(attachments, mailer.Attachment{
			Filename:    catalog.SanitizeFileName(item.Title),
			ContentType: "application/zip",
			Data:        data,
		})
	}

	if len(attachments) == 0 {
		s.logg.Error(ctx, "fulfillment email sent without files", errors.New("no attachments could be prepared"))
	}

	msg := mailer.Message{
		To:          order.CustomerEmail,
		Subject:     fmt.Sprintf("Tu pedido #%s - Archivo Bordado", order.ShortNumber()),
		HTML:        renderOrderEmail(order, len(attachments)),
		Attachments: attachments,
	}
	if order.CustomerName != nil {
		msg.ToName = *order.CustomerName
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send fulfillment email")
	}

	s.logg.Info(ctx, fmt.Sprintf("fulfillment email sent with %d of %d files", len(attachments), len(order.Items)))
	return nil
}
