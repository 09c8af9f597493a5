package webhooks

import (
	"io"
	"net/http"

	"github.com/archivobordado/bordado-backend/api/responses"
	mpwebhook "github.com/archivobordado/bordado-backend/internal/webhooks/mercadopago"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
)

// maxNotificationBytes bounds the webhook body read. Real notifications
// are tiny.
const maxNotificationBytes = 1 << 20

// MercadoPagoWebhook receives payment notifications. Anything that is
// not a payment notification is acknowledged and dropped, and errors
// during reconciliation return a 5xx so the gateway retries.
func MercadoPagoWebhook(svc *mpwebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading notification"))
			return
		}

		paymentID, ok := mpwebhook.ParsePaymentNotification(r.URL.Query(), body)
		if !ok {
			if logg != nil {
				logg.Info(r.Context(), "non-payment notification ignored")
			}
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		if err := svc.HandlePaymentNotification(r.Context(), paymentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
