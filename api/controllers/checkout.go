package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/archivobordado/bordado-backend/api/responses"
	"github.com/archivobordado/bordado-backend/api/validators"
	"github.com/archivobordado/bordado-backend/internal/cart"
	checkoutsvc "github.com/archivobordado/bordado-backend/internal/checkout"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
)

type checkoutRequest struct {
	CustomerEmail string   `json:"customer_email" validate:"required,email"`
	CustomerName  *string  `json:"customer_name,omitempty"`
	MatrixIDs     []string `json:"matrix_ids" validate:"required,min=1,dive,uuid"`
}

func (req checkoutRequest) toInput() (checkoutsvc.CheckoutInput, error) {
	ids := make([]uuid.UUID, 0, len(req.MatrixIDs))
	for _, raw := range req.MatrixIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return checkoutsvc.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid matrix id")
		}
		ids = append(ids, id)
	}
	return checkoutsvc.CheckoutInput{
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		MatrixIDs:     ids,
	}, nil
}

// CheckoutPreference opens a Mercado Pago checkout for the submitted
// matrices and clears the buyer's cart on success.
func CheckoutPreference(svc checkoutsvc.Service, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePreferenceCheckout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clearCart(r, carts, logg)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutTransfer records a pending bank-transfer order. The admin
// approves it by hand once the money shows up.
func CheckoutTransfer(svc checkoutsvc.Service, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateTransferCheckout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clearCart(r, carts, logg)
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func clearCart(r *http.Request, carts cart.Service, logg *logger.Logger) {
	if carts == nil {
		return
	}
	token := cartToken(r)
	if token == "" {
		return
	}
	// best effort; a stale cart is an annoyance, not a checkout failure
	if err := carts.Clear(r.Context(), token); err != nil && logg != nil {
		logg.Warn(logg.WithCartToken(r.Context(), token), "clearing cart after checkout failed")
	}
}
