package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/archivobordado/bordado-backend/api/responses"
	"github.com/archivobordado/bordado-backend/api/validators"
	"github.com/archivobordado/bordado-backend/internal/cart"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
)

// CartTokenHeader carries the opaque cart token the storefront keeps
// client side. CartFetch mints one when the request arrives without it.
const CartTokenHeader = "X-Cart-Token"

func cartToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(CartTokenHeader))
}

// CartFetch returns the current cart, minting a token for first-time
// visitors so the storefront always has one to echo back.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		token := cartToken(r)
		if token == "" {
			token = cart.NewCartToken()
		}

		dto, err := svc.Get(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set(CartTokenHeader, dto.Token)
		responses.WriteSuccess(w, dto)
	}
}

type cartItemRequest struct {
	MatrixID string `json:"matrix_id" validate:"required,uuid"`
}

// CartAdd puts a matrix in the cart. Adding one that is already there
// is a no-op.
func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		matrixID, err := uuid.Parse(payload.MatrixID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid matrix id"))
			return
		}

		token := cartToken(r)
		if token == "" {
			token = cart.NewCartToken()
		}

		dto, err := svc.Add(r.Context(), token, matrixID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set(CartTokenHeader, dto.Token)
		responses.WriteSuccess(w, dto)
	}
}

// CartRemove takes a matrix out of the cart.
func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		matrixID, err := uuid.Parse(payload.MatrixID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid matrix id"))
			return
		}

		dto, err := svc.Remove(r.Context(), cartToken(r), matrixID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set(CartTokenHeader, dto.Token)
		responses.WriteSuccess(w, dto)
	}
}

// CartClear empties the cart.
func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if err := svc.Clear(r.Context(), cartToken(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
