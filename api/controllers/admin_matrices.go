package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/archivobordado/bordado-backend/api/responses"
	"github.com/archivobordado/bordado-backend/api/validators"
	"github.com/archivobordado/bordado-backend/internal/catalog"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
)

// maxMatrixUploadBytes bounds the whole multipart form. Pattern archives
// are a few megabytes at most.
const maxMatrixUploadBytes = 64 << 20

// AdminCreateMatrix publishes a matrix from a multipart form carrying
// the metadata fields plus the pattern archive and cover image.
func AdminCreateMatrix(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		if err := r.ParseMultipartForm(maxMatrixUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		input, err := matrixInputFromForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateMatrix(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

type updateMatrixRequest struct {
	Title *string   `json:"title,omitempty"`
	Price *string   `json:"price,omitempty"`
	Tags  *[]string `json:"tags,omitempty"`
}

// AdminUpdateMatrix patches the mutable listing fields. Files are
// immutable after publication.
func AdminUpdateMatrix(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "matrixId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid matrix id"))
			return
		}

		var payload updateMatrixRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateMatrixInput{Title: payload.Title, Tags: payload.Tags}
		if payload.Price != nil {
			price, err := decimal.NewFromString(strings.TrimSpace(*payload.Price))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
				return
			}
			input.Price = &price
		}

		updated, err := svc.UpdateMatrix(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminDeleteMatrix unpublishes a matrix and removes its stored files.
func AdminDeleteMatrix(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "matrixId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid matrix id"))
			return
		}

		if err := svc.DeleteMatrix(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func matrixInputFromForm(r *http.Request) (catalog.CreateMatrixInput, error) {
	input := catalog.CreateMatrixInput{
		Title:   validators.SanitizeString(r.FormValue("title"), 200),
		Formats: splitList(r.FormValue("formats")),
		Tags:    splitList(r.FormValue("tags")),
	}

	if desc := validators.SanitizeString(r.FormValue("description"), 5000); desc != "" {
		input.Description = &desc
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		return catalog.CreateMatrixInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	input.Price = price

	for field, dest := range map[string]*int{
		"stitches":  &input.Stitches,
		"width_mm":  &input.WidthMm,
		"height_mm": &input.HeightMm,
		"colors":    &input.Colors,
	} {
		value, err := formInt(r, field)
		if err != nil {
			return catalog.CreateMatrixInput{}, err
		}
		*dest = value
	}

	archive, err := formFile(r, "archive")
	if err != nil {
		return catalog.CreateMatrixInput{}, err
	}
	input.Archive = archive

	// the cover is optional, the catalog falls back to a placeholder
	image, err := optionalFormFile(r, "image")
	if err != nil {
		return catalog.CreateMatrixInput{}, err
	}
	input.Image = image

	return input, nil
}

func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "field must be a non-negative number").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

func formFile(r *http.Request, field string) (catalog.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return catalog.FileUpload{}, pkgerrors.New(pkgerrors.CodeValidation, "file is required").WithDetails(map[string]any{"field": field})
	}
	return readFormFile(file, header)
}

func optionalFormFile(r *http.Request, field string) (catalog.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return catalog.FileUpload{}, nil
	}
	if err != nil {
		return catalog.FileUpload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading uploaded file")
	}
	return readFormFile(file, header)
}

func readFormFile(file multipart.File, header *multipart.FileHeader) (catalog.FileUpload, error) {
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(io.LimitReader(file, maxMatrixUploadBytes))
	if err != nil {
		return catalog.FileUpload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading uploaded file")
	}
	return catalog.FileUpload{Filename: header.Filename, Data: data}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
