package catalog

import (
	"github.com/archivobordado/bordado-backend/pkg/pagination"
)

// ListMatricesInput captures the filter and pagination knobs for the catalog listing.
type ListMatricesInput struct {
	Tag        string
	Search     string
	Pagination pagination.Params
}

// MatrixListResult is one page of catalog entries plus the cursor for the next.
type MatrixListResult struct {
	Items      []MatrixDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
