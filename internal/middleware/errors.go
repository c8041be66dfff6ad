package middleware

import (
	"encoding/json"
	"net/http"

	"go-blog-backend/internal/model"
	"go-blog-backend/pkg/apierror"
)

// writeAPIError writes the same error body the handlers use.
func writeAPIError(w http.ResponseWriter, apiErr *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(model.APIError{
		Error:   apiErr.Message,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}
