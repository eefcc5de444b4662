package api

import (
	"errors"
	"net/http"

	"github.com/danjsiegel/ducksync/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var configuration *domain.ConfigurationError
	var parseOrRewrite *domain.ParseOrRewriteError
	var remote *domain.RemoteQueryError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &configuration):
		return http.StatusBadRequest
	case errors.As(err, &parseOrRewrite):
		return http.StatusBadRequest
	case errors.As(err, &remote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
