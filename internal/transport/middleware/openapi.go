package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	errors "github.com/frahmantamala/loan-servicing/internal"
)

// LoadContract parses and validates an OpenAPI document and builds a router over it.
func LoadContract(spec []byte) (routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return legacy.NewRouter(doc)
}

// RequestValidator rejects requests whose parameters or body do not match the
// contract. Paths the contract does not describe pass through untouched.
func RequestValidator(router routers.Router, logger *slog.Logger) func(http.Handler) http.Handler {
	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Warn("request rejected by contract",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err)
				writeAppError(w, errors.NewValidationError("request does not match the API contract", errors.ErrCodeValidationFailed).WithDetails(err.Error()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
