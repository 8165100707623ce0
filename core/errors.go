package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorMapper normalizes an error into the module envelope.
type ErrorMapper func(err error) *goerrors.Error

const (
	AuthzErrorBadInput         = "AUTHZ_BAD_INPUT"
	AuthzErrorDocumentNotFound = "AUTHZ_DOCUMENT_NOT_FOUND"
	AuthzErrorQueryFailed      = "AUTHZ_QUERY_FAILED"
	AuthzErrorPrivilegeDenied  = "AUTHZ_PRIVILEGE_DENIED"
	AuthzErrorCascadeFailed    = "AUTHZ_CASCADE_FAILED"
	AuthzErrorInternal         = "AUTHZ_INTERNAL_ERROR"
)

// AuthzErrorMapper normalizes arbitrary errors into the module's
// envelope so callers always see a category, an HTTP code, and a text
// code.
func AuthzErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAuthzErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "no such document"):
		return NewAuthzError(err.Error(), goerrors.CategoryNotFound, AuthzErrorDocumentNotFound)
	case strings.Contains(msg, "query"):
		return NewAuthzError(err.Error(), goerrors.CategoryExternal, AuthzErrorQueryFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "cannot unmarshal"):
		return NewAuthzError(err.Error(), goerrors.CategoryBadInput, AuthzErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAuthzErrorEnvelope(mapped)
}

func NewAuthzError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAuthzErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

// NotFoundError builds the envelope a missing document resolves to.
func NotFoundError(message string) *goerrors.Error {
	return NewAuthzError(message, goerrors.CategoryNotFound, AuthzErrorDocumentNotFound)
}

// IsNotFound reports whether err resolves to a missing document. The
// cascade relies on this to treat dangling links as "nothing further to
// invalidate" instead of a failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return false
}

func ensureAuthzErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = authzHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAuthzTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAuthzTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AuthzErrorBadInput
	case goerrors.CategoryNotFound:
		return AuthzErrorDocumentNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return AuthzErrorPrivilegeDenied
	case goerrors.CategoryExternal:
		return AuthzErrorQueryFailed
	default:
		return AuthzErrorInternal
	}
}

func authzHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
