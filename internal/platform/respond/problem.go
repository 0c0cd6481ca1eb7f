package respond

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/device-profile-api/internal/platform/logging"
)

// Machine-readable problem kinds.
const (
	KindValidation           = "validation-error"
	KindNotFound             = "not-found"
	KindNameConflict         = "name-conflict"
	KindConflict             = "conflict"
	KindPreconditionRequired = "precondition-required"
	KindPreconditionFailed   = "precondition-failed"
	KindUnauthenticated      = "unauthenticated"
	KindMethodNotAllowed     = "method-not-allowed"
	KindNotAcceptable        = "not-acceptable"
	KindPayloadTooLarge      = "payload-too-large"
	KindRateLimited          = "rate-limited"
	KindUnavailable          = "unavailable"
	KindInternal             = "internal"
)

// Problem is an RFC 9457 problem document extended with a kind and, for
// precondition failures, the entity tag the caller should retry with.
type Problem struct {
	huma.ErrorModel
	Kind        string `json:"kind"                  doc:"Machine-readable error kind" example:"not-found"`
	CurrentETag string `json:"currentEtag,omitempty" doc:"Current entity tag of the resource when a precondition failed"`
}

// Violation is one field-level validation failure.
type Violation struct {
	Location string
	Message  string
	Value    any
}

var installOnce sync.Once

// Install makes every error that huma produces a *Problem. Causes of
// server errors are logged and never copied into the response.
func Install() {
	installOnce.Do(func() {
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return fromHuma(context.Background(), status, msg, errs)
		}
		huma.NewErrorWithContext = func(hctx huma.Context, status int, msg string, errs ...error) huma.StatusError {
			ctx := context.Background()
			if hctx != nil {
				ctx = hctx.Context()
			}
			return fromHuma(ctx, status, msg, errs)
		}
	})
}

func fromHuma(ctx context.Context, status int, msg string, errs []error) *Problem {
	if status < http.StatusInternalServerError {
		return New(status, KindForStatus(status), msg, errs...)
	}
	if cause := errors.Join(errs...); cause != nil {
		applog.LogError(ctx, "request failed", cause, zap.Int("status", status))
	}
	return New(status, KindForStatus(status), msg)
}

// New builds a Problem. Errors implementing huma.ErrorDetailer keep their
// location and value, other errors contribute only their message.
func New(status int, kind, detail string, errs ...error) *Problem {
	if strings.TrimSpace(detail) == "" {
		detail = strings.ToLower(http.StatusText(status))
	}
	p := &Problem{
		ErrorModel: huma.ErrorModel{
			Title:  http.StatusText(status),
			Status: status,
			Detail: detail,
		},
		Kind: kind,
	}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var detailer huma.ErrorDetailer
		if errors.As(err, &detailer) {
			p.Errors = append(p.Errors, detailer.ErrorDetail())
			continue
		}
		p.Errors = append(p.Errors, &huma.ErrorDetail{Message: err.Error()})
	}
	return p
}

// KindForStatus returns the default kind for a status code.
func KindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	case http.StatusNotAcceptable, http.StatusUnsupportedMediaType:
		return KindNotAcceptable
	case http.StatusConflict:
		return KindConflict
	case http.StatusPreconditionFailed:
		return KindPreconditionFailed
	case http.StatusPreconditionRequired:
		return KindPreconditionRequired
	case http.StatusRequestEntityTooLarge:
		return KindPayloadTooLarge
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusServiceUnavailable:
		return KindUnavailable
	default:
		if status >= http.StatusInternalServerError {
			return KindInternal
		}
		return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "-")
	}
}

// NotFound is the single answer for absent, foreign and deleted resources.
func NotFound(detail string) *Problem {
	return New(http.StatusNotFound, KindNotFound, detail)
}

// NameConflict reports a duplicate live name.
func NameConflict(detail string) *Problem {
	return New(http.StatusConflict, KindNameConflict, detail)
}

// PreconditionRequired reports a conditional request sent without If-Match.
func PreconditionRequired() *Problem {
	return New(http.StatusPreconditionRequired, KindPreconditionRequired,
		"If-Match header is required to update this resource")
}

// PreconditionFailed reports a stale entity tag. The current tag is sent
// both in the body and as the ETag response header.
func PreconditionFailed(currentTag string) error {
	p := New(http.StatusPreconditionFailed, KindPreconditionFailed,
		"resource has been modified; re-read it and retry with the current ETag")
	p.CurrentETag = currentTag
	return huma.ErrorWithHeaders(p, http.Header{"ETag": []string{currentTag}})
}

// ValidationFailed reports every violation in a single 422 response.
func ValidationFailed(violations []Violation) *Problem {
	p := New(http.StatusUnprocessableEntity, KindValidation, "validation failed")
	for _, v := range violations {
		p.Errors = append(p.Errors, &huma.ErrorDetail{
			Message:  v.Message,
			Location: v.Location,
			Value:    v.Value,
		})
	}
	return p
}

// Internal is the opaque answer for unexpected failures.
func Internal() *Problem {
	return New(http.StatusInternalServerError, KindInternal, "internal error")
}
