package gateway

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-onboarding/core"
)

func gatewayError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(gatewayTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func gatewayWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return gatewayError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(gatewayTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// networkError normalizes a transport failure with no HTTP response. The
// envelope carries code 0 so callers can tell "never reached the backend"
// apart from every HTTP status.
func networkError(source error, req core.GatewayRequest, attempts int) error {
	metadata := map[string]any{
		"method":   req.Method,
		"url":      req.URL,
		"attempts": attempts,
	}
	if source == nil {
		return goerrors.New("gateway: request failed with no response", goerrors.CategoryExternal).
			WithTextCode(core.OnboardingErrorNetwork).
			WithMetadata(metadata)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, "gateway: request failed with no response").
		WithTextCode(core.OnboardingErrorNetwork).
		WithMetadata(metadata)
}

func sessionExpiredError(source error) error {
	if source == nil {
		return gatewayError(
			"gateway: session expired",
			goerrors.CategoryAuth,
			http.StatusUnauthorized,
			nil,
		)
	}
	return gatewayWrapError(
		source,
		goerrors.CategoryAuth,
		"gateway: session expired",
		http.StatusUnauthorized,
		nil,
	)
}

func forbiddenError(req core.GatewayRequest) error {
	return gatewayError(
		"gateway: access forbidden",
		goerrors.CategoryAuthz,
		http.StatusForbidden,
		map[string]any{"method": req.Method, "url": req.URL},
	)
}

func gatewayTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.OnboardingErrorBadInput
	case goerrors.CategoryAuth:
		return core.OnboardingErrorSessionExpired
	case goerrors.CategoryAuthz:
		return core.OnboardingErrorForbidden
	case goerrors.CategoryOperation:
		return core.OnboardingErrorExchangeFailed
	case goerrors.CategoryExternal:
		return core.OnboardingErrorNetwork
	default:
		return core.OnboardingErrorInternal
	}
}
