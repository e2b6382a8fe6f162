package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	OnboardingErrorBadInput       = "ONBOARDING_BAD_INPUT"
	OnboardingErrorInvalidState   = "ONBOARDING_STATE_INVALID"
	OnboardingErrorUserDenied     = "ONBOARDING_USER_DENIED"
	OnboardingErrorExchangeFailed = "ONBOARDING_EXCHANGE_FAILED"
	OnboardingErrorCodeGeneration = "ONBOARDING_CODE_GENERATION_FAILED"
	OnboardingErrorCodeExpired    = "ONBOARDING_CODE_EXPIRED"
	OnboardingErrorNetwork        = "ONBOARDING_NETWORK_ERROR"
	OnboardingErrorSessionExpired = "ONBOARDING_SESSION_EXPIRED"
	OnboardingErrorForbidden      = "ONBOARDING_FORBIDDEN"
	OnboardingErrorStepGate       = "ONBOARDING_STEP_GATE_CLOSED"
	OnboardingErrorNotFound       = "ONBOARDING_NOT_FOUND"
	OnboardingErrorInternal       = "ONBOARDING_INTERNAL_ERROR"
)

func onboardingErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureOnboardingErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "auth session"), strings.Contains(msg, "state mismatch"):
		return newOnboardingError(err.Error(), goerrors.CategoryAuth, OnboardingErrorInvalidState)
	case strings.Contains(msg, "denied"):
		return newOnboardingError(err.Error(), goerrors.CategoryAuthz, OnboardingErrorUserDenied)
	case strings.Contains(msg, "linking code") && strings.Contains(msg, "expired"):
		return newOnboardingError(err.Error(), goerrors.CategoryOperation, OnboardingErrorCodeExpired)
	case strings.Contains(msg, "gate is closed"):
		return newOnboardingError(err.Error(), goerrors.CategoryConflict, OnboardingErrorStepGate)
	case strings.Contains(msg, "already linked"):
		return newOnboardingError(err.Error(), goerrors.CategoryConflict, OnboardingErrorInvalidState)
	case strings.Contains(msg, "not found"):
		return newOnboardingError(err.Error(), goerrors.CategoryNotFound, OnboardingErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "out of bounds"):
		return newOnboardingError(err.Error(), goerrors.CategoryBadInput, OnboardingErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureOnboardingErrorEnvelope(mapped)
}

func newOnboardingError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureOnboardingErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureOnboardingErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 && err.Category != goerrors.CategoryExternal {
		err.Code = onboardingHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultOnboardingTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultOnboardingTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return OnboardingErrorBadInput
	case goerrors.CategoryAuth:
		return OnboardingErrorSessionExpired
	case goerrors.CategoryAuthz:
		return OnboardingErrorForbidden
	case goerrors.CategoryNotFound:
		return OnboardingErrorNotFound
	case goerrors.CategoryConflict:
		return OnboardingErrorStepGate
	case goerrors.CategoryExternal:
		return OnboardingErrorNetwork
	case goerrors.CategoryOperation:
		return OnboardingErrorExchangeFailed
	default:
		return OnboardingErrorInternal
	}
}

func onboardingHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
