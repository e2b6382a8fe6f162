package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"
)

const providerErrorAccessDenied = "access_denied"

// BeginConnect starts the mailbox authorization round trip: it asks the
// backend for the provider authorization URL and stashes the CSRF state so
// the callback can be bound to this attempt. When a credential is already
// held the round trip is skipped entirely and the response says so.
func (s *Service) BeginConnect(ctx context.Context, profileID string) (response BeginConnectResponse, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"profile_id": profileID,
	}
	defer func() {
		fields["phase"] = string(s.ConnectionPhase())
		s.observeOperation(ctx, startedAt, "begin_connect", err, fields)
	}()

	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		err = s.mapError(ErrProgressProfileRequired)
		return BeginConnectResponse{}, err
	}
	if s.accountGateway == nil {
		err = s.mapError(fmt.Errorf("core: account gateway is required"))
		return BeginConnectResponse{}, err
	}

	if s.credentialHolder != nil {
		if cred, ok := s.credentialHolder.Get(); ok && !cred.Empty() {
			s.setConnectPhase(ctx, ConnectPhaseConnected)
			return BeginConnectResponse{AlreadyConnected: true}, nil
		}
	}

	response, err = s.accountGateway.FetchAuthorizationURL(ctx)
	if err != nil {
		s.failConnect(ctx, FailureKindExchangeFailed)
		err = s.mapError(err)
		return BeginConnectResponse{}, err
	}
	state := strings.TrimSpace(response.State)
	if state == "" {
		state, err = generateAuthState()
		if err != nil {
			s.failConnect(ctx, FailureKindExchangeFailed)
			err = s.mapError(err)
			return BeginConnectResponse{}, err
		}
		response.State = state
	}

	if s.authSessionStore != nil {
		now := s.clock().UTC()
		saveErr := s.authSessionStore.Save(ctx, AuthSessionRecord{
			State:     state,
			ProfileID: profileID,
			CreatedAt: now,
		})
		if saveErr != nil {
			s.failConnect(ctx, FailureKindExchangeFailed)
			err = s.mapError(saveErr)
			return BeginConnectResponse{}, err
		}
	}

	s.connectMu.Lock()
	s.connectProfileID = profileID
	s.connectMu.Unlock()

	s.setConnectPhase(ctx, ConnectPhaseAwaitingRedirect)
	return response, nil
}

// CompleteConnectCallback finishes the round trip when the browser returns
// from the provider. The CSRF record stashed for the in-flight attempt is
// consumed before the presented state is even compared, so every callback
// burns the stored state whatever its outcome and no state value can be
// replayed. A provider denial is surfaced as a distinct failure from an
// exchange error.
func (s *Service) CompleteConnectCallback(ctx context.Context, req CallbackRequest) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["phase"] = string(s.ConnectionPhase())
		s.observeOperation(ctx, startedAt, "complete_connect_callback", err, fields)
	}()

	s.connectMu.Lock()
	profileID := s.connectProfileID
	s.connectMu.Unlock()

	record, err := s.consumeCallbackState(ctx, profileID, req.State)
	if err != nil {
		s.failConnect(ctx, FailureKindInvalidState)
		err = s.mapError(err)
		return err
	}
	fields["profile_id"] = record.ProfileID

	if providerErr := strings.TrimSpace(req.ProviderError); providerErr != "" {
		if strings.EqualFold(providerErr, providerErrorAccessDenied) {
			s.failConnect(ctx, FailureKindUserDenied)
			err = s.mapError(fmt.Errorf("core: authorization denied by user"))
			return err
		}
		s.failConnect(ctx, FailureKindExchangeFailed)
		err = s.mapError(fmt.Errorf("core: authorization failed: %s", providerErr))
		return err
	}

	if s.credentialHolder != nil {
		if cred, ok := s.credentialHolder.Get(); ok && !cred.Empty() {
			s.setConnectPhase(ctx, ConnectPhaseConnected)
			return nil
		}
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		s.failConnect(ctx, FailureKindExchangeFailed)
		err = s.mapError(fmt.Errorf("core: authorization code is required"))
		return err
	}
	if s.accountGateway == nil {
		s.failConnect(ctx, FailureKindExchangeFailed)
		err = s.mapError(fmt.Errorf("core: account gateway is required"))
		return err
	}

	s.setConnectPhase(ctx, ConnectPhaseExchanging)

	result, exchangeErr := s.accountGateway.ExchangeCode(ctx, code, record.State)
	if exchangeErr != nil {
		s.failConnect(ctx, FailureKindExchangeFailed)
		err = s.mapError(exchangeErr)
		return err
	}
	if result.Credential.Empty() {
		s.failConnect(ctx, FailureKindExchangeFailed)
		err = s.mapError(fmt.Errorf("core: code exchange returned no credential"))
		return err
	}

	if s.credentialHolder != nil {
		s.credentialHolder.Set(result.Credential)
	}
	s.setConnectPhase(ctx, ConnectPhaseConnected)

	if _, recordErr := s.RecordCompletion(ctx, record.ProfileID, PartialProgress{
		SetFlags: map[string]bool{FlagMailboxConnected: true},
	}); recordErr != nil {
		s.logError(ctx, "mailbox connection flag not recorded", map[string]any{
			"profile_id": record.ProfileID,
			"error":      recordErr.Error(),
		})
	}

	return nil
}

// consumeCallbackState removes the record stashed for the in-flight attempt
// and verifies the presented state against it byte for byte. The record is
// gone after this call whether or not verification passes, so a forged
// callback burns the genuine state too.
func (s *Service) consumeCallbackState(ctx context.Context, profileID string, state string) (AuthSessionRecord, error) {
	if s == nil || s.authSessionStore == nil {
		return AuthSessionRecord{}, fmt.Errorf("core: auth session store is required")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return AuthSessionRecord{}, fmt.Errorf("core: auth session state is required")
	}
	if strings.TrimSpace(profileID) == "" {
		return AuthSessionRecord{}, fmt.Errorf("core: auth session not initiated")
	}

	record, err := s.authSessionStore.Consume(ctx, profileID)
	if err != nil {
		return AuthSessionRecord{}, err
	}
	if subtle.ConstantTimeCompare([]byte(record.State), []byte(state)) != 1 {
		return AuthSessionRecord{}, fmt.Errorf("core: auth session state mismatch")
	}
	return record, nil
}

// ConnectionPhase reports the handler's externally visible state.
func (s *Service) ConnectionPhase() ConnectPhase {
	if s == nil {
		return ConnectPhaseIdle
	}
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	return s.connectPhase
}

// ConnectionFailure reports the label of the last handler-local failure, if
// the handler is in the failed phase.
func (s *Service) ConnectionFailure() FailureKind {
	if s == nil {
		return FailureKindNone
	}
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	if s.connectPhase != ConnectPhaseFailed {
		return FailureKindNone
	}
	return s.connectFailure
}

func (s *Service) setConnectPhase(ctx context.Context, next ConnectPhase) {
	if s == nil {
		return
	}
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	if s.connectPhase == next {
		return
	}
	if !connectPhaseChangeAllowed(s.connectPhase, next) {
		s.logError(ctx, "connect phase change rejected", map[string]any{
			"from": string(s.connectPhase),
			"to":   string(next),
		})
		return
	}
	s.connectPhase = next
	if next != ConnectPhaseFailed {
		s.connectFailure = FailureKindNone
	}
}

func (s *Service) failConnect(ctx context.Context, kind FailureKind) {
	s.setConnectPhase(ctx, ConnectPhaseFailed)
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	if s.connectPhase == ConnectPhaseFailed {
		s.connectFailure = kind
	}
}
