package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RequestLinkingCode asks the messenger backend for a fresh linking code.
// Any previously active code is superseded: its timers are cancelled before
// the new code is requested, so at most one countdown and one poll loop
// exist at a time.
func (s *Service) RequestLinkingCode(ctx context.Context, profileID string) (code LinkingCode, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"profile_id": profileID,
	}
	defer func() {
		fields["phase"] = string(s.LinkingPhase())
		s.observeOperation(ctx, startedAt, "request_linking_code", err, fields)
	}()

	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		err = s.mapError(ErrProgressProfileRequired)
		return LinkingCode{}, err
	}
	if s.messagingGateway == nil {
		err = s.mapError(fmt.Errorf("core: messaging gateway is required"))
		return LinkingCode{}, err
	}
	// Verified is terminal: issuing another code would strand it behind the
	// phase table, so the request is refused before the backend is asked.
	if s.LinkingPhase() == LinkPhaseVerified {
		err = s.mapError(ErrMessengerAlreadyLinked)
		return LinkingCode{}, err
	}

	s.cancelLinkTimers()

	code, issueErr := s.messagingGateway.IssueLinkingCode(ctx)
	if issueErr != nil {
		s.failLink(ctx, FailureKindCodeGenerationFailed)
		err = s.mapError(issueErr)
		return LinkingCode{}, err
	}
	if strings.TrimSpace(code.Code) == "" {
		s.failLink(ctx, FailureKindCodeGenerationFailed)
		err = s.mapError(fmt.Errorf("core: linking code issuance returned no code"))
		return LinkingCode{}, err
	}
	if code.ExpiresAt.IsZero() {
		code.ExpiresAt = s.clock().UTC().Add(s.config.Linking.CodeTTL)
	}

	s.linkMu.Lock()
	s.linkCode = code
	s.linkProfileID = profileID
	s.linkIdentity = ""
	s.linkGeneration++
	s.linkMu.Unlock()

	s.setLinkPhase(ctx, LinkPhaseCodeActive)
	return code, nil
}

// StartLinkPolling runs the countdown and verification loop for the active
// code in a background goroutine. The loop stops on verification, expiry,
// StopLinkPolling, supersession by a newer code, or context cancellation.
func (s *Service) StartLinkPolling(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	if s.messagingGateway == nil {
		return s.mapError(fmt.Errorf("core: messaging gateway is required"))
	}

	s.linkMu.Lock()
	if s.linkPhase != LinkPhaseCodeActive {
		s.linkMu.Unlock()
		return s.mapError(ErrNoActiveLinkingCode)
	}
	if s.linkCancel != nil {
		s.linkMu.Unlock()
		return nil
	}
	cancel := make(chan struct{})
	s.linkCancel = cancel
	generation := s.linkGeneration
	code := s.linkCode
	s.linkMu.Unlock()

	go s.runLinkLoop(ctx, generation, code, cancel)
	return nil
}

// StopLinkPolling cancels the countdown and poll loop and parks the handler
// back at idle. Terminal phases are left alone.
func (s *Service) StopLinkPolling(ctx context.Context) {
	if s == nil {
		return
	}
	s.cancelLinkTimers()
	if s.LinkingPhase() == LinkPhaseVerified {
		return
	}
	s.setLinkPhase(ctx, LinkPhaseIdle)
}

// LinkingPhase reports the handler's externally visible state.
func (s *Service) LinkingPhase() LinkPhase {
	if s == nil {
		return LinkPhaseIdle
	}
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return s.linkPhase
}

// LinkingFailure reports the label of the last handler-local failure when
// the handler is in the failed phase.
func (s *Service) LinkingFailure() FailureKind {
	if s == nil {
		return FailureKindNone
	}
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	if s.linkPhase != LinkPhaseFailed {
		return FailureKindNone
	}
	return s.linkFailure
}

// LinkingRemaining reports how long the active code has left. Zero means no
// active code or an already expired one.
func (s *Service) LinkingRemaining() time.Duration {
	if s == nil {
		return 0
	}
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	if s.linkPhase != LinkPhaseCodeActive {
		return 0
	}
	return s.linkCode.Remaining(s.clock())
}

// LinkedIdentity reports the messenger identity confirmed by verification.
func (s *Service) LinkedIdentity() string {
	if s == nil {
		return ""
	}
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return s.linkIdentity
}

// LinkDeepLink builds the messenger deep link for the active code.
func (s *Service) LinkDeepLink() string {
	if s == nil || s.messagingGateway == nil {
		return ""
	}
	s.linkMu.Lock()
	code := s.linkCode.Code
	phase := s.linkPhase
	s.linkMu.Unlock()
	if phase != LinkPhaseCodeActive || strings.TrimSpace(code) == "" {
		return ""
	}
	return s.messagingGateway.DeepLinkURI(code)
}

func (s *Service) runLinkLoop(ctx context.Context, generation uint64, code LinkingCode, cancel <-chan struct{}) {
	countdownTick := s.config.Linking.CountdownTick
	if countdownTick <= 0 {
		countdownTick = time.Second
	}
	pollInterval := s.config.Linking.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	countdown := time.NewTicker(countdownTick)
	defer countdown.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cancel:
			return
		case <-countdown.C:
			if code.ExpiredAt(s.clock()) {
				s.expireLink(ctx, generation)
				return
			}
		case <-poll.C:
			if s.pollLinkOnce(ctx, generation, code) {
				return
			}
		}
	}
}

// pollLinkOnce performs a single verification check. It returns true when
// the loop should stop. The cancellation token is re-checked after the
// in-flight call returns, so a superseded or stopped loop never mutates
// handler state on a late response. Individual check failures are swallowed.
func (s *Service) pollLinkOnce(ctx context.Context, generation uint64, code LinkingCode) bool {
	if s.linkLoopCancelled(generation) {
		return true
	}

	status, err := s.messagingGateway.CheckLinkingStatus(ctx, code.Code)

	s.linkMu.Lock()
	if generation != s.linkGeneration || s.linkPhase != LinkPhaseCodeActive {
		s.linkMu.Unlock()
		return true
	}
	if err != nil {
		s.linkMu.Unlock()
		s.logError(ctx, "linking status check failed", map[string]any{
			"error": err.Error(),
		})
		return false
	}
	if !status.Verified {
		s.linkMu.Unlock()
		return false
	}

	s.linkCode.Verified = true
	s.linkIdentity = strings.TrimSpace(status.Identity)
	profileID := s.linkProfileID
	if s.linkCancel != nil {
		close(s.linkCancel)
		s.linkCancel = nil
	}
	s.linkMu.Unlock()

	s.setLinkPhase(ctx, LinkPhaseVerified)

	if _, recordErr := s.RecordCompletion(ctx, profileID, PartialProgress{
		SetFlags: map[string]bool{FlagMessengerLinked: true},
	}); recordErr != nil {
		s.logError(ctx, "messenger link flag not recorded", map[string]any{
			"profile_id": profileID,
			"error":      recordErr.Error(),
		})
	}

	return true
}

func (s *Service) linkLoopCancelled(generation uint64) bool {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return generation != s.linkGeneration || s.linkPhase != LinkPhaseCodeActive
}

func (s *Service) expireLink(ctx context.Context, generation uint64) {
	s.linkMu.Lock()
	if generation != s.linkGeneration || s.linkPhase != LinkPhaseCodeActive {
		s.linkMu.Unlock()
		return
	}
	if s.linkCancel != nil {
		close(s.linkCancel)
		s.linkCancel = nil
	}
	s.linkMu.Unlock()

	s.setLinkPhase(ctx, LinkPhaseExpired)
}

func (s *Service) cancelLinkTimers() {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	if s.linkCancel != nil {
		close(s.linkCancel)
		s.linkCancel = nil
	}
	s.linkGeneration++
}

func (s *Service) setLinkPhase(ctx context.Context, next LinkPhase) {
	if s == nil {
		return
	}
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	if s.linkPhase == next && next != LinkPhaseCodeActive {
		return
	}
	if !linkPhaseChangeAllowed(s.linkPhase, next) {
		s.logError(ctx, "link phase change rejected", map[string]any{
			"from": string(s.linkPhase),
			"to":   string(next),
		})
		return
	}
	s.linkPhase = next
	if next != LinkPhaseFailed {
		s.linkFailure = FailureKindNone
	}
}

func (s *Service) failLink(ctx context.Context, kind FailureKind) {
	s.setLinkPhase(ctx, LinkPhaseFailed)
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	if s.linkPhase == LinkPhaseFailed {
		s.linkFailure = kind
	}
}
