package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LoadOrReset resolves the wizard snapshot for a profile. A missing snapshot
// initializes a fresh one at the first step. A snapshot older than the
// staleness window, or one whose recorded mailbox connection no longer has a
// usable credential behind it, is discarded and replaced with a fresh one.
// The returned LoadOutcome says which of those happened.
func (s *Service) LoadOrReset(ctx context.Context, profileID string) (progress WizardProgress, outcome LoadOutcome, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"profile_id": profileID,
	}
	defer func() {
		fields["outcome"] = string(outcome)
		s.observeOperation(ctx, startedAt, "load_or_reset", err, fields)
	}()

	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		err = s.mapError(ErrProgressProfileRequired)
		return WizardProgress{}, "", err
	}
	if s == nil || s.progressStore == nil {
		err = s.mapError(fmt.Errorf("core: progress store is required"))
		return WizardProgress{}, "", err
	}

	now := s.clock().UTC()

	stored, found, loadErr := s.progressStore.Load(ctx, profileID)
	if loadErr != nil {
		err = s.mapError(loadErr)
		return WizardProgress{}, "", err
	}
	if !found {
		progress, err = s.resetProgress(ctx, profileID, now)
		if err != nil {
			return WizardProgress{}, "", err
		}
		return progress, LoadOutcomeInitialized, nil
	}

	if stored.StaleAt(now, s.config.Wizard.StaleAfter) {
		if s.credentialHolder != nil {
			s.credentialHolder.Clear()
		}
		if deleteErr := s.progressStore.Delete(ctx, profileID); deleteErr != nil {
			err = s.mapError(deleteErr)
			return WizardProgress{}, "", err
		}
		progress, err = s.resetProgress(ctx, profileID, now)
		if err != nil {
			return WizardProgress{}, "", err
		}
		return progress, LoadOutcomeResetStale, nil
	}

	if outcome = s.repairCredentialConsistency(ctx, stored); outcome != "" {
		if deleteErr := s.progressStore.Delete(ctx, profileID); deleteErr != nil {
			err = s.mapError(deleteErr)
			return WizardProgress{}, "", err
		}
		progress, err = s.resetProgress(ctx, profileID, now)
		if err != nil {
			return WizardProgress{}, "", err
		}
		return progress, outcome, nil
	}

	repaired := stored.Clone()
	if highest := HighestReachableStep(repaired); repaired.CurrentStep > highest {
		repaired.CurrentStep = highest
		repaired.LastUpdated = now
		if saveErr := s.progressStore.Save(ctx, repaired); saveErr != nil {
			err = s.mapError(saveErr)
			return WizardProgress{}, "", err
		}
	}

	return repaired, LoadOutcomeResumed, nil
}

// repairCredentialConsistency checks whether the snapshot's claim of a
// connected mailbox still holds. It returns the reset outcome to apply, or
// empty when the snapshot is consistent. Validation failures that are
// themselves transport errors are treated as consistent: the flow must not
// reset just because the backend was unreachable.
func (s *Service) repairCredentialConsistency(ctx context.Context, progress WizardProgress) LoadOutcome {
	if !progress.Flag(FlagMailboxConnected) {
		return ""
	}
	if s.credentialHolder == nil {
		return ""
	}
	cred, ok := s.credentialHolder.Get()
	if !ok || cred.Empty() {
		return LoadOutcomeResetNoCredential
	}
	if s.accountGateway == nil {
		return ""
	}
	valid, err := s.accountGateway.ValidateCredential(ctx)
	if err != nil {
		s.logError(ctx, "credential validation skipped", map[string]any{
			"profile_id": progress.ProfileID,
			"error":      err.Error(),
		})
		return ""
	}
	if !valid {
		s.credentialHolder.Clear()
		return LoadOutcomeResetInvalidCredential
	}
	return ""
}

func (s *Service) resetProgress(ctx context.Context, profileID string, now time.Time) (WizardProgress, error) {
	progress := NewWizardProgress(profileID, now)
	if err := s.progressStore.Save(ctx, progress); err != nil {
		return WizardProgress{}, s.mapError(err)
	}
	return progress, nil
}

// CanAdvance reports whether the gate out of the snapshot's current step is
// open. It is pure over the snapshot contents.
func (s *Service) CanAdvance(progress WizardProgress) bool {
	if progress.CurrentStep.Terminal() {
		return false
	}
	return gateOpen(progress, progress.CurrentStep)
}

// Advance moves the wizard one step forward when the current gate is open,
// persisting the new snapshot before reporting it.
func (s *Service) Advance(ctx context.Context, profileID string) (progress WizardProgress, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"profile_id": profileID,
	}
	defer func() {
		if progress.CurrentStep.Valid() {
			fields["step"] = progress.CurrentStep.String()
		}
		s.observeOperation(ctx, startedAt, "advance", err, fields)
	}()

	progress, err = s.loadForMutation(ctx, profileID)
	if err != nil {
		return WizardProgress{}, err
	}
	if progress.CurrentStep.Terminal() {
		err = s.mapError(fmt.Errorf("%w: %q is terminal", ErrStepGateClosed, progress.CurrentStep))
		return WizardProgress{}, err
	}
	if !gateOpen(progress, progress.CurrentStep) {
		err = s.mapError(fmt.Errorf("%w: at %q", ErrStepGateClosed, progress.CurrentStep))
		return WizardProgress{}, err
	}

	progress.CurrentStep++
	progress.LastUpdated = s.clock().UTC()
	if saveErr := s.progressStore.Save(ctx, progress); saveErr != nil {
		err = s.mapError(saveErr)
		return WizardProgress{}, err
	}

	s.fireStepChanged(ctx, progress)
	return progress, nil
}

// Retreat moves the wizard one step back. Going back is always allowed and
// never clears collected flags or items; the floor is the first step.
func (s *Service) Retreat(ctx context.Context, profileID string) (progress WizardProgress, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"profile_id": profileID,
	}
	defer func() {
		if progress.CurrentStep.Valid() {
			fields["step"] = progress.CurrentStep.String()
		}
		s.observeOperation(ctx, startedAt, "retreat", err, fields)
	}()

	progress, err = s.loadForMutation(ctx, profileID)
	if err != nil {
		return WizardProgress{}, err
	}
	if progress.CurrentStep <= StepFirst {
		return progress, nil
	}

	progress.CurrentStep--
	progress.LastUpdated = s.clock().UTC()
	if saveErr := s.progressStore.Save(ctx, progress); saveErr != nil {
		err = s.mapError(saveErr)
		return WizardProgress{}, err
	}

	s.fireStepChanged(ctx, progress)
	return progress, nil
}

// RecordCompletion merges a partial update (flags, collected items, an
// explicit step) into the snapshot and persists the merged result as one
// write.
func (s *Service) RecordCompletion(ctx context.Context, profileID string, partial PartialProgress) (progress WizardProgress, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"profile_id": profileID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "record_completion", err, fields)
	}()

	progress, err = s.loadForMutation(ctx, profileID)
	if err != nil {
		return WizardProgress{}, err
	}

	merged, mergeErr := progress.Merge(partial, s.clock().UTC())
	if mergeErr != nil {
		err = s.mapError(mergeErr)
		return WizardProgress{}, err
	}
	if saveErr := s.progressStore.Save(ctx, merged); saveErr != nil {
		err = s.mapError(saveErr)
		return WizardProgress{}, err
	}

	if merged.CurrentStep != progress.CurrentStep {
		s.fireStepChanged(ctx, merged)
	}
	return merged, nil
}

// Complete finishes the flow. The snapshot must have reached the terminal
// step. The backend acknowledgment is advisory: when it fails the failure is
// logged, a retry job is enqueued when a queue is wired, and the flow still
// completes locally. The snapshot is deleted either way.
func (s *Service) Complete(ctx context.Context, profileID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"profile_id": profileID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "complete", err, fields)
	}()

	progress, err := s.loadForMutation(ctx, profileID)
	if err != nil {
		return err
	}
	if !progress.CurrentStep.Terminal() {
		err = s.mapError(fmt.Errorf("%w: flow not at %q yet", ErrStepGateClosed, StepFinish))
		return err
	}

	if s.completionNotifier != nil {
		if notifyErr := s.completionNotifier.NotifyCompleted(ctx, progress.ProfileID); notifyErr != nil {
			s.logError(ctx, "completion acknowledgment failed", map[string]any{
				"profile_id": progress.ProfileID,
				"error":      notifyErr.Error(),
			})
			if s.completionQueue != nil {
				if enqueueErr := s.completionQueue.EnqueueCompletionAck(ctx, progress.ProfileID); enqueueErr != nil {
					s.logError(ctx, "completion acknowledgment enqueue failed", map[string]any{
						"profile_id": progress.ProfileID,
						"error":      enqueueErr.Error(),
					})
				}
			}
		}
	}

	if deleteErr := s.progressStore.Delete(ctx, progress.ProfileID); deleteErr != nil {
		err = s.mapError(deleteErr)
		return err
	}

	s.fireFlowComplete(ctx, progress.ProfileID)
	return nil
}

// PurgeStaleProgress removes snapshots older than the retention window and
// reports how many were dropped.
func (s *Service) PurgeStaleProgress(ctx context.Context) (purged int, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["purged"] = purged
		s.observeOperation(ctx, startedAt, "purge_stale_progress", err, fields)
	}()

	if s == nil || s.progressStore == nil {
		err = s.mapError(fmt.Errorf("core: progress store is required"))
		return 0, err
	}
	cutoff := s.clock().UTC().Add(-s.config.Wizard.StaleAfter)
	purged, err = s.progressStore.PurgeStale(ctx, cutoff)
	if err != nil {
		err = s.mapError(err)
		return 0, err
	}
	return purged, nil
}

// Status reports the collaborator-facing view of the flow: current step,
// flags, and whether the terminal step is reached.
func (s *Service) Status(ctx context.Context, profileID string) (FlowStatus, error) {
	progress, _, err := s.LoadOrReset(ctx, profileID)
	if err != nil {
		return FlowStatus{}, err
	}
	return flowStatusFrom(progress), nil
}

func (s *Service) loadForMutation(ctx context.Context, profileID string) (WizardProgress, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return WizardProgress{}, s.mapError(ErrProgressProfileRequired)
	}
	if s == nil || s.progressStore == nil {
		return WizardProgress{}, s.mapError(fmt.Errorf("core: progress store is required"))
	}
	progress, found, err := s.progressStore.Load(ctx, profileID)
	if err != nil {
		return WizardProgress{}, s.mapError(err)
	}
	if !found {
		return WizardProgress{}, s.mapError(fmt.Errorf("%w: %q", ErrProgressNotFound, profileID))
	}
	return progress, nil
}

func (s *Service) fireStepChanged(ctx context.Context, progress WizardProgress) {
	if s == nil || len(s.flowHooks) == 0 {
		return
	}
	status := flowStatusFrom(progress)
	for _, hook := range s.flowHooks {
		if hook == nil {
			continue
		}
		hook.OnStepChanged(ctx, status)
	}
}

func (s *Service) fireFlowComplete(ctx context.Context, profileID string) {
	if s == nil || len(s.flowHooks) == 0 {
		return
	}
	for _, hook := range s.flowHooks {
		if hook == nil {
			continue
		}
		hook.OnFlowComplete(ctx, profileID)
	}
}

func flowStatusFrom(progress WizardProgress) FlowStatus {
	flags := make(map[string]bool, len(progress.StepFlags))
	for key, value := range progress.StepFlags {
		flags[key] = value
	}
	return FlowStatus{
		ProfileID:   progress.ProfileID,
		CurrentStep: progress.CurrentStep,
		StepFlags:   flags,
		Complete:    progress.CurrentStep.Terminal(),
	}
}
