package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStep                 = errors.New("core: invalid wizard step")
	ErrStepGateClosed              = errors.New("core: step gate is closed")
	ErrInvalidConnectPhaseChange   = errors.New("core: invalid connect phase transition")
	ErrInvalidLinkPhaseChange      = errors.New("core: invalid link phase transition")
	ErrProgressNotFound            = errors.New("core: wizard progress not found")
	ErrAuthSessionNotFound         = errors.New("core: auth session not found")
	ErrAuthSessionExpired          = errors.New("core: auth session expired")
	ErrNoActiveLinkingCode         = errors.New("core: no active linking code")
	ErrMessengerAlreadyLinked      = errors.New("core: messenger already linked")
	ErrCredentialMissing           = errors.New("core: access credential is missing")
	ErrFlowAlreadyComplete         = errors.New("core: onboarding flow already complete")
	ErrInvalidCollectedItem        = errors.New("core: invalid collected item")
	ErrProgressProfileRequired     = errors.New("core: progress profile id is required")
	ErrProgressSnapshotOutOfBounds = errors.New("core: progress snapshot step out of bounds")
)

// Step is a 1-based wizard step index.
type Step int

const (
	StepWelcome Step = iota + 1
	StepMailbox
	StepMessenger
	StepCategories
	StepFinish

	StepFirst = StepWelcome
	StepLast  = StepFinish
)

func (s Step) Valid() bool {
	return s >= StepFirst && s <= StepLast
}

func (s Step) Terminal() bool {
	return s == StepLast
}

func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepMailbox:
		return "mailbox"
	case StepMessenger:
		return "messenger"
	case StepCategories:
		return "categories"
	case StepFinish:
		return "finish"
	default:
		return fmt.Sprintf("step_%d", int(s))
	}
}

// Step completion flags carried in the durable snapshot. Gates read these
// and nothing else.
const (
	FlagMailboxConnected = "mailbox_connected"
	FlagMessengerLinked  = "messenger_linked"
)

// CollectedItem is a small record gathered mid-flow (a category the user
// created). Position preserves insertion order.
type CollectedItem struct {
	ID       string
	Kind     string
	Label    string
	Position int
}

func (i CollectedItem) Validate() error {
	if strings.TrimSpace(i.Label) == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidCollectedItem)
	}
	return nil
}

// WizardProgress is the durable snapshot of onboarding state. It is written
// wholesale on every change; partial writes never reach the store.
type WizardProgress struct {
	ProfileID      string
	CurrentStep    Step
	StepFlags      map[string]bool
	CollectedItems []CollectedItem
	LastUpdated    time.Time
}

func NewWizardProgress(profileID string, now time.Time) WizardProgress {
	return WizardProgress{
		ProfileID:   strings.TrimSpace(profileID),
		CurrentStep: StepFirst,
		StepFlags:   map[string]bool{},
		LastUpdated: now.UTC(),
	}
}

func (p WizardProgress) Validate() error {
	if strings.TrimSpace(p.ProfileID) == "" {
		return ErrProgressProfileRequired
	}
	if !p.CurrentStep.Valid() {
		return fmt.Errorf("%w: %d", ErrProgressSnapshotOutOfBounds, p.CurrentStep)
	}
	return nil
}

func (p WizardProgress) Flag(name string) bool {
	if len(p.StepFlags) == 0 {
		return false
	}
	return p.StepFlags[strings.TrimSpace(name)]
}

func (p WizardProgress) Clone() WizardProgress {
	cloned := p
	cloned.StepFlags = make(map[string]bool, len(p.StepFlags))
	for name, set := range p.StepFlags {
		cloned.StepFlags[name] = set
	}
	cloned.CollectedItems = append([]CollectedItem(nil), p.CollectedItems...)
	return cloned
}

// StaleAt reports whether the snapshot is older than the retention window
// at the given instant.
func (p WizardProgress) StaleAt(now time.Time, window time.Duration) bool {
	if p.LastUpdated.IsZero() || window <= 0 {
		return false
	}
	return now.UTC().Sub(p.LastUpdated.UTC()) > window
}

// PartialProgress is a merge payload for RecordCompletion. Nil/zero members
// leave the corresponding snapshot field untouched; AppendItems is additive
// and order-preserving.
type PartialProgress struct {
	Step        *Step
	SetFlags    map[string]bool
	AppendItems []CollectedItem
}

// Merge applies a partial update and stamps LastUpdated. The receiver is
// not mutated.
func (p WizardProgress) Merge(partial PartialProgress, now time.Time) (WizardProgress, error) {
	next := p.Clone()
	if partial.Step != nil {
		if !partial.Step.Valid() {
			return WizardProgress{}, fmt.Errorf("%w: %d", ErrProgressSnapshotOutOfBounds, *partial.Step)
		}
		next.CurrentStep = *partial.Step
	}
	for name, set := range partial.SetFlags {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		next.StepFlags[trimmed] = set
	}
	for _, item := range partial.AppendItems {
		if err := item.Validate(); err != nil {
			return WizardProgress{}, err
		}
		item.Position = len(next.CollectedItems)
		next.CollectedItems = append(next.CollectedItems, item)
	}
	next.LastUpdated = now.UTC()
	return next, nil
}

// gateOpen reports whether the transition from step to step+1 is allowed.
// Gates are pure functions of the snapshot; they never look at network or
// handler state.
func gateOpen(progress WizardProgress, from Step) bool {
	switch from {
	case StepWelcome:
		return true
	case StepMailbox:
		return progress.Flag(FlagMailboxConnected)
	case StepMessenger:
		return progress.Flag(FlagMessengerLinked)
	case StepCategories:
		return len(progress.CollectedItems) >= 1
	default:
		return false
	}
}

// HighestReachableStep returns the furthest step the snapshot's gates allow,
// the ceiling the sequencer clamps CurrentStep against.
func HighestReachableStep(progress WizardProgress) Step {
	reachable := StepFirst
	for step := StepFirst; step < StepLast; step++ {
		if !gateOpen(progress, step) {
			break
		}
		reachable = step + 1
	}
	return reachable
}

// LoadOutcome describes what LoadOrReset did with the durable snapshot.
type LoadOutcome string

const (
	LoadOutcomeInitialized            LoadOutcome = "initialized"
	LoadOutcomeResumed                LoadOutcome = "resumed"
	LoadOutcomeResetStale             LoadOutcome = "reset_stale"
	LoadOutcomeResetNoCredential      LoadOutcome = "reset_no_credential"
	LoadOutcomeResetInvalidCredential LoadOutcome = "reset_invalid_credential"
)

// AccessCredential is the bearer credential used to authorize API calls.
// The refresh capability lives server-side behind an HTTP-only artifact;
// clients only ever hold this access half, and only ever replace it whole.
type AccessCredential struct {
	TokenType   string
	AccessToken string
	ExpiresAt   time.Time
}

func (c AccessCredential) Empty() bool {
	return strings.TrimSpace(c.AccessToken) == ""
}

// LinkingCode is a server-issued, time-boxed secret for the out-of-band
// messenger handshake. A code is superseded by requesting a new one, never
// mutated; Verified flips false -> true exactly once.
type LinkingCode struct {
	Code      string
	ExpiresAt time.Time
	Verified  bool
}

func (c LinkingCode) ExpiredAt(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !c.ExpiresAt.After(now.UTC())
}

func (c LinkingCode) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	remaining := c.ExpiresAt.Sub(now.UTC())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ConnectPhase is the OAuth connection handler's externally visible state.
type ConnectPhase string

const (
	ConnectPhaseIdle             ConnectPhase = "idle"
	ConnectPhaseAwaitingRedirect ConnectPhase = "awaiting_redirect"
	ConnectPhaseExchanging       ConnectPhase = "exchanging"
	ConnectPhaseConnected        ConnectPhase = "connected"
	ConnectPhaseFailed           ConnectPhase = "failed"
)

func connectPhaseChangeAllowed(current, next ConnectPhase) bool {
	allowed := map[ConnectPhase]map[ConnectPhase]struct{}{
		ConnectPhaseIdle: {
			ConnectPhaseAwaitingRedirect: {},
			ConnectPhaseConnected:        {},
			ConnectPhaseFailed:           {},
		},
		ConnectPhaseAwaitingRedirect: {
			ConnectPhaseExchanging: {},
			ConnectPhaseConnected:  {},
			ConnectPhaseFailed:     {},
		},
		ConnectPhaseExchanging: {
			ConnectPhaseConnected: {},
			ConnectPhaseFailed:    {},
		},
		ConnectPhaseFailed: {
			ConnectPhaseIdle:             {},
			ConnectPhaseAwaitingRedirect: {},
		},
		ConnectPhaseConnected: {},
	}
	_, ok := allowed[current][next]
	return ok
}

// LinkPhase is the linking code handler's externally visible state.
type LinkPhase string

const (
	LinkPhaseIdle       LinkPhase = "idle"
	LinkPhaseCodeActive LinkPhase = "code_active"
	LinkPhaseVerified   LinkPhase = "verified"
	LinkPhaseExpired    LinkPhase = "expired"
	LinkPhaseFailed     LinkPhase = "failed"
)

func linkPhaseChangeAllowed(current, next LinkPhase) bool {
	allowed := map[LinkPhase]map[LinkPhase]struct{}{
		LinkPhaseIdle: {
			LinkPhaseCodeActive: {},
			LinkPhaseFailed:     {},
		},
		LinkPhaseCodeActive: {
			LinkPhaseVerified:   {},
			LinkPhaseExpired:    {},
			LinkPhaseIdle:       {},
			LinkPhaseCodeActive: {},
			LinkPhaseFailed:     {},
		},
		LinkPhaseExpired: {
			LinkPhaseCodeActive: {},
			LinkPhaseIdle:       {},
			LinkPhaseFailed:     {},
		},
		LinkPhaseFailed: {
			LinkPhaseCodeActive: {},
			LinkPhaseIdle:       {},
		},
		LinkPhaseVerified: {},
	}
	_, ok := allowed[current][next]
	return ok
}

// FailureKind labels handler-local terminal failures. It is surfaced to the
// UI layer as part of the phase, never thrown past the handler boundary.
type FailureKind string

const (
	FailureKindNone                 FailureKind = ""
	FailureKindInvalidState         FailureKind = "invalid_state"
	FailureKindUserDenied           FailureKind = "user_denied"
	FailureKindExchangeFailed       FailureKind = "exchange_failed"
	FailureKindCodeGenerationFailed FailureKind = "code_generation_failed"
	FailureKindCodeExpired          FailureKind = "code_expired"
)

// FlowStatus is the only surface non-core collaborators see: the step, the
// flags, and whether the flow finished. Handler internals stay internal.
type FlowStatus struct {
	ProfileID   string
	CurrentStep Step
	StepFlags   map[string]bool
	Complete    bool
}
