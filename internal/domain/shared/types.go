package shared

// TransactionKind defines the categories of balance-affecting operations
type TransactionKind string

const (
	TransactionKindCharge      TransactionKind = "CHARGE"
	TransactionKindPayoutShare TransactionKind = "PAYOUT_SHARE"
	TransactionKindRefund      TransactionKind = "REFUND"
	TransactionKindWithdrawal  TransactionKind = "WITHDRAWAL"
	TransactionKindCorrection  TransactionKind = "CORRECTION"
)

// TransactionStatus defines transaction processing states.
// Status transitions only move forward: PENDING -> COMPLETED|FAILED,
// COMPLETED -> REVERSED.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// Direction marks which side of a transfer a ledger row records
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// SessionState defines the assessment session lifecycle states
type SessionState string

const (
	SessionStatePendingPayment SessionState = "PENDING_PAYMENT"
	SessionStateActive         SessionState = "ACTIVE"
	SessionStateCompleted      SessionState = "COMPLETED"
	SessionStateAutoEnded      SessionState = "AUTO_ENDED"
	SessionStateAbandoned      SessionState = "ABANDONED"
)

// IsTerminal reports whether the state admits no further transitions
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionStateCompleted, SessionStateAutoEnded, SessionStateAbandoned:
		return true
	}
	return false
}

// ViolationKind identifies a category of integrity-rule breach
type ViolationKind string

const (
	ViolationTabSwitch        ViolationKind = "tab-switch"
	ViolationCopyPaste        ViolationKind = "copy-paste"
	ViolationRightClick       ViolationKind = "right-click"
	ViolationDevTools         ViolationKind = "dev-tools"
	ViolationFullscreenExit   ViolationKind = "fullscreen-exit"
	ViolationSuspiciousTiming ViolationKind = "suspicious-timing"
	ViolationMultipleSessions ViolationKind = "multiple-sessions"
)

// KnownViolationKinds lists every kind the monitor accepts
var KnownViolationKinds = []ViolationKind{
	ViolationTabSwitch,
	ViolationCopyPaste,
	ViolationRightClick,
	ViolationDevTools,
	ViolationFullscreenExit,
	ViolationSuspiciousTiming,
	ViolationMultipleSessions,
}

// Severity grades a single violation
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the defined severity tiers
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Recommendation is the outcome of a risk verdict
type Recommendation string

const (
	RecommendationAccept Recommendation = "accept"
	RecommendationReview Recommendation = "review"
	RecommendationReject Recommendation = "reject"
)

// OutboxStatus defines event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
