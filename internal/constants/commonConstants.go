package constants

type (
	RequestSource string
	APIStatus     string
	CachePrefix   string
)

const (
	RequestSourceAPI       RequestSource = "API"
	RequestSourceScheduler RequestSource = "SCHEDULER"

	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixAssociationSummary CachePrefix = "ASSOC_SUMMARY_"
)

// Bounds on association length. One turn cannot settle: its pot is empty
// while the turn-1 fee is positive.
const (
	MinAssociationDuration = 2
	MaxAssociationDuration = 120
)

// AssociationStatus mirrors associations.status.
type AssociationStatus string

const (
	AssociationPending   AssociationStatus = "pending"
	AssociationActive    AssociationStatus = "active"
	AssociationCompleted AssociationStatus = "completed"
)

func (s AssociationStatus) String() string { return string(s) }

// MembershipStatus mirrors memberships.status.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipSuspended MembershipStatus = "suspended"
	MembershipCompleted MembershipStatus = "completed"
)

func (s MembershipStatus) String() string { return string(s) }

// PaymentKind tags each row of the payments audit trail.
type PaymentKind string

const (
	PaymentContribution PaymentKind = "contribution"
	PaymentPayout       PaymentKind = "payout"
	PaymentFee          PaymentKind = "fee"
	PaymentReservation  PaymentKind = "reservation"
	PaymentInstallment  PaymentKind = "installment"
	PaymentDeposit      PaymentKind = "deposit"
)
