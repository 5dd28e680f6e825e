package constants

// Error codes surfaced in API error bodies.
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAssociationNotFound = "ASSOCIATION_NOT_FOUND"
	ErrCodeTurnNotFound        = "TURN_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeMembershipNotFound  = "MEMBERSHIP_NOT_FOUND"
	ErrCodeNoRecipient         = "NO_RECIPIENT"
)

const (
	ErrCodeAlreadyHoldingTurn = "ALREADY_HOLDING_TURN"
	ErrCodeAlreadyReserved    = "ALREADY_RESERVED"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeTurnMismatch       = "TURN_MISMATCH"
	ErrCodeNoTurnAssigned     = "NO_TURN_ASSIGNED"
	ErrCodeNothingOwed        = "NOTHING_OWED"
	ErrCodeAssociationFull    = "ASSOCIATION_FULL"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ErrCodeInternal           = "INTERNAL_FAILURE"
)

// Transport-level codes; never produced by the domain services.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeRateLimited  = "RATE_LIMITED"
)

// ErrorMessages holds the human-readable text for each code.
var ErrorMessages = map[string]string{
	ErrCodeNotFound:            "Resource not found",
	ErrCodeAssociationNotFound: "Association not found",
	ErrCodeTurnNotFound:        "Turn not found",
	ErrCodeUserNotFound:        "User not found",
	ErrCodeMembershipNotFound:  "Membership not found",
	ErrCodeNoRecipient:         "No member holds the turn being paid out",
	ErrCodeAlreadyHoldingTurn:  "User already holds an outstanding turn",
	ErrCodeAlreadyReserved:     "Turn is already reserved",
	ErrCodeInvalidState:        "Association is not in the expected state",
	ErrCodeTurnMismatch:        "Membership already holds a different turn",
	ErrCodeNoTurnAssigned:      "Membership has no turn assigned",
	ErrCodeNothingOwed:         "Nothing remaining to pay",
	ErrCodeAssociationFull:     "Association has reached its member limit",
	ErrCodeInvalidAmount:       "Amount must be positive",
	ErrCodeInsufficientFunds:   "Insufficient wallet balance",
	ErrCodeInternal:            "Internal failure",
	ErrCodeBadRequest:          "Malformed request",
	ErrCodeUnauthorized:        "Missing or invalid credentials",
	ErrCodeForbidden:           "Admin role required",
	ErrCodeRateLimited:         "Too many requests",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "An unknown error occurred"
}
