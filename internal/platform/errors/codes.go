// Package errors provides coded domain errors shared by the trust engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Event boundary errors
	CodeValidation   Code = "VALIDATION_FAILED"
	CodeUnknownEvent Code = "UNKNOWN_EVENT_TYPE"

	// Trust ledger errors
	CodeInvalidRelationship Code = "INVALID_RELATIONSHIP"

	// Badge registry errors
	CodeInvalidRarity Code = "INVALID_RARITY"

	// Poll errors
	CodeInvalidPoll     Code = "INVALID_POLL"
	CodePollClosed      Code = "POLL_CLOSED"
	CodePollStillOpen   Code = "POLL_STILL_OPEN"
	CodeUnknownOption   Code = "UNKNOWN_OPTION"
	CodeIneligibleVoter Code = "INELIGIBLE_VOTER"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - malformed input the caller can fix
	case CodeValidation,
		CodeUnknownEvent,
		CodeInvalidRelationship,
		CodeInvalidRarity,
		CodeInvalidPoll,
		CodeUnknownOption:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodePollClosed,
		CodePollStillOpen,
		CodeIneligibleVoter:
		return codes.FailedPrecondition

	case CodeNotFound:
		return codes.NotFound

	case CodeAlreadyExists:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
