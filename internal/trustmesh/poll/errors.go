package poll

import apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"

var (
	// ErrInvalidPoll indicates a poll definition that cannot be created.
	ErrInvalidPoll = apperrors.New(apperrors.CodeInvalidPoll, "invalid poll")
	// ErrPollClosed indicates a vote outside the voting window.
	ErrPollClosed = apperrors.New(apperrors.CodePollClosed, "poll is not accepting votes")
	// ErrPollStillOpen indicates resolution before the voting window closed.
	ErrPollStillOpen = apperrors.New(apperrors.CodePollStillOpen, "poll is still open")
	// ErrUnknownOption indicates a vote for an option the poll does not offer.
	ErrUnknownOption = apperrors.New(apperrors.CodeUnknownOption, "unknown poll option")
	// ErrIneligibleVoter indicates a voter who does not meet the eligibility rule.
	ErrIneligibleVoter = apperrors.New(apperrors.CodeIneligibleVoter, "voter is not eligible")
	// ErrNotFound indicates an unknown poll id.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "poll not found")
	// ErrAlreadyExists indicates a poll or vote id that was already recorded.
	ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "poll record already exists")
)

func invalidPoll(reason string, metadata map[string]string) error {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["reason"] = reason
	return apperrors.WithMetadata(apperrors.CodeInvalidPoll, ErrInvalidPoll.Message, metadata)
}
