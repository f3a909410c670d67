package election

// Error is the reason of a rejected election transaction. The numeric value is
// part of the execution result and is stable across versions.
//
// - implements execution.CodedError
type Error uint8

const (
	// ErrParticipantAlreadyExists is returned when the author is already a
	// participant.
	ErrParticipantAlreadyExists Error = iota + 1

	// ErrAdministrationAlreadyExists is returned when the author is already an
	// administration.
	ErrAdministrationAlreadyExists

	// ErrParticipantNotFound is returned when a voter is not registered.
	ErrParticipantNotFound

	// ErrAdministrationNotFound is returned when the issuer of an election is
	// not registered.
	ErrAdministrationNotFound

	// ErrElectionFinishedEarlierStart is returned when the finish date of an
	// election is not after its start date.
	ErrElectionFinishedEarlierStart

	// ErrElectionNotFound is returned when a vote targets an unknown election.
	ErrElectionNotFound

	// ErrOptionNotFound is returned when a vote targets an unknown option.
	ErrOptionNotFound

	// ErrVotedYet is returned when the participant has already voted in the
	// election.
	ErrVotedYet

	// ErrElectionInactive is returned when a vote arrives after the finish date.
	ErrElectionInactive

	// ErrElectionNotStartedYet is returned when a vote arrives before the start
	// date.
	ErrElectionNotStartedYet
)

var descriptions = map[Error]string{
	ErrParticipantAlreadyExists:     "Participant already exists",
	ErrAdministrationAlreadyExists:  "Administration already exists",
	ErrParticipantNotFound:          "Unable to find participant",
	ErrAdministrationNotFound:       "Unable to find administration",
	ErrElectionFinishedEarlierStart: "Election finished before start",
	ErrElectionNotFound:             "Unable to find election",
	ErrOptionNotFound:               "Unable to find selected option",
	ErrVotedYet:                     "Vote for current participant has been counted yet",
	ErrElectionInactive:             "Election not available for voting",
	ErrElectionNotStartedYet:        "Election not started yet",
}

// Error implements error. It returns the description of the reason.
func (e Error) Error() string {
	desc, found := descriptions[e]
	if !found {
		return "Unknown error"
	}

	return desc
}

// Code implements execution.CodedError.
func (e Error) Code() uint8 {
	return uint8(e)
}
