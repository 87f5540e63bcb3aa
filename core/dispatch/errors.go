package dispatch

import "errors"

// ErrOutOfRadius is a soft failure: the chosen candidate sits outside their
// eligibility radius and the caller did not confirm the override.
var ErrOutOfRadius = errors.New("candidate out of radius")

// ErrMissionLocked is returned by edit and delete operations once a mission
// has an assigned user. Only lifecycle transitions remain legal.
var ErrMissionLocked = errors.New("mission locked after assignment")

// ErrNoCoordinates is returned when a broadcast is attempted before the
// mission has been geocoded.
var ErrNoCoordinates = errors.New("mission has no coordinates")

// AcceptOutcome is the result of one accept call. Exactly one outcome is
// produced per call, chosen atomically under concurrent callers.
type AcceptOutcome int

const (
	AcceptOK AcceptOutcome = iota
	AcceptAlreadyTaken
	AcceptOfferNotFoundOrExpired
	AcceptFailed
)

func (o AcceptOutcome) String() string {
	switch o {
	case AcceptOK:
		return "OK"
	case AcceptAlreadyTaken:
		return "ALREADY_TAKEN"
	case AcceptOfferNotFoundOrExpired:
		return "OFFER_NOT_FOUND_OR_EXPIRED"
	default:
		return "FAILED"
	}
}
