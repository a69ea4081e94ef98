package controller

import (
	"errors"
	"fmt"

	"kycpass/internal/session/models"
)

// Event is an input to the session state machine.
type Event string

const (
	EventAccountBound       Event = "account_bound"
	EventAccountCleared     Event = "account_cleared"
	EventCheckStarted       Event = "check_started"
	EventDIDAbsent          Event = "did_absent"
	EventDIDPresent         Event = "did_present"
	EventDIDCheckFailed     Event = "did_check_failed"
	EventDIDCreated         Event = "did_created"
	EventFetchStarted       Event = "fetch_started"
	EventCredentialsFetched Event = "credentials_fetched"
	EventFetchFailed        Event = "fetch_failed"
)

// Action is follow-up work the controller must perform after a transition.
type Action string

const (
	ActionCheckDID         Action = "check_did"
	ActionFetchCredentials Action = "fetch_credentials"
)

// ErrInvalidTransition is returned by Next for an event the phase does not accept.
var ErrInvalidTransition = errors.New("invalid session transition")

type transition struct {
	to      models.Phase
	actions []Action
}

type transitionKey struct {
	from  models.Phase
	event Event
}

type rule struct {
	from    models.Phase
	event   Event
	to      models.Phase
	actions []Action
}

var allPhases = []models.Phase{
	models.PhaseUnbound,
	models.PhaseChecking,
	models.PhaseNoDID,
	models.PhaseHasDID,
	models.PhaseFetchingCredentials,
	models.PhaseReady,
}

var fetch = []Action{ActionFetchCredentials}

var boundPhases = []models.Phase{
	models.PhaseChecking,
	models.PhaseNoDID,
	models.PhaseHasDID,
	models.PhaseFetchingCredentials,
	models.PhaseReady,
}

var rules = []rule{
	{models.PhaseChecking, EventDIDPresent, models.PhaseHasDID, fetch},

	{models.PhaseNoDID, EventDIDCreated, models.PhaseHasDID, fetch},
	{models.PhaseChecking, EventDIDCreated, models.PhaseHasDID, fetch},

	{models.PhaseHasDID, EventFetchStarted, models.PhaseFetchingCredentials, nil},
	{models.PhaseReady, EventFetchStarted, models.PhaseFetchingCredentials, nil},
	{models.PhaseFetchingCredentials, EventCredentialsFetched, models.PhaseReady, nil},
	{models.PhaseFetchingCredentials, EventFetchFailed, models.PhaseHasDID, nil},
	// A fetch that outlived a re-check confirming the DID settles it.
	{models.PhaseHasDID, EventCredentialsFetched, models.PhaseReady, nil},
	{models.PhaseHasDID, EventFetchFailed, models.PhaseHasDID, nil},
}

var transitions = buildTransitions()

func buildTransitions() map[transitionKey]transition {
	t := make(map[transitionKey]transition, len(rules)+2*len(allPhases)+3*len(boundPhases))
	for _, r := range rules {
		t[transitionKey{r.from, r.event}] = transition{to: r.to, actions: r.actions}
	}

	// A re-check may start from any bound phase, including mid-fetch; binding
	// an account enters Checking before the lookup is issued. Its failure or
	// a negative answer fails closed wherever the session has moved to since.
	for _, from := range boundPhases {
		t[transitionKey{from, EventCheckStarted}] = transition{to: models.PhaseChecking}
		t[transitionKey{from, EventDIDAbsent}] = transition{to: models.PhaseNoDID}
		t[transitionKey{from, EventDIDCheckFailed}] = transition{to: models.PhaseNoDID}
	}

	// Identity signals are accepted everywhere. A newly bound account always
	// starts over with a DID check.
	for _, from := range allPhases {
		t[transitionKey{from, EventAccountBound}] = transition{to: models.PhaseChecking, actions: []Action{ActionCheckDID}}
		t[transitionKey{from, EventAccountCleared}] = transition{to: models.PhaseUnbound}
	}
	return t
}

// Next returns the phase that follows phase on event and the actions to run.
// It is pure: it neither reads nor writes session state. An event the phase
// does not accept yields ErrInvalidTransition and the unchanged phase.
func Next(phase models.Phase, event Event) (models.Phase, []Action, error) {
	tr, ok := transitions[transitionKey{phase, event}]
	if !ok {
		return phase, nil, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, phase)
	}
	actions := make([]Action, len(tr.actions))
	copy(actions, tr.actions)
	return tr.to, actions, nil
}
