package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycpass/internal/session/models"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		from    models.Phase
		event   Event
		to      models.Phase
		actions []Action
	}{
		{"bind from unbound checks DID", models.PhaseUnbound, EventAccountBound, models.PhaseChecking, []Action{ActionCheckDID}},
		{"rebind from ready checks DID", models.PhaseReady, EventAccountBound, models.PhaseChecking, []Action{ActionCheckDID}},
		{"clear from fetching unbinds", models.PhaseFetchingCredentials, EventAccountCleared, models.PhaseUnbound, []Action{}},
		{"absent DID", models.PhaseChecking, EventDIDAbsent, models.PhaseNoDID, []Action{}},
		{"check failure fails closed", models.PhaseChecking, EventDIDCheckFailed, models.PhaseNoDID, []Action{}},
		{"present DID fetches", models.PhaseChecking, EventDIDPresent, models.PhaseHasDID, []Action{ActionFetchCredentials}},
		{"created DID fetches", models.PhaseNoDID, EventDIDCreated, models.PhaseHasDID, []Action{ActionFetchCredentials}},
		{"fetch from has_did", models.PhaseHasDID, EventFetchStarted, models.PhaseFetchingCredentials, []Action{}},
		{"refetch from ready", models.PhaseReady, EventFetchStarted, models.PhaseFetchingCredentials, []Action{}},
		{"fetched", models.PhaseFetchingCredentials, EventCredentialsFetched, models.PhaseReady, []Action{}},
		{"fetch failed", models.PhaseFetchingCredentials, EventFetchFailed, models.PhaseHasDID, []Action{}},
		{"re-check from ready", models.PhaseReady, EventCheckStarted, models.PhaseChecking, []Action{}},
		{"check after bind", models.PhaseChecking, EventCheckStarted, models.PhaseChecking, []Action{}},
		{"re-check mid-fetch", models.PhaseFetchingCredentials, EventCheckStarted, models.PhaseChecking, []Action{}},
		{"late check failure after create fails closed", models.PhaseFetchingCredentials, EventDIDCheckFailed, models.PhaseNoDID, []Action{}},
		{"late absent DID after create", models.PhaseReady, EventDIDAbsent, models.PhaseNoDID, []Action{}},
		{"fetch outliving re-check settles", models.PhaseHasDID, EventCredentialsFetched, models.PhaseReady, []Action{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, actions, err := Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.actions, actions)
		})
	}
}

func TestNextRejectsInvalidPairs(t *testing.T) {
	invalid := []struct {
		from  models.Phase
		event Event
	}{
		{models.PhaseUnbound, EventCheckStarted},
		{models.PhaseUnbound, EventFetchStarted},
		{models.PhaseNoDID, EventFetchStarted},
		{models.PhaseChecking, EventFetchStarted},
		{models.PhaseUnbound, EventDIDAbsent},
		{models.PhaseUnbound, EventDIDCheckFailed},
		{models.PhaseReady, EventCredentialsFetched},
		{models.PhaseNoDID, EventCredentialsFetched},
		{models.PhaseNoDID, EventDIDPresent},
	}

	for _, tt := range invalid {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			to, actions, err := Next(tt.from, tt.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, to)
			assert.Empty(t, actions)
		})
	}
}

func TestNextIdentitySignalsAcceptedEverywhere(t *testing.T) {
	for _, phase := range allPhases {
		to, _, err := Next(phase, EventAccountCleared)
		require.NoError(t, err)
		assert.Equal(t, models.PhaseUnbound, to)

		to, actions, err := Next(phase, EventAccountBound)
		require.NoError(t, err)
		assert.Equal(t, models.PhaseChecking, to)
		assert.Equal(t, []Action{ActionCheckDID}, actions)
	}
}

func TestNextCheckOutcomesFailClosedFromEveryBoundPhase(t *testing.T) {
	for _, phase := range boundPhases {
		for _, event := range []Event{EventDIDAbsent, EventDIDCheckFailed} {
			to, actions, err := Next(phase, event)
			require.NoError(t, err)
			assert.Equal(t, models.PhaseNoDID, to, "%s on %s", event, phase)
			assert.Empty(t, actions)
		}
	}
}

func TestNextReturnsFreshActionSlices(t *testing.T) {
	_, actions, err := Next(models.PhaseChecking, EventDIDPresent)
	require.NoError(t, err)
	actions[0] = ActionCheckDID

	_, again, err := Next(models.PhaseChecking, EventDIDPresent)
	require.NoError(t, err)
	assert.Equal(t, []Action{ActionFetchCredentials}, again)
}
