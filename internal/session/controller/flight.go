package controller

import (
	"sync"

	"kycpass/internal/session/store"
)

// Command names a logical session command. At most one command of each kind
// runs per account binding at a time.
type Command string

const (
	CommandCheckDID         Command = "check_did"
	CommandCreateDID        Command = "create_did"
	CommandFetchCredentials Command = "fetch_credentials"
	CommandCreateCredential Command = "create_credential"
	CommandVerifyCredential Command = "verify_credential"
)

type flightKey struct {
	command Command
	stamp   store.Stamp
}

// flights tracks outstanding commands. A command for a new binding never
// collides with one begun for a previous binding, even of the same account.
type flights struct {
	mu     sync.Mutex
	active map[flightKey]struct{}
}

func newFlights() *flights {
	return &flights{active: make(map[flightKey]struct{})}
}

// acquire claims the slot for command on stamp. ok is false when the slot
// is already held; release must be called exactly once otherwise.
func (f *flights) acquire(command Command, stamp store.Stamp) (release func(), ok bool) {
	key := flightKey{command: command, stamp: stamp}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[key]; busy {
		return nil, false
	}
	f.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, key)
			f.mu.Unlock()
		})
	}, true
}
