package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCommand("fetch_credentials", OutcomeOK)
	m.ObserveCommand("fetch_credentials", OutcomeBusy)
	m.ObserveCommand("fetch_credentials", OutcomeBusy)
	m.IncrementIdentityTransitions("bound")
	m.IncrementStaleResponses("check_did")
	m.SetCredentialsInSession(3)
	m.ObserveRemoteCall("verify_credential", 20*time.Millisecond, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("fetch_credentials", OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("fetch_credentials", OutcomeBusy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentityTransitions.WithLabelValues("bound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResponsesTotal.WithLabelValues("check_did")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CredentialsInSession))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RemoteCallDuration))

	t.Run("separate registries do not collide", func(t *testing.T) {
		require.NotPanics(t, func() { New(prometheus.NewRegistry()) })
	})
}
