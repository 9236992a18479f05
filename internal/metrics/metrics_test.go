package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))

	before := testutil.ToFloat64(MembershipChanges.WithLabelValues("add", "ok"))
	MembershipChanges.WithLabelValues("add", "ok").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(MembershipChanges.WithLabelValues("add", "ok")))

	n, err := testutil.GatherAndCount(reg, "declaraciones_membership_changes_total")
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)
}
