package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersDeliveryCounter(t *testing.T) {
	req := require.New(t)
	m := New()

	m.DeliveryEvents.WithLabelValues("receive-message", OutcomeDelivered).Inc()
	m.DeliveryEvents.WithLabelValues("receive-message", OutcomeOffline).Add(2)

	req.Equal(1.0, testutil.ToFloat64(m.DeliveryEvents.WithLabelValues("receive-message", OutcomeDelivered)))
	req.Equal(2.0, testutil.ToFloat64(m.DeliveryEvents.WithLabelValues("receive-message", OutcomeOffline)))

	families, err := m.Registry.Gather()
	req.NoError(err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	req.Contains(names, "quickchat_delivery_events_total")
}

func TestNew_RegistriesAreIndependent(t *testing.T) {
	req := require.New(t)

	first := New()
	second := New()
	first.MessagesStored.Inc()

	req.Equal(1.0, testutil.ToFloat64(first.MessagesStored))
	req.Equal(0.0, testutil.ToFloat64(second.MessagesStored))
}
