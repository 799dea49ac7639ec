package ws

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEventLabelsStayBounded(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), NewRegistry())

	for i := 0; i < 500; i++ {
		m.event(fmt.Sprintf("junk-%d", i))
	}
	m.event(EventSendMessage)
	m.event(EventTyping)

	assert.Equal(t, 3, testutil.CollectAndCount(m.events))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.events.WithLabelValues(unknownEventLabel)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(EventSendMessage)))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.event(EventRead)
		m.drop(dropMalformed)
		m.delivery("sent")
	})
}
