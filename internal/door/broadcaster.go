package door

import (
	"encoding/json"
	"fmt"

	"github.com/pscheid92/bzzzt/internal/adapter/metrics"
	"github.com/pscheid92/bzzzt/internal/domain"
)

// Broadcaster fans a state update out to every connection in the registry.
type Broadcaster struct {
	metrics *metrics.DoorMetrics
}

func NewBroadcaster(m *metrics.DoorMetrics) *Broadcaster {
	return &Broadcaster{metrics: m}
}

func encodeUpdate(update domain.StateUpdate) ([]byte, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state update: %w", err)
	}
	return data, nil
}

// NotifyAll pushes update to every connection with a transport. Delivery is
// best-effort: a failed connection does not stop the fan-out and is returned
// so the caller can remove it.
func (b *Broadcaster) NotifyAll(registry *Registry, update domain.StateUpdate) ([]domain.ConnKey, error) {
	data, err := encodeUpdate(update)
	if err != nil {
		return nil, err
	}

	var failed []domain.ConnKey
	registry.ForEach(func(c *Connection) {
		if c.Virtual() {
			return
		}
		if err := c.Transport.Send(data); err != nil {
			c.logger().WarnContext(c.ctx, "Broadcast delivery failed", "error", err)
			b.metrics.SendFailures.Inc()
			failed = append(failed, c.Key)
		}
	})

	b.metrics.Broadcasts.Inc()
	return failed, nil
}
