package powerup

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/MekelWibi/SumoProjectKP/powerup"

// Meter is the meter power-up metrics are recorded on, taken from the global
// provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics counts what the authority arbitrates. Nothing is exported unless a
// global meter provider is installed.
type Metrics struct {
	pickupsConsumed metric.Int64Counter
	claimsRejected  metric.Int64Counter
	possessionsEnd  metric.Int64Counter
	impulses        metric.Int64Counter
	requestsDropped metric.Int64Counter
}

func NewMetrics(m metric.Meter) (*Metrics, error) {
	var (
		mt  Metrics
		err error
	)

	mt.pickupsConsumed, err = m.Int64Counter(
		"powerup.pickups.consumed",
		metric.WithDescription("Pickups removed by a winning despawn request"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pickups consumed counter: %w", err)
	}

	mt.claimsRejected, err = m.Int64Counter(
		"powerup.claims.rejected",
		metric.WithDescription("Despawn or possession claims the authority refused"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating claims rejected counter: %w", err)
	}

	mt.possessionsEnd, err = m.Int64Counter(
		"powerup.possessions.ended",
		metric.WithDescription("Possessions ended, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating possessions ended counter: %w", err)
	}

	mt.impulses, err = m.Int64Counter(
		"powerup.impulses.relayed",
		metric.WithDescription("Collision impulses applied and broadcast"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating impulses counter: %w", err)
	}

	mt.requestsDropped, err = m.Int64Counter(
		"powerup.requests.dropped",
		metric.WithDescription("Requests dropped before reaching a handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating requests dropped counter: %w", err)
	}

	return &mt, nil
}

func (m *Metrics) pickupConsumed() {
	if m == nil {
		return
	}
	m.pickupsConsumed.Add(context.Background(), 1)
}

func (m *Metrics) claimRejected(kind string) {
	if m == nil {
		return
	}
	m.claimsRejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) possessionEnded(reason string) {
	if m == nil {
		return
	}
	m.possessionsEnd.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) impulseRelayed(strong bool) {
	if m == nil {
		return
	}
	m.impulses.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("strong", strong)))
}

func (m *Metrics) requestDropped(reason string) {
	if m == nil {
		return
	}
	m.requestsDropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}
