package provider

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	simulatedMinDelay    = 50 * time.Millisecond
	simulatedJitterRange = 100 * time.Millisecond
)

// SimulatedProvider accepts every message after a short random delay without
// touching the network.
type SimulatedProvider struct {
	randInt63n func(n int64) int64
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{
		randInt63n: rand.Int63n,
		sleep:      sleepWithContext,
	}
}

func (p *SimulatedProvider) Name() string { return NameSimulated }

func (p *SimulatedProvider) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	delay := simulatedMinDelay + time.Duration(p.randInt63n(int64(simulatedJitterRange)))
	if err := p.sleep(ctx, delay); err != nil {
		return nil, &ProviderError{Provider: NameSimulated, Message: "simulated send interrupted", Cause: err}
	}

	return &Receipt{
		StatusCode: http.StatusAccepted,
		MessageID:  "demo-" + uuid.NewString(),
	}, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
