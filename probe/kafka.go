package probe

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jonwraymond/healthops/health"
)

// BrokerPinger is satisfied by clients that can check broker connectivity,
// such as *kgo.Client.
type BrokerPinger interface {
	Ping(ctx context.Context) error
}

var _ BrokerPinger = (*kgo.Client)(nil)

// NewKafkaClient creates a franz-go client for the given seed brokers.
func NewKafkaClient(brokers []string, opts ...kgo.Opt) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers", ErrMissingTarget)
	}
	return kgo.NewClient(append([]kgo.Opt{kgo.SeedBrokers(brokers...)}, opts...)...)
}

// NewKafka creates a probe that pings the cluster through client.
func NewKafka(desc health.Descriptor, client BrokerPinger) (health.Dependency, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: kafka client", ErrMissingClient)
	}
	if desc.Type == "" {
		desc.Type = health.TypeOtherService
	}
	return health.NewPingDependency(desc, func(ctx context.Context) error {
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("kafka ping failed: %w", err)
		}
		return nil
	})
}
