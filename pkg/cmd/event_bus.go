package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/flowdeckhq/flowdeck/pkg/channels/gochannel"
	"github.com/flowdeckhq/flowdeck/pkg/channels/kafka"
	"github.com/flowdeckhq/flowdeck/pkg/eventbus"
)

// NewEventBus creates an event bus for the given provider. The gochannel bus
// is in-process and suits single-binary deployments and tests; kafka needs a
// broker list.
func NewEventBus(provider, brokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "flowdeck", brokers)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
