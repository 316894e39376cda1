// Package pubsub implements a Google Cloud Pub/Sub lifecycle publisher.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gpubsub "cloud.google.com/go/pubsub"

	"github.com/CyborPunk-2077/article-scraper/internal/publisher"
)

// Publisher sends job lifecycle events to a Pub/Sub topic.
type Publisher struct {
	client *gpubsub.Client
	topic  *gpubsub.Topic
}

// New creates a Pub/Sub client and verifies the topic exists, failing fast on
// misconfiguration. Authentication uses Application Default Credentials.
func New(ctx context.Context, projectID, topicName string) (*Publisher, error) {
	client, err := gpubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("check topic %s: %w (close client: %v)", topicName, err, closeErr)
		}
		return nil, fmt.Errorf("check topic %s: %w", topicName, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("pubsub topic %s does not exist in project %s (close client: %v)", topicName, projectID, closeErr)
		}
		return nil, fmt.Errorf("pubsub topic %s does not exist in project %s", topicName, projectID)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Publish marshals the event to JSON and publishes it. The send itself is
// asynchronous; the client batches and retries in the background, so this is
// fire-and-forget.
func (p *Publisher) Publish(ctx context.Context, evt publisher.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.topic.Publish(ctx, &gpubsub.Message{Data: data})
	return nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
