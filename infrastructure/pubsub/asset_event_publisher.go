package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// AssetEventPublisher publishes orphaned-asset events to a Pub/Sub topic.
type AssetEventPublisher struct {
	client  *pubsub.Client
	topicID string

	once  sync.Once
	topic *pubsub.Topic
	err   error
}

var _ repository.IAssetEvents = (*AssetEventPublisher)(nil)

func NewAssetEventPublisher(client *pubsub.Client, topicID string) *AssetEventPublisher {
	return &AssetEventPublisher{client: client, topicID: topicID}
}

func (p *AssetEventPublisher) PublishOrphaned(ctx context.Context, asset *model.OrphanedAsset) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(model.NewAssetOrphanedEvent(asset))
	if err != nil {
		return err
	}
	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":      model.EventAssetOrphaned,
			"kind":      string(asset.Kind),
			"storageId": asset.StorageID,
		},
	}

	serverID, err := topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("storageId", asset.StorageID).Info("Orphan event published")
	return nil
}

// Close flushes pending messages.
func (p *AssetEventPublisher) Close() {
	if p.topic != nil {
		p.topic.Stop()
	}
}

// ensureTopic creates the topic on first use if it doesn't exist.
func (p *AssetEventPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.client.Topic(p.topicID)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.err = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicID).Info("Topic doesn't exist - creating it")
			if topic, err = p.client.CreateTopic(ctx, p.topicID); err != nil {
				p.err = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.err
}
