package servicebus

import (
	"context"
	"encoding/json"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// Sender is the part of *azservicebus.Sender the publisher needs.
type Sender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// AssetEventPublisher sends orphaned-asset events to a Service Bus queue or topic.
type AssetEventPublisher struct {
	newSender func() (Sender, error)
}

var _ repository.IAssetEvents = (*AssetEventPublisher)(nil)

func NewAssetEventPublisher(client *azservicebus.Client, queueOrTopic string) *AssetEventPublisher {
	return &AssetEventPublisher{newSender: func() (Sender, error) {
		return client.NewSender(queueOrTopic, nil)
	}}
}

func (p *AssetEventPublisher) PublishOrphaned(ctx context.Context, asset *model.OrphanedAsset) error {
	sender, err := p.newSender()
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, context.WithoutCancel(ctx))

	body, err := json.Marshal(model.NewAssetOrphanedEvent(asset))
	if err != nil {
		return err
	}
	subject := model.EventAssetOrphaned
	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:        body,
		Subject:     &subject,
		ContentType: &contentType,
		ApplicationProperties: map[string]any{
			"kind":      string(asset.Kind),
			"storageId": asset.StorageID,
		},
	}
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
