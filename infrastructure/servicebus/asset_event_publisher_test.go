package servicebus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"course-service/domain/model"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent    []*azservicebus.Message
	sendErr error
	closed  int
}

func (f *fakeSender) SendMessage(_ context.Context, m *azservicebus.Message, _ *azservicebus.SendMessageOptions) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) Close(context.Context) error {
	f.closed++
	return nil
}

func TestAssetEventPublisher_SendsEvent(t *testing.T) {
	sender := &fakeSender{}
	p := &AssetEventPublisher{newSender: func() (Sender, error) { return sender, nil }}

	err := p.PublishOrphaned(context.Background(), &model.OrphanedAsset{ID: 3, StorageID: "img-1", Kind: model.MediaKindImage})

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, model.EventAssetOrphaned, *msg.Subject)
	assert.Equal(t, "img-1", msg.ApplicationProperties["storageId"])

	var event model.AssetOrphanedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &event))
	assert.Equal(t, int64(3), event.LedgerID)
	assert.Equal(t, 1, sender.closed)
}

func TestAssetEventPublisher_SendFailure(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("link detached")}
	p := &AssetEventPublisher{newSender: func() (Sender, error) { return sender, nil }}

	err := p.PublishOrphaned(context.Background(), &model.OrphanedAsset{StorageID: "vid"})

	assert.EqualError(t, err, "link detached")
	assert.Equal(t, 1, sender.closed)
}

func TestAssetEventPublisher_SenderUnavailable(t *testing.T) {
	p := &AssetEventPublisher{newSender: func() (Sender, error) { return nil, errors.New("no namespace") }}

	assert.Error(t, p.PublishOrphaned(context.Background(), &model.OrphanedAsset{StorageID: "vid"}))
}

func TestNewServiceBus_RequiresNamespace(t *testing.T) {
	client, err := NewServiceBus(context.Background(), "")
	assert.Nil(t, client)
	assert.Error(t, err)
}
