package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"

	"course-service/domain/model"
	coursepubsub "course-service/infrastructure/pubsub"

	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestAssetEventPublisher_PublishOrphaned(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := coursepubsub.NewPubSub(ctx, "course-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	publisher := coursepubsub.NewAssetEventPublisher(client, "course-assets")
	defer publisher.Close()

	asset := &model.OrphanedAsset{ID: 5, StorageID: "vid-1", Kind: model.MediaKindVideo, CourseID: "course-1", Reason: "quota"}
	require.NoError(t, publisher.PublishOrphaned(ctx, asset))
	require.NoError(t, publisher.PublishOrphaned(ctx, asset))

	msgs := srv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.EventAssetOrphaned, msgs[0].Attributes["type"])
	assert.Equal(t, "vid-1", msgs[0].Attributes["storageId"])

	var event model.AssetOrphanedEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &event))
	assert.Equal(t, int64(5), event.LedgerID)
	assert.Equal(t, "course-1", event.CourseID)
	assert.Equal(t, model.MediaKindVideo, event.Kind)
}

func TestNewPubSub_RequiresProject(t *testing.T) {
	client, err := coursepubsub.NewPubSub(context.Background(), "")
	assert.Nil(t, client)
	assert.Error(t, err)
}
