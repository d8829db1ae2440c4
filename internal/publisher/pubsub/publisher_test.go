package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublisherPublishesJSON(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	pub, err := Dial(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	_, err = pub.client.CreateTopic(ctx, "audit-events")
	require.NoError(t, err)

	id, err := pub.Publish(ctx, "audit-events", map[string]any{"audit_id": "a-1", "keywords": 2})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "application/json", msgs[0].Attributes["content_type"])
	var got map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, "a-1", got["audit_id"])
}

func TestPublisherRequiresClientAndProject(t *testing.T) {
	t.Parallel()

	_, err := (&Publisher{}).Publish(context.Background(), "t", nil)
	require.Error(t, err)

	_, err = Dial(context.Background(), "")
	require.Error(t, err)

	require.NoError(t, (&Publisher{topics: map[string]*pubsub.Topic{}}).Close())
}
