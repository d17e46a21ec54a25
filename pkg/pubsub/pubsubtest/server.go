// Package pubsubtest runs an in-memory Pub/Sub server for tests.
package pubsubtest

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Server wraps pstest with the client options needed to reach it.
type Server struct {
	*pstest.Server
	Options []option.ClientOption
}

// New starts a fake server with the given full topic names created.
func New(t *testing.T, topics ...string) *Server {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	for _, topic := range topics {
		if _, err := srv.GServer.CreateTopic(context.Background(), &pubsubpb.Topic{Name: topic}); err != nil {
			t.Fatalf("create topic %s: %v", topic, err)
		}
	}

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial pstest: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &Server{Server: srv, Options: []option.ClientOption{option.WithGRPCConn(conn)}}
}
