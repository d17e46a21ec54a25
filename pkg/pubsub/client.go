// Package pubsub owns the Pub/Sub v2 connection used for customer notifications.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/tradein-backend/pkg/config"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub notification topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client checks topics at startup and hands out one publisher per topic.
type Client struct {
	client       *pubsub.Client
	projectID    string
	topics       []string
	notification string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails when a configured topic is missing.
// It never creates topics.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	c := &Client{
		projectID:  projectID,
		publishers: map[string]*pubsub.Publisher{},
	}
	if topic := c.topicResourceName(cfg.NotificationTopic); topic != "" {
		c.topics = append(c.topics, topic)
	}
	if len(c.topics) == 0 {
		return nil, errNoTopics
	}

	psClient, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c.client = psClient
	c.notification = c.topics[0]

	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		ctx = logg.WithField(ctx, "topics", strings.Join(c.topics, ","))
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

// Ping verifies every configured topic still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, topic := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %q does not exist", topic)
		case err != nil:
			return fmt.Errorf("checking topic %q: %w", topic, err)
		}
	}
	return nil
}

// Publisher returns the cached publisher for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	topic := c.topicResourceName(name)
	if topic == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[topic]; ok {
		return pub
	}
	pub := c.client.Publisher(topic)
	c.publishers[topic] = pub
	return pub
}

// NotificationPublisher returns the publisher for customer notifications.
func (c *Client) NotificationPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.Publisher(c.notification)
}

// Close flushes pending publishes before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for topic, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, topic)
	}
	c.mu.Unlock()
	return c.client.Close()
}

func (c *Client) topicResourceName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	if c == nil || c.projectID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", c.projectID, n)
}
