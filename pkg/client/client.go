package client

import (
	"context"
	"time"

	"studyrooms/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/api/calendar/v3"
)

// Client holds the connections to the external systems the service talks to.
// Only the ones selected by configuration are set.
type Client struct {
	Calendar *calendar.Service
	Mongo    *mongo.Client
	Redis    *redis.Client
}

func NewClient() *Client {
	return &Client{}
}

// GracefulShutdown closes every open connection.
func (c *Client) GracefulShutdown(log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		} else {
			log.Info("Disconnected from MongoDB")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		} else {
			log.Info("Closed Redis client")
		}
	}
}
