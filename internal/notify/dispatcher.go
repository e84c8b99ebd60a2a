// Package notify delivers user-facing notifications.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Dispatcher delivers a single notification.
type Dispatcher interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// StoreDispatcher persists in-app notifications.
type StoreDispatcher struct {
	repo repository.NotificationRepository
}

// NewStoreDispatcher builds a dispatcher writing to repo.
func NewStoreDispatcher(repo repository.NotificationRepository) *StoreDispatcher {
	return &StoreDispatcher{repo: repo}
}

func (d *StoreDispatcher) Notify(ctx context.Context, n domain.Notification) error {
	return d.repo.Create(ctx, &n)
}

type redisMessage struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// RedisDispatcher publishes notifications on a pub/sub channel for live clients.
type RedisDispatcher struct {
	client  *redis.Client
	channel string
}

// NewRedisDispatcher builds a dispatcher publishing on channel.
func NewRedisDispatcher(client *redis.Client, channel string) *RedisDispatcher {
	return &RedisDispatcher{client: client, channel: channel}
}

func (d *RedisDispatcher) Notify(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(redisMessage{UserID: n.UserID, Message: n.Message, URL: n.URL})
	if err != nil {
		return err
	}
	return d.client.Publish(ctx, d.channel, body).Err()
}

// Multi fans a notification out to every dispatcher. Every dispatcher is
// attempted; failures are joined.
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for i, d := range m {
		if err := d.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
