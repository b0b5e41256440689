// Package notify fans handshake lifecycle events out to the chat layer.
// Events travel through redis pub/sub so every server instance sees
// completions regardless of which instance handled the browser callback.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	redisclient "github.com/walletbridge/link-server-go/internal/redis"
)

const (
	EventConnectionCompleted = "connection_completed"
	EventConnectionExpired   = "connection_expired"
	EventConnectionCancelled = "connection_cancelled"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	UserID int64
	Events chan Event
	Done   chan struct{}
}

type Broker struct {
	redis   *redisclient.Client
	clients map[int64]map[*Client]bool // userID -> set of clients
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[int64]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(userID int64) *Client {
	client := &Client{
		UserID: userID,
		Events: make(chan Event, 16),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[userID] == nil {
		b.clients[userID] = make(map[*Client]bool)
		go b.subscribeToRedis(userID)
	}
	b.clients[userID][client] = true
	b.mu.Unlock()

	log.Debug().Int64("userId", userID).Msg("notify client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.UserID]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.UserID)
		}
	}
}

func (b *Broker) Publish(ctx context.Context, userID int64, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	event, err := json.Marshal(Event{Type: eventType, Data: payload})
	if err != nil {
		return err
	}

	channel := redisclient.ConnectionChannel(userID)
	return b.redis.Publish(ctx, channel, event).Err()
}

func (b *Broker) subscribeToRedis(userID int64) {
	channel := redisclient.ConnectionChannel(userID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal connection event")
				continue
			}

			b.broadcast(userID, event)
		}
	}
}

func (b *Broker) broadcast(userID int64, event Event) {
	b.mu.RLock()
	clients := b.clients[userID]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().Int64("userId", userID).Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[int64]map[*Client]bool)
}
