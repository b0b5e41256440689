package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/walletbridge/link-server-go/internal/notify"
	"github.com/walletbridge/link-server-go/internal/repository"
)

// Sweeper periodically expires pending connections whose deadline has passed.
// The durable backend also pre-expires records via query predicates, so the
// sweep exists primarily for the volatile backend and for keeping statuses
// honest. It is idempotent and safe to run alongside in-flight completions:
// the repository's conditional transition decides every race per record.
type Sweeper struct {
	connRepo repository.ConnectionRepository
	broker   *notify.Broker
	interval time.Duration
	done     chan struct{}
}

func NewSweeper(connRepo repository.ConnectionRepository, broker *notify.Broker, interval time.Duration) *Sweeper {
	return &Sweeper{
		connRepo: connRepo,
		broker:   broker,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
	log.Info().Dur("interval", s.interval).Msg("connection sweeper started")
}

func (s *Sweeper) Stop() {
	close(s.done)
	log.Info().Msg("connection sweeper stopped")
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := s.connRepo.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep expired connections")
		return
	}
	if len(swept) == 0 {
		return
	}

	log.Info().Int("count", len(swept)).Msg("expired pending connections")

	if s.broker == nil {
		return
	}
	for _, conn := range swept {
		err := s.broker.Publish(ctx, conn.UserID, notify.EventConnectionExpired, map[string]any{
			"connectionId": conn.ConnectionID,
		})
		if err != nil {
			log.Warn().Err(err).Str("connectionId", conn.ConnectionID).Msg("failed to publish expiry event")
		}
	}
}
