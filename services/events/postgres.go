package events

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/gorm"
)

// PGNotifier publishes changes with pg_notify on the shared database
type PGNotifier struct {
	db      *gorm.DB
	channel string
}

func NewPGNotifier(db *gorm.DB, channel string) *PGNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PGNotifier{db: db, channel: channel}
}

func (n *PGNotifier) Notify(ctx context.Context, change Change) error {
	payload, err := encode(change)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	if err := n.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", n.channel, payload).Error; err != nil {
		return fmt.Errorf("failed to notify change: %w", err)
	}
	return nil
}

// PGListener feeds a Hub from Postgres LISTEN. It is the relay used when Redis is absent.
type PGListener struct {
	dsn     string
	channel string
	hub     *Hub
	log     *logger.Logger
}

func NewPGListener(dsn, channel string, hub *Hub, log *logger.Logger) *PGListener {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PGListener{dsn: dsn, channel: channel, hub: hub, log: log.With("component", "pg_listener")}
}

// Run listens until ctx is cancelled
func (l *PGListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.log.Warn("listener event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.log.Info("relaying changes", "channel", l.channel)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; changes sent while disconnected are lost
			if n == nil {
				continue
			}
			change, err := decode(n.Extra)
			if err != nil {
				l.log.Warn("dropping malformed change", "error", err)
				continue
			}
			_ = l.hub.Notify(ctx, change)
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				l.log.Warn("listener ping failed", "error", err)
			}
		}
	}
}
