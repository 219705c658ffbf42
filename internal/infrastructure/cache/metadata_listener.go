package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/asakaida/entitystore/internal/infrastructure/logger"
	"github.com/asakaida/entitystore/internal/repositories/postgres"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	defaultPingInterval  = 90 * time.Second
)

// Invalidator drops cached entity types. An empty id drops all of them.
type Invalidator interface {
	Invalidate(id string)
}

// notificationListener is the part of *pq.Listener the metadata listener
// uses
type notificationListener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

func dialListener(connStr string, reportProblem pq.EventCallbackType) notificationListener {
	return pq.NewListener(connStr, minReconnectInterval, maxReconnectInterval, reportProblem)
}

// MetadataListener keeps the entity type caches of distributed instances
// consistent. It uses PostgreSQL LISTEN/NOTIFY on the channel the entity
// type store notifies on every saved or deleted definition.
type MetadataListener struct {
	mu               sync.RWMutex
	invalidator      Invalidator
	connStr          string
	channel          string
	listener         notificationListener
	dial             func(connStr string, reportProblem pq.EventCallbackType) notificationListener
	logger           *zap.SugaredLogger
	pingInterval     time.Duration
	lastNotification time.Time
	stopCh           chan struct{}
	doneCh           chan struct{}
	stopped          bool
}

// NewMetadataListener creates a new MetadataListener.
// connStr is the PostgreSQL connection string for LISTEN/NOTIFY.
func NewMetadataListener(connStr string, invalidator Invalidator) *MetadataListener {
	return &MetadataListener{
		invalidator:  invalidator,
		connStr:      connStr,
		channel:      postgres.EntityTypesChannel,
		logger:       logger.Named("metadata-listener"),
		pingInterval: defaultPingInterval,
		dial:         dialListener,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start starts listening for entity type changes
func (m *MetadataListener) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			// notifications are lost while disconnected; the cache TTL bounds staleness
			m.logger.Warnw("Listener connection problem", logger.FieldChannel, m.channel, logger.FieldError, err)
		}
	}

	listener := m.dial(m.connStr, reportProblem)
	if err := listener.Listen(m.channel); err != nil {
		listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", m.channel, err)
	}

	m.mu.Lock()
	m.listener = listener
	m.mu.Unlock()

	m.logger.Infow("Listening for entity type changes", logger.FieldChannel, m.channel)
	go m.run(listener.NotificationChannel(), listener.Ping)
	return nil
}

// Stop stops listening and waits for the notification loop to exit
func (m *MetadataListener) Stop() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.stopCh)
	listener := m.listener
	m.mu.Unlock()

	// the loop only runs after a successful Start
	if listener == nil {
		return nil
	}
	<-m.doneCh
	return listener.Close()
}

// LastNotification returns when the last notification was handled
func (m *MetadataListener) LastNotification() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastNotification
}

func (m *MetadataListener) run(notify <-chan *pq.Notification, ping func() error) {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case n := <-notify:
			m.handle(n)
		case <-ticker.C:
			go func() {
				if err := ping(); err != nil {
					m.logger.Warnw("Listener ping failed", logger.FieldChannel, m.channel, logger.FieldError, err)
				}
			}()
		}
	}
}

// handle invalidates the entity type named in the payload. A nil
// notification means the connection was re-established and changes may
// have been missed, so everything is invalidated.
func (m *MetadataListener) handle(n *pq.Notification) {
	id := ""
	if n != nil {
		id = n.Extra
	}
	m.logger.Debugw("Entity type changed", logger.FieldEntityType, id)
	m.invalidator.Invalidate(id)

	m.mu.Lock()
	m.lastNotification = time.Now()
	m.mu.Unlock()
}
