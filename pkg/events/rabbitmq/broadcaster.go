package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redhat-data-and-ai/favourites/pkg/events"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	defaultExchange = "favourites.clear-cache"
	headerOrigin    = "x-origin-node"
	publishTimeout  = 10 * time.Second
)

// Config holds the broker settings of the clear cache broadcast
type Config struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Exchange string `mapstructure:"exchange" yaml:"exchange"`
	// NodeID tags published events, defaults to a random id
	NodeID string `mapstructure:"node_id" yaml:"node_id"`
}

// channel is the part of *amqp.Channel used by the broadcaster
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Broadcaster fans clear cache events out to every node through a fanout
// exchange. Each node consumes from its own exclusive auto-delete queue and
// hands received events to the local bus, the publishing node included
type Broadcaster struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	queue    string
	nodeID   string
	bus      *events.Bus
	wg       sync.WaitGroup
}

var _ events.Publisher = (*Broadcaster)(nil)

// Dial connects to the broker and declares the exchange and the node queue
func Dial(cfg Config, bus *events.Bus) (*Broadcaster, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	b, err := newBroadcaster(ch, cfg, bus)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	b.conn = conn
	return b, nil
}

func newBroadcaster(ch channel, cfg Config, bus *events.Bus) (*Broadcaster, error) {
	if bus == nil {
		return nil, errors.New("event bus is required")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = defaultExchange
	}
	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = uuid.NewString()
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare node queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue '%s' to '%s': %w", q.Name, exchange, err)
	}

	return &Broadcaster{
		ch:       ch,
		exchange: exchange,
		queue:    q.Name,
		nodeID:   nodeID,
		bus:      bus,
	}, nil
}

// Publish sends event to every node. The event is applied locally once it
// comes back through this node's queue
func (b *Broadcaster) Publish(ctx context.Context, event events.ClearCacheEvent) error {
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"component": "rabbitmq_broadcaster",
		"exchange":  b.exchange,
		"eventId":   event.ID,
	})

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal clear cache event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.ID,
		Timestamp:   event.IssuedAt,
		Body:        body,
		Headers:     amqp.Table{headerOrigin: b.nodeID},
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := b.ch.PublishWithContext(publishCtx, b.exchange, "", false, false, msg); err != nil {
		log.WithError(err).Error("failed to publish clear cache event")
		return fmt.Errorf("failed to publish clear cache event: %w", err)
	}
	log.Info("published clear cache event")
	return nil
}

// Start consumes the node queue until ctx is cancelled or the channel closes
func (b *Broadcaster) Start(ctx context.Context) error {
	deliveries, err := b.ch.Consume(b.queue, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register a consumer on '%s': %w", b.queue, err)
	}

	logger.Logger(ctx).WithField("queue", b.queue).Info("waiting for clear cache events")

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					logger.Logger(ctx).Warn("clear cache delivery channel closed")
					return
				}
				b.handleDelivery(ctx, d)
			}
		}
	}()
	return nil
}

// handleDelivery rejects payloads that do not decode without requeueing them.
// Listener failures are logged and the delivery is acked, a redelivery would fail the same way
func (b *Broadcaster) handleDelivery(ctx context.Context, d amqp.Delivery) {
	origin, _ := d.Headers[headerOrigin].(string)
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"component":    "rabbitmq_broadcaster",
		"delivery_tag": d.DeliveryTag,
		"origin":       origin,
	})

	var event events.ClearCacheEvent
	if err := json.Unmarshal(d.Body, &event); err != nil || event.ID == "" {
		log.WithError(err).Error("malformed clear cache event, rejecting")
		if rejectErr := d.Reject(false); rejectErr != nil {
			log.WithError(rejectErr).Error("failed to reject delivery")
		}
		return
	}

	ctx = logger.WithFields(ctx, logrus.Fields{"eventId": event.ID, "origin": origin})
	if err := b.bus.Publish(ctx, event); err != nil {
		log.WithError(err).Error("clear cache listeners failed")
	}
	if err := d.Ack(false); err != nil {
		log.WithError(err).Error("failed to ack delivery")
	}
}

// Close stops consuming and releases the channel and connection
func (b *Broadcaster) Close() error {
	var errs []error
	if err := b.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	b.wg.Wait()
	return errors.Join(errs...)
}
