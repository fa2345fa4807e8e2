package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/monitoring"
)

// PubSubHandler feeds the watch list from the monitor subscription.
type PubSubHandler struct {
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	// Client is owned by the caller, who closes it after Start returns.
	Client           *pubsub.Client
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(cfg PubSubConfig) *PubSubHandler {
	subscriber := cfg.Client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	err := h.dispatcher.Dispatch(ctx, msg.Data)
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, ErrInvalidMessage):
		// Redelivery cannot fix a malformed message.
		logger.Error().Err(err).Msg("dropping invalid message")
		msg.Ack()
	default:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	}
}

// Dispatcher applies decoded job messages to a MonitorJob.
type Dispatcher struct {
	job    *MonitorJob
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher for job.
func NewDispatcher(job *MonitorJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{job: job, logger: logger}
}

// Dispatch decodes and runs one message. Errors wrapping ErrInvalidMessage
// are permanent; any other error is worth a retry.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	start := time.Now()
	logger := d.logger.With().
		Str("job_type", msg.JobType).
		Str("itinerary_id", msg.ItineraryID).
		Logger()

	switch msg.JobType {
	case JobMonitorItinerary:
		w, err := msg.Watch()
		if err != nil {
			return err
		}
		if err := d.job.Watches().Add(w); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		logger.Info().Int("legs", len(w.Legs)).Msg("itinerary watched")

	case JobStopMonitoring:
		if !d.job.Watches().Remove(msg.ItineraryID) {
			logger.Debug().Msg("itinerary was not watched")
			return nil
		}
		logger.Info().Msg("itinerary unwatched")

	case JobHealthCheck:
		if err := d.healthCheck(ctx); err != nil {
			return err
		}
	}

	logger.Debug().Dur("duration", time.Since(start)).Msg("job completed")
	return nil
}

// healthCheck grades every watched itinerary once without publishing.
func (d *Dispatcher) healthCheck(ctx context.Context) error {
	for _, w := range d.job.Watches().Active() {
		if _, err := d.job.monitor.Evaluate(ctx, w); err != nil {
			return fmt.Errorf("health check %s: %w", w.ID, err)
		}
	}
	return nil
}

// AlertPublisher publishes alerts as JSON to a Pub/Sub topic.
type AlertPublisher struct {
	publisher *pubsub.Publisher
	logger    zerolog.Logger
}

// NewAlertPublisher creates a publisher for topic on client.
func NewAlertPublisher(client *pubsub.Client, topic string, logger zerolog.Logger) *AlertPublisher {
	return &AlertPublisher{
		publisher: client.Publisher(topic),
		logger:    logger,
	}
}

// Publish sends the alert and waits for the server to accept it.
func (p *AlertPublisher) Publish(ctx context.Context, alert monitoring.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	res := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"itinerary_id": alert.ItineraryID,
			"severity":     string(alert.Severity),
		},
	})
	id, err := res.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}

	p.logger.Debug().Str("alert_id", alert.ID).Str("server_id", id).Msg("alert published")
	return nil
}

// Stop flushes pending messages.
func (p *AlertPublisher) Stop() {
	p.publisher.Stop()
}

var _ monitoring.Publisher = (*AlertPublisher)(nil)
