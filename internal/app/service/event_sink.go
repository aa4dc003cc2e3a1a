package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/metrics"
	"go.uber.org/zap"
)

// RequestMeta carries the visitor details recorded with analytics events.
type RequestMeta struct {
	IP        string
	UserAgent string
	Referer   string
}

// EventSink accepts analytics events.
type EventSink interface {
	Publish(ctx context.Context, event *model.ClickEvent) error
}

// EventPublisher publishes click events to NATS JetStream.
type EventPublisher struct {
	js nats.JetStreamContext
}

// NewEventPublisher creates a JetStream backed sink.
func NewEventPublisher(js nats.JetStreamContext) *EventPublisher {
	return &EventPublisher{js: js}
}

func (p *EventPublisher) Publish(ctx context.Context, event *model.ClickEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode click event: %w", err)
	}
	if _, err := p.js.Publish(model.ClickStreamSubject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish click event: %w", err)
	}
	return nil
}

// DirectSink writes events straight to the store; used when NATS is disabled.
type DirectSink struct {
	repo repository.ClickEventRepository
}

func NewDirectSink(repo repository.ClickEventRepository) *DirectSink {
	return &DirectSink{repo: repo}
}

func (s *DirectSink) Publish(ctx context.Context, event *model.ClickEvent) error {
	return s.repo.Create(ctx, event)
}

// EventRecorder hands events to a sink in the background; failures are logged and dropped.
type EventRecorder struct {
	sink   EventSink
	bg     *background
	logger *zap.Logger
	now    func() time.Time
}

// NewEventRecorder wraps sink. A nil sink records nothing.
func NewEventRecorder(sink EventSink, timeout time.Duration, logger *zap.Logger) *EventRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRecorder{sink: sink, bg: newBackground(timeout, logger), logger: logger, now: time.Now}
}

// Record builds and publishes one event.
func (r *EventRecorder) Record(targetType, targetID, kind string, meta RequestMeta) {
	if r == nil || r.sink == nil {
		return
	}
	event := &model.ClickEvent{
		ID:         uuid.NewString(),
		TargetType: targetType,
		TargetID:   targetID,
		Kind:       kind,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		Referer:    meta.Referer,
		Timestamp:  r.now().UTC(),
	}
	r.bg.Go(func(ctx context.Context) {
		err := r.sink.Publish(ctx, event)
		metrics.EventsPublishedTotal.WithLabelValues(metrics.Status(err)).Inc()
		if err != nil {
			r.logger.Warn("failed to record click event",
				zap.String("target_type", targetType),
				zap.String("target_id", targetID),
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
	})
}

// Wait blocks until pending events were handed to the sink.
func (r *EventRecorder) Wait() {
	if r != nil {
		r.bg.Wait()
	}
}
