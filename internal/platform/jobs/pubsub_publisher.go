package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	domain "github.com/party-rentals/api/internal/domain"
)

// mailJobPayload is the message body consumed by the mail delivery worker.
type mailJobPayload struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// PubSubMailPublisher queues outbound email jobs on a Pub/Sub topic. Delivery
// happens out of process, so a slow SMTP upstream never blocks checkout.
type PubSubMailPublisher struct {
	topic   *pubsub.Topic
	sender  string
	marshal func(any) ([]byte, error)
}

// MailPublisherOption customises the mail publisher.
type MailPublisherOption func(*PubSubMailPublisher)

// WithMailSender sets the from address stamped on every queued job. The
// delivery worker falls back to its own default when unset.
func WithMailSender(address string) MailPublisherOption {
	return func(p *PubSubMailPublisher) {
		p.sender = strings.TrimSpace(address)
	}
}

// NewPubSubMailPublisher constructs a Pub/Sub backed mail queue.
func NewPubSubMailPublisher(topic *pubsub.Topic, opts ...MailPublisherOption) (*PubSubMailPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub mail publisher: topic is required")
	}
	publisher := &PubSubMailPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(publisher)
		}
	}
	return publisher, nil
}

// Send enqueues a mail job on the configured topic.
func (p *PubSubMailPublisher) Send(ctx context.Context, msg domain.MailMessage) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub mail publisher: not initialised")
	}

	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("pubsub mail publisher: recipient is required")
	}

	data, err := p.marshal(mailJobPayload{
		From:    p.sender,
		To:      to,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "from", p.sender)
	setAttr(attrs, "to", to)
	setAttr(attrs, "subject", msg.Subject)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish mail job: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
