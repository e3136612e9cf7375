package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	domain "github.com/party-rentals/api/internal/domain"
)

func TestPubSubMailPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "mail-jobs")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubMailPublisher(topic, WithMailSender("no-reply@example.com"))
	if err != nil {
		t.Fatalf("NewPubSubMailPublisher: %v", err)
	}

	msg := domain.MailMessage{
		To:      "owner@example.com",
		Subject: "New Order Received – PR-2026-000042",
		HTML:    "<h2>New Order Received</h2>",
	}

	if err := publisher.Send(ctx, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload mailJobPayload
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.To != msg.To || payload.Subject != msg.Subject || payload.HTML != msg.HTML {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["to"]; attr != "owner@example.com" {
		t.Fatalf("expected recipient attribute, got %q", attr)
	}
	if payload.From != "no-reply@example.com" {
		t.Fatalf("expected sender in payload, got %q", payload.From)
	}
	if _, ok := messages[0].Attributes["html"]; ok {
		t.Fatalf("html attribute should not be present")
	}
}

func TestPubSubMailPublisherRequiresRecipient(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "mail-jobs")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubMailPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubMailPublisher: %v", err)
	}

	if err := publisher.Send(ctx, domain.MailMessage{Subject: "no recipient"}); err == nil {
		t.Fatalf("expected error for missing recipient")
	}
}
