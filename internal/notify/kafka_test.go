package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/LJTian/NewsPulse/internal/snapshot"
)

func sampleDoc() *snapshot.Document {
	return &snapshot.Document{
		Source:      "CBC News",
		GeneratedAt: "2025-11-05T14:05:00-05:00",
		Timezone:    "America/Toronto",
		Items: []snapshot.Item{
			{ID: "a", Section: "canada"},
			{ID: "b", Section: "canada"},
			{ID: "c", Section: "world"},
		},
	}
}

func TestKafkaPublisherSendsEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Items != 3 || ev.Sections["canada"] != 2 || ev.Sections["world"] != 1 {
			return errors.New("unexpected event payload: " + string(val))
		}
		if ev.GeneratedAt != "2025-11-05T14:05:00-05:00" {
			return errors.New("unexpected generated_at: " + ev.GeneratedAt)
		}
		return nil
	})

	p := newKafkaPublisher(producer, "newspulse.snapshots")
	if err := p.Publish(context.Background(), sampleDoc(), nil); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestKafkaPublisherReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newKafkaPublisher(producer, "newspulse.snapshots")
	err := p.Publish(context.Background(), sampleDoc(), nil)
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}
	_ = p.Close()
}
