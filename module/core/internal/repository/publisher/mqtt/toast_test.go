package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type fakeToken struct {
	err  error
	done bool
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{}          { c := make(chan struct{}); close(c); return c }
func (t *fakeToken) Error() error                   { return t.err }

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient embeds the interface so only Publish needs an implementation.
type fakeClient struct {
	pahomqtt.Client
	calls []publishCall
	token *fakeToken
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.calls = append(c.calls, publishCall{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return c.token
}

func TestToast_Publishes(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: true}}
	p := NewToastPublisher(client, "dev-1")
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	err := p.Toast(context.Background(), domain.ToastDefault, "You're near Grand Mall!", domain.ToastOptions{
		Description: "There are active promotions at this mall.",
		Duration:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.calls) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(client.calls))
	}
	call := client.calls[0]
	if call.topic != "/mall/device/dev-1/toast" {
		t.Errorf("unexpected topic %q", call.topic)
	}
	if call.retained {
		t.Error("toast must not be retained")
	}

	var msg toastMessage
	if err := json.Unmarshal(call.payload, &msg); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if msg.Level != domain.ToastDefault || msg.Text != "You're near Grand Mall!" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.DurationMs != 5000 {
		t.Errorf("expected duration 5000ms, got %d", msg.DurationMs)
	}
	if msg.SentAt != 1700000000 {
		t.Errorf("expected sent_at 1700000000, got %d", msg.SentAt)
	}
}

func TestToast_Timeout(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: false}}
	p := NewToastPublisher(client, "dev-1")

	if err := p.Toast(context.Background(), domain.ToastInfo, "hi", domain.ToastOptions{}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestToast_PublishError(t *testing.T) {
	client := &fakeClient{token: &fakeToken{done: true, err: errors.New("not connected")}}
	p := NewToastPublisher(client, "dev-1")

	if err := p.Toast(context.Background(), domain.ToastError, "boom", domain.ToastOptions{}); err == nil {
		t.Fatal("expected error, got nil")
	}
}
