package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/mallfence/module/core/domain"
)

const (
	toastTopicFormat = "/mall/device/%s/toast"
	publishTimeout   = 5 * time.Second
)

type toastMessage struct {
	Level       domain.ToastLevel `json:"level"`
	Text        string            `json:"text"`
	Description string            `json:"description,omitempty"`
	DurationMs  int64             `json:"duration_ms,omitempty"`
	SentAt      int64             `json:"sent_at"`
}

// ToastPublisher shows in-app toasts by publishing them to the device's toast
// topic. Delivery is QoS 0: a toast missed while the app is closed is gone.
type ToastPublisher struct {
	client pahomqtt.Client
	topic  string
	now    func() time.Time
}

func NewToastPublisher(client pahomqtt.Client, deviceID string) *ToastPublisher {
	return &ToastPublisher{
		client: client,
		topic:  fmt.Sprintf(toastTopicFormat, deviceID),
		now:    time.Now,
	}
}

func (p *ToastPublisher) Toast(ctx context.Context, level domain.ToastLevel, text string, opts domain.ToastOptions) error {
	body, err := json.Marshal(toastMessage{
		Level:       level,
		Text:        text,
		Description: opts.Description,
		DurationMs:  opts.Duration.Milliseconds(),
		SentAt:      p.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal toast: %w", err)
	}

	token := p.client.Publish(p.topic, 0, false, body)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish toast: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish toast: %w", err)
	}
	return nil
}
