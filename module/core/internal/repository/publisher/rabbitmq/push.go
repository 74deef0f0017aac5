package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/repository/database"
)

const (
	notificationExchange = "mall.notifications"
	notificationQueue    = "push_notifications"
	directReplyTo        = "amq.rabbitmq.reply-to"

	kindNotification     = "notification"
	kindPermissionPrompt = "permission_prompt"

	defaultPromptTimeout = 30 * time.Second
)

type pushChannel interface {
	publishChannel
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// PushNotifier hands native notifications to the push gateway consuming
// push_notifications. Permission prompts are request/reply over RabbitMQ
// direct reply-to; answers are persisted per device.
type PushNotifier struct {
	ch       pushChannel
	perms    database.PermissionRepository
	deviceID string
	timeout  time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]chan domain.Permission
}

func NewPushNotifier(conn *amqp.Connection, perms database.PermissionRepository, deviceID string, promptTimeout time.Duration, log *slog.Logger) (*PushNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := declareFanout(ch, notificationExchange, notificationQueue); err != nil {
		return nil, err
	}
	return newPushNotifier(ch, perms, deviceID, promptTimeout, log)
}

func newPushNotifier(ch pushChannel, perms database.PermissionRepository, deviceID string, promptTimeout time.Duration, log *slog.Logger) (*PushNotifier, error) {
	replies, err := ch.Consume(directReplyTo, "", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume replies: %w", err)
	}
	if promptTimeout <= 0 {
		promptTimeout = defaultPromptTimeout
	}

	p := &PushNotifier{
		ch:       ch,
		perms:    perms,
		deviceID: deviceID,
		timeout:  promptTimeout,
		log:      log,
		pending:  make(map[string]chan domain.Permission),
	}
	go p.consumeReplies(replies)
	return p, nil
}

type pushMessage struct {
	Kind     string `json:"kind"`
	DeviceID string `json:"device_id"`
	Title    string `json:"title,omitempty"`
	Body     string `json:"body,omitempty"`
	SentAt   int64  `json:"sent_at"`
}

type permissionReply struct {
	DeviceID string `json:"device_id"`
	State    string `json:"state"`
}

func (p *PushNotifier) PermissionState(ctx context.Context) (domain.Permission, error) {
	return p.perms.Get(ctx, p.deviceID)
}

func (p *PushNotifier) Show(ctx context.Context, title, body string) error {
	return p.publish(ctx, pushMessage{
		Kind:     kindNotification,
		DeviceID: p.deviceID,
		Title:    title,
		Body:     body,
		SentAt:   time.Now().Unix(),
	}, amqp.Publishing{})
}

// RequestPermission prompts the device and waits for its answer. A granted or
// denied answer is stored; a timeout leaves the device in the prompt state.
func (p *PushNotifier) RequestPermission(ctx context.Context) (domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	corrID := uuid.NewString()
	reply := make(chan domain.Permission, 1)

	p.mu.Lock()
	p.pending[corrID] = reply
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, corrID)
		p.mu.Unlock()
	}()

	err := p.publish(ctx, pushMessage{
		Kind:     kindPermissionPrompt,
		DeviceID: p.deviceID,
		SentAt:   time.Now().Unix(),
	}, amqp.Publishing{
		CorrelationId: corrID,
		ReplyTo:       directReplyTo,
	})
	if err != nil {
		return domain.PermissionPrompt, err
	}

	select {
	case perm := <-reply:
		if perm != domain.PermissionPrompt {
			if err := p.perms.Set(ctx, p.deviceID, perm); err != nil {
				return perm, fmt.Errorf("store permission: %w", err)
			}
		}
		return perm, nil
	case <-ctx.Done():
		return domain.PermissionPrompt, fmt.Errorf("permission prompt: %w", ctx.Err())
	}
}

func (p *PushNotifier) publish(ctx context.Context, msg pushMessage, props amqp.Publishing) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	props.ContentType = "application/json"
	props.Body = body
	return p.ch.PublishWithContext(ctx, notificationExchange, "", false, false, props)
}

func (p *PushNotifier) consumeReplies(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		var r permissionReply
		if err := json.Unmarshal(d.Body, &r); err != nil {
			p.log.Warn("invalid_permission_reply", "err", err)
			continue
		}

		p.mu.Lock()
		reply, ok := p.pending[d.CorrelationId]
		p.mu.Unlock()
		if !ok {
			p.log.Debug("orphan_permission_reply", "correlation_id", d.CorrelationId)
			continue
		}

		select {
		case reply <- domain.ParsePermission(r.State):
		default:
		}
	}
}
