package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nandanugg/mallfence/config"
)

const (
	exchangeName = "mall.events"
	queueName    = "geofence_events"
)

type transitionMessage struct {
	DeviceID     string  `json:"device_id"`
	GeofenceName string  `json:"geofence_name"`
	Event        string  `json:"event"`
	Distance     float64 `json:"distance_meters"`
	Timestamp    int64   `json:"timestamp"`
}

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	conn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Error("rabbitmq", "err", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Error("rabbitmq channel", "err", err)
		os.Exit(1)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		log.Error("declare exchange", "err", err)
		os.Exit(1)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Error("declare queue", "err", err)
		os.Exit(1)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		log.Error("bind queue", "err", err)
		os.Exit(1)
	}

	msgs, err := ch.Consume(queueName, "", true, false, false, false, nil)
	if err != nil {
		log.Error("consume", "err", err)
		os.Exit(1)
	}

	log.Info("consuming", "queue", queueName)

	go func() {
		for msg := range msgs {
			var ev transitionMessage
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				log.Warn("invalid_event", "err", err)
				continue
			}
			fmt.Printf("%s [%s] %s %s (%.0fm)\n",
				time.Unix(ev.Timestamp, 0).Format(time.RFC3339), ev.Event, ev.DeviceID, ev.GeofenceName, ev.Distance)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting_down")
}
