package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/soypat/ism43362"
	mqtt "github.com/soypat/natiu-mqtt"
)

const mqttTimeout = 5 * time.Second

var errDone = errors.New("ismctl: done publishing")

// runMQTT publishes a message to the configured broker over a module socket.
func runMQTT(ctx context.Context, a *ism43362.Adapter, cfg MQTTConfig, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("mqtt", flag.ContinueOnError)
	count := fs.Int("n", 1, "Number of messages to publish.")
	interval := fs.Duration("interval", time.Second, "Time between messages.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	payload := strings.Join(fs.Args(), " ")
	if payload == "" {
		payload = "hello world"
	}

	conn, err := dialer{a: a}.DialContext(ctx, "tcp", cfg.Broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1024)},
		OnPub: func(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			logger.Info("mqtt:received", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	})
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(cfg.ClientID))

	cctx, cancel := context.WithTimeout(ctx, mqttTimeout)
	defer cancel()
	conn.SetDeadline(time.Now().Add(mqttTimeout))
	if err := client.Connect(cctx, conn, &varconn); err != nil {
		return err
	}
	logger.Info("mqtt:connected", slog.String("broker", cfg.Broker))

	pubFlags, _ := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	pubVar := mqtt.VariablesPublish{TopicName: []byte(cfg.Topic)}
	for i := 0; i < *count && client.IsConnected(); i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		conn.SetDeadline(time.Now().Add(mqttTimeout))
		pubVar.PacketIdentifier++
		if err := client.PublishPayload(pubFlags, pubVar, []byte(payload)); err != nil {
			return err
		}
		logger.Info("mqtt:published", slog.String("topic", cfg.Topic), slog.Uint64("packetID", uint64(pubVar.PacketIdentifier)))
	}
	if !client.IsConnected() {
		return client.Err()
	}
	return client.Disconnect(errDone)
}
