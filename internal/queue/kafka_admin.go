package queue

import (
	"context"
	"fmt"
	"net"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// CheckBrokers dials the provided brokers to verify reachability, retrying
// within timeout.
func CheckBrokers(ctx context.Context, brokers []string, timeout time.Duration) error {
	if len(brokers) == 0 {
		return fmt.Errorf("queue: no brokers provided")
	}

	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		for _, b := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", b)
			if err == nil {
				_ = conn.Close()
				return nil
			}
			lastErr = err
		}
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("queue: failed to reach any broker within %s: %w", timeout, lastErr)
}

// EnsureTopics ensures each named topic exists, creating it via the cluster
// controller if missing.
func EnsureTopics(ctx context.Context, brokers []string, configs []kafka.TopicConfig) error {
	if len(brokers) == 0 {
		return fmt.Errorf("queue: no brokers provided")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("queue: dial broker %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("queue: get controller: %w", err)
	}
	controllerAddr := net.JoinHostPort(controller.Host, fmt.Sprint(controller.Port))

	ctrlConn, err := kafka.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("queue: dial controller %s: %w", controllerAddr, err)
	}
	defer ctrlConn.Close()

	for _, cfg := range configs {
		parts, _ := ctrlConn.ReadPartitions(cfg.Topic)
		if len(parts) > 0 {
			continue
		}
		if err := ctrlConn.CreateTopics(cfg); err != nil {
			return fmt.Errorf("queue: create topic %s: %w", cfg.Topic, err)
		}
	}
	return nil
}
