// Package jetstream provides the NATS JetStream binding for the replication
// consumer: connection management, idempotent durable consumer creation, and
// bounded batch pulls.
package jetstream

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/logger"
)

// ConnectWithRetry attempts to establish a connection to NATS with
// exponential backoff. It retries failed attempts for up to 5 minutes,
// starting with 5 second intervals, to ride out broker unavailability during
// startup.
func ConnectWithRetry(url string, log *logger.Logger) (*Client, error) {
	var client *Client

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 5 * time.Minute
	expBackoff.InitialInterval = 5 * time.Second

	operation := func() error {
		var err error
		client, err = NewClient(url, log)
		return err
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after retries: %w", err)
	}

	return client, nil
}
