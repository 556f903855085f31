package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// changeChannel is the NOTIFY channel installed by the migrations.
const changeChannel = "faro_changes"

// Listen subscribes to row-level change notifications for messages and
// workspaces. The returned channel is closed when ctx is canceled or the
// listening connection fails. Notifications with malformed payloads are
// logged and dropped.
func (s *Store) Listen(ctx context.Context) (<-chan Change, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("subscribing to %s: %w", changeChannel, err)
	}

	changes := make(chan Change)
	go func() {
		defer close(changes)
		defer conn.Release()
		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("change subscription ended", "error", err)
				}
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
				s.logger.Warn("dropping malformed change notification",
					"payload", notification.Payload, "error", err)
				continue
			}
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return changes, nil
}
