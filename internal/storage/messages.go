package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/push-notifications/internal/model"
)

// Batch is one atomic unit of processor output: the generated messages, the
// once-mode subscriptions that fired, and optionally the cursor position to
// advance. Everything commits in a single transaction so a crash can never
// acknowledge an event whose messages were not durably written.
type Batch struct {
	Messages               []model.PreparedMessage
	CompletedSubscriptions []int64
	Cursor                 *CursorAdvance
}

type CursorAdvance struct {
	Name   string
	Height uint64
}

func (b Batch) IsEmpty() bool {
	return len(b.Messages) == 0 && len(b.CompletedSubscriptions) == 0 && b.Cursor == nil
}

func (s *Store) CommitBatch(ctx context.Context, batch Batch) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, msg := range batch.Messages {
			if err := enqueueMessage(ctx, tx, msg); err != nil {
				return err
			}
		}

		if len(batch.CompletedSubscriptions) > 0 {
			rows, err := tx.Query(ctx, `
				DELETE FROM subscriptions WHERE uid = ANY($1)
				RETURNING subscriber_address
			`, batch.CompletedSubscriptions)
			if err != nil {
				return err
			}
			addrs := make(map[string]struct{})
			for rows.Next() {
				var addr string
				if err := rows.Scan(&addr); err != nil {
					rows.Close()
					return err
				}
				addrs[addr] = struct{}{}
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
			for addr := range addrs {
				if err := cleanupSubscriber(ctx, tx, addr); err != nil {
					return err
				}
			}
		}

		if batch.Cursor != nil {
			if err := advanceCursor(ctx, tx, batch.Cursor.Name, batch.Cursor.Height); err != nil {
				return err
			}
		}
		return nil
	})
}

func enqueueMessage(ctx context.Context, tx pgx.Tx, msg model.PreparedMessage) error {
	var data []byte
	if msg.Data != nil {
		var err error
		data, err = json.Marshal(msg.Data)
		if err != nil {
			return fmt.Errorf("marshal message data: %w", err)
		}
	}
	var collapseKey *string
	if msg.CollapseKey != "" {
		collapseKey = &msg.CollapseKey
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO messages (device_uid, notification_title, notification_body, data, collapse_key)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.Device.UID, msg.Title, msg.Body, data, collapseKey)
	return err
}

// DequeueMessages returns messages eligible for sending: not yet sent, not
// terminally failed, and due. The device token is joined in; a message whose
// device has been unregistered comes back with an empty FcmUID and is the
// caller's data-consistency failure case.
func (s *Store) DequeueMessages(ctx context.Context, maxAttempts, limit int) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.uid, m.device_uid, COALESCE(d.fcm_uid, ''),
		       m.notification_title, m.notification_body, m.data, m.collapse_key,
		       m.created_at, m.scheduled_for, m.send_attempts_count, COALESCE(m.send_error, '')
		FROM messages m
		LEFT JOIN devices d ON d.uid = m.device_uid
		WHERE m.sent_at IS NULL
		  AND m.send_attempts_count < $1
		  AND m.scheduled_for <= now()
		ORDER BY m.scheduled_for
		LIMIT $2
	`, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var (
			msg         model.Message
			data        []byte
			collapseKey *string
		)
		err := rows.Scan(&msg.UID, &msg.DeviceUID, &msg.FcmUID,
			&msg.Title, &msg.Body, &data, &collapseKey,
			&msg.CreatedAt, &msg.ScheduledFor, &msg.SendAttemptsCount, &msg.SendError)
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			msg.Data = &model.MessageData{}
			if err := json.Unmarshal(data, msg.Data); err != nil {
				return nil, fmt.Errorf("unmarshal data of message %d: %w", msg.UID, err)
			}
		}
		if collapseKey != nil {
			msg.CollapseKey = *collapseKey
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// AckMessage marks the message successfully sent (terminal).
func (s *Store) AckMessage(ctx context.Context, uid int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET sent_at = now() WHERE uid = $1 AND sent_at IS NULL
	`, uid)
	return err
}

// NackMessage records a failed attempt and reschedules the message.
func (s *Store) NackMessage(ctx context.Context, uid int64, attempts int, sendErr string, scheduledFor time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET send_attempts_count = $2, send_error = $3, scheduled_for = $4
		WHERE uid = $1
	`, uid, attempts, sendErr, scheduledFor)
	return err
}

// MarkMessageFailed makes the message terminally failed: the attempt count
// is pinned at the ceiling so the eligibility query never selects it again.
func (s *Store) MarkMessageFailed(ctx context.Context, uid int64, maxAttempts int, sendErr string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET send_attempts_count = $2, send_error = $3
		WHERE uid = $1
	`, uid, maxAttempts, sendErr)
	return err
}
