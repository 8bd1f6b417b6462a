package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/push-notifications/internal/model"
)

func (s *Store) RegisterDevice(ctx context.Context, address model.Address, fcmUID, language string, utcOffsetSeconds int) error {
	if fcmUID == "" {
		return fmt.Errorf("fcm uid required")
	}
	if err := model.ValidateUTCOffset(utcOffsetSeconds); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureSubscriber(ctx, tx, address.String()); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO devices (subscriber_address, fcm_uid, language, utc_offset_seconds)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (subscriber_address, fcm_uid)
			DO UPDATE SET language = $3, utc_offset_seconds = $4, updated_at = now()
		`, address.String(), fcmUID, language, utcOffsetSeconds)
		return err
	})
}

type DeviceUpdate struct {
	Language         *string
	UTCOffsetSeconds *int
	NewFcmUID        *string
}

func (s *Store) UpdateDevice(ctx context.Context, address model.Address, fcmUID string, upd DeviceUpdate) error {
	if upd.UTCOffsetSeconds != nil {
		if err := model.ValidateUTCOffset(*upd.UTCOffsetSeconds); err != nil {
			return err
		}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices
		SET language = COALESCE($3, language),
		    utc_offset_seconds = COALESCE($4, utc_offset_seconds),
		    fcm_uid = COALESCE($5, fcm_uid),
		    updated_at = now()
		WHERE subscriber_address = $1 AND fcm_uid = $2
	`, address.String(), fcmUID, upd.Language, upd.UTCOffsetSeconds, upd.NewFcmUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (s *Store) UnregisterDevice(ctx context.Context, address model.Address, fcmUID string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM devices
			WHERE subscriber_address = $1 AND fcm_uid = $2
		`, address.String(), fcmUID)
		if err != nil {
			return err
		}
		return cleanupSubscriber(ctx, tx, address.String())
	})
}

func (s *Store) DeviceExists(ctx context.Context, address model.Address, fcmUID string) (bool, error) {
	var uid int32
	err := s.pool.QueryRow(ctx, `
		SELECT uid FROM devices
		WHERE subscriber_address = $1 AND fcm_uid = $2
	`, address.String(), fcmUID).Scan(&uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DevicesByAddresses loads the fan-out target set for the given subscribers.
func (s *Store) DevicesByAddresses(ctx context.Context, addresses []model.Address) (map[model.Address][]model.Device, error) {
	if len(addresses) == 0 {
		return map[model.Address][]model.Device{}, nil
	}
	addrs := make([]string, len(addresses))
	for i, a := range addresses {
		addrs[i] = a.String()
	}

	rows, err := s.pool.Query(ctx, `
		SELECT uid, subscriber_address, fcm_uid, language, utc_offset_seconds
		FROM devices
		WHERE subscriber_address = ANY($1)
		ORDER BY uid
	`, addrs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.Address][]model.Device)
	for rows.Next() {
		var (
			dev  model.Device
			addr string
		)
		if err := rows.Scan(&dev.UID, &addr, &dev.FcmUID, &dev.Language, &dev.UTCOffsetSeconds); err != nil {
			return nil, err
		}
		dev.Address = model.Address(addr)
		out[dev.Address] = append(out[dev.Address], dev)
	}
	return out, rows.Err()
}
