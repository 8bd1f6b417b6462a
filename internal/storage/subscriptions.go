package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/wavesplatform/push-notifications/internal/model"
)

type SubscriptionRequest struct {
	TopicURL string
	Topic    model.Topic
	Mode     model.SubscriptionMode
}

// Subscribe inserts the requested subscriptions for the address, enforcing
// the per-address quota. A request for an already-subscribed topic with a
// different mode replaces the existing subscription; an identical one is a
// no-op.
func (s *Store) Subscribe(ctx context.Context, address model.Address, reqs []SubscriptionRequest, maxPerAddress int) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT topic FROM subscriptions WHERE subscriber_address = $1
		`, address.String())
		if err != nil {
			return err
		}
		existing := make(map[string]struct{})
		for rows.Next() {
			var topic string
			if err := rows.Scan(&topic); err != nil {
				rows.Close()
				return err
			}
			existing[topic] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		var toInsert []SubscriptionRequest
		var toReplace []string
		for _, req := range reqs {
			if _, ok := existing[req.TopicURL]; ok {
				continue
			}
			// Same topic under the other mode gets replaced.
			other := req.Topic.URLString(otherMode(req.Mode))
			if _, ok := existing[other]; ok {
				toReplace = append(toReplace, other)
			}
			toInsert = append(toInsert, req)
		}
		if len(toInsert) == 0 {
			return nil
		}

		total := len(existing) - len(toReplace) + len(toInsert)
		if maxPerAddress > 0 && total > maxPerAddress {
			return fmt.Errorf("%w: %d > %d", ErrQuotaExceeded, total, maxPerAddress)
		}

		if len(toReplace) > 0 {
			if _, err := tx.Exec(ctx, `
				DELETE FROM subscriptions
				WHERE subscriber_address = $1 AND topic = ANY($2)
			`, address.String(), toReplace); err != nil {
				return err
			}
		}

		if err := ensureSubscriber(ctx, tx, address.String()); err != nil {
			return err
		}

		for _, req := range toInsert {
			var uid int64
			err := tx.QueryRow(ctx, `
				INSERT INTO subscriptions (subscriber_address, topic, topic_type)
				VALUES ($1, $2, $3)
				RETURNING uid
			`, address.String(), req.TopicURL, req.Mode.Int()).Scan(&uid)
			if err != nil {
				return err
			}
			if req.Topic.Type == model.TopicPriceThreshold {
				_, err := tx.Exec(ctx, `
					INSERT INTO topics_price_threshold (subscription_uid, amount_asset_id, price_asset_id, price_threshold)
					VALUES ($1, $2, $3, $4)
				`, uid, req.Topic.AmountAsset.ID(), req.Topic.PriceAsset.ID(), req.Topic.Threshold.String())
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Unsubscribe removes the given topics for the address; nil topics removes
// all of them. The subscriber row is cleaned up when nothing remains.
func (s *Store) Unsubscribe(ctx context.Context, address model.Address, topics []string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		if topics == nil {
			_, err = tx.Exec(ctx, `
				DELETE FROM subscriptions WHERE subscriber_address = $1
			`, address.String())
		} else {
			_, err = tx.Exec(ctx, `
				DELETE FROM subscriptions
				WHERE subscriber_address = $1 AND topic = ANY($2)
			`, address.String(), topics)
		}
		if err != nil {
			return err
		}
		return cleanupSubscriber(ctx, tx, address.String())
	})
}

// Subscriptions lists the address's topics as (topic URL) strings, oldest
// first.
func (s *Store) Subscriptions(ctx context.Context, address model.Address) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT topic FROM subscriptions
		WHERE subscriber_address = $1
		ORDER BY uid
	`, address.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// MatchingOrderSubscriptions returns the active order-execution
// subscriptions of the given order owners.
func (s *Store) MatchingOrderSubscriptions(ctx context.Context, addresses []model.Address) ([]model.Subscription, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	addrs := make([]string, len(addresses))
	for i, a := range addresses {
		addrs[i] = a.String()
	}

	rows, err := s.pool.Query(ctx, `
		SELECT uid, subscriber_address, topic, topic_type, created_at
		FROM subscriptions
		WHERE subscriber_address = ANY($1)
		ORDER BY uid
	`, addrs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		if sub.Topic.Type == model.TopicOrderExecution {
			subs = append(subs, sub)
		}
	}
	return subs, rows.Err()
}

// MatchingPriceSubscriptions returns threshold subscriptions for the pair
// whose threshold lies within [low, high]. The BETWEEN filter is a coarse
// pre-filter; callers re-check against the exact price range.
func (s *Store) MatchingPriceSubscriptions(ctx context.Context, pair model.AssetPair, low, high decimal.Decimal) ([]model.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.uid, s.subscriber_address, s.topic, s.topic_type, s.created_at
		FROM topics_price_threshold t
		JOIN subscriptions s ON s.uid = t.subscription_uid
		WHERE t.amount_asset_id = $1
		  AND t.price_asset_id = $2
		  AND t.price_threshold BETWEEN $3 AND $4
		ORDER BY s.uid
	`, pair.AmountAsset.ID(), pair.PriceAsset.ID(), low.String(), high.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ActivePricePairs returns every asset pair with at least one threshold
// subscription; the price processor polls observations only for these.
func (s *Store) ActivePricePairs(ctx context.Context) ([]model.AssetPair, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT amount_asset_id, price_asset_id
		FROM topics_price_threshold
		ORDER BY amount_asset_id, price_asset_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []model.AssetPair
	for rows.Next() {
		var amountID, priceID string
		if err := rows.Scan(&amountID, &priceID); err != nil {
			return nil, err
		}
		pairs = append(pairs, model.AssetPair{
			AmountAsset: model.Asset(amountID),
			PriceAsset:  model.Asset(priceID),
		})
	}
	return pairs, rows.Err()
}

func scanSubscription(rows pgx.Rows) (model.Subscription, error) {
	var (
		sub       model.Subscription
		addr      string
		topicURL  string
		topicType int
	)
	if err := rows.Scan(&sub.UID, &addr, &topicURL, &topicType, &sub.CreatedAt); err != nil {
		return model.Subscription{}, err
	}
	topic, mode, err := model.ParseTopic(topicURL)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("broken topic %q in subscription %d: %w", topicURL, sub.UID, err)
	}
	sub.Subscriber = model.Address(addr)
	sub.Topic = topic
	sub.Mode = mode
	return sub, nil
}

func otherMode(m model.SubscriptionMode) model.SubscriptionMode {
	if m == model.ModeOnce {
		return model.ModeRepeat
	}
	return model.ModeOnce
}
