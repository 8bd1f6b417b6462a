package gateway

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const clickAction = "FLUTTER_NOTIFICATION_CLICK"

type FCM struct {
	client *messaging.Client
}

func NewFCM(ctx context.Context, credentialsFile string) (*FCM, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("fcm credentials file required")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm client: %w", err)
	}
	return &FCM{client: client}, nil
}

func (f *FCM) Send(ctx context.Context, n Notification) error {
	msg := &messaging.Message{
		Token: n.DeviceToken,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			CollapseKey: n.CollapseKey,
			Notification: &messaging.AndroidNotification{
				ClickAction: clickAction,
			},
		},
	}
	if n.CollapseKey != "" {
		msg.APNS = &messaging.APNSConfig{
			Headers: map[string]string{"apns-collapse-id": n.CollapseKey},
		}
	}

	if _, err := f.client.Send(ctx, msg); err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) ||
			messaging.IsSenderIDMismatch(err) ||
			messaging.IsInvalidArgument(err) {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

func (f *FCM) Close() error { return nil }
