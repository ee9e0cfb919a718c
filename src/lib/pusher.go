package lib

import (
	"context"
	"errors"
	"log"
	"vbs/src/config"
	"vbs/src/types"

	"github.com/pusher/pusher-http-go/v5"
)

const paymentStatusEvent = "payment-status"

// PusherNotifier pushes payment outcomes to the channel the client app
// subscribes to after starting a checkout, so it does not have to poll.
type PusherNotifier struct {
	client *pusher.Client
}

func NewPusherNotifier(client *pusher.Client) *PusherNotifier {
	return &PusherNotifier{client: client}
}

// GetPusherClient returns nil when Pusher is not configured.
func GetPusherClient(cfg *config.Config) *pusher.Client {
	if cfg.PusherAppID == "" || cfg.PusherKey == "" || cfg.PusherSecret == "" {
		return nil
	}
	return &pusher.Client{
		AppID:   cfg.PusherAppID,
		Key:     cfg.PusherKey,
		Secret:  cfg.PusherSecret,
		Cluster: cfg.PusherCluster,
		Secure:  true,
	}
}

// PaymentChannel is the channel name for a checkout reference.
func PaymentChannel(ref string) string {
	return "payment-" + ref
}

func (p *PusherNotifier) Publish(ctx context.Context, key string, payload types.JSONB) error {
	if err := p.client.Trigger(PaymentChannel(key), paymentStatusEvent, payload); err != nil {
		log.Printf("Error triggering %s on %s: %s\n", paymentStatusEvent, PaymentChannel(key), err.Error())
		return err
	}
	return nil
}

// Publishers fans a payment event out to every configured publisher. Every
// publisher is attempted even when an earlier one fails.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, key string, payload types.JSONB) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, key, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
