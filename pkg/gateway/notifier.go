package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/simplifyhr/offerflow/pkg/offer"
)

type Delivery struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Notifier interface {
	Send(ctx context.Context, n offer.Notification) (Delivery, error)
}

// HTTPNotifier calls the offer email function.
type HTTPNotifier struct {
	client functionClient
}

func NewHTTPNotifier(url, apiKey string, httpClient *http.Client) *HTTPNotifier {
	return &HTTPNotifier{client: newFunctionClient(url, apiKey, httpClient)}
}

func (n *HTTPNotifier) Send(ctx context.Context, notification offer.Notification) (Delivery, error) {
	if notification.To == "" {
		return Delivery{}, errors.New("notification has no recipient")
	}
	var out Delivery
	if err := n.client.post(ctx, "notification", notification, &out); err != nil {
		return Delivery{}, err
	}
	if out.ID == "" {
		return Delivery{}, errors.New("notification response has no delivery id")
	}
	return out, nil
}
