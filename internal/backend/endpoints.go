package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/packfinderz-driver/internal/deliveries"
	"github.com/angelmondragon/packfinderz-driver/internal/location"
	"github.com/angelmondragon/packfinderz-driver/internal/session"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
)

var (
	_ deliveries.Backend    = (*Client)(nil)
	_ location.Pusher       = (*Client)(nil)
	_ session.Authenticator = (*Client)(nil)
)

// Login exchanges driver credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, session.User, error) {
	raw, err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/login",
		body:   loginRequest{Email: email, Password: password},
	})
	if err != nil {
		return "", session.User{}, err
	}
	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", session.User{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode login response")
	}
	token := strings.TrimSpace(resp.Token)
	if token == "" {
		token = strings.TrimSpace(resp.AccessToken)
	}
	if token == "" {
		return "", session.User{}, pkgerrors.New(pkgerrors.CodeDependency, "login response carried no token")
	}
	user := session.User{
		ID:    string(resp.User.ID),
		Name:  resp.User.Name,
		Email: resp.User.Email,
		Role:  resp.User.Role,
	}
	return token, user, nil
}

// ActiveDelivery returns the driver's current run, or nil when there is none.
func (c *Client) ActiveDelivery(ctx context.Context) (*deliveries.Delivery, error) {
	raw, err := c.do(ctx, call{
		op:     "active_delivery",
		method: http.MethodGet,
		path:   "/my-active-delivery",
		authed: true,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	delivery, dropped, err := decodeDelivery(raw)
	if errors.Is(err, errNoDeliveryID) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "malformed active delivery")
	}
	c.logDropped(ctx, dropped)
	return delivery, nil
}

// Deliveries lists the driver's runs, newest first as the backend sends them.
func (c *Client) Deliveries(ctx context.Context) ([]deliveries.Delivery, error) {
	raw, err := c.do(ctx, call{
		op:     "deliveries",
		method: http.MethodGet,
		path:   "/my-deliveries",
		authed: true,
	})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return []deliveries.Delivery{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode deliveries")
	}
	out := make([]deliveries.Delivery, 0, len(items))
	var dropped []skipped
	for i, item := range items {
		delivery, itemDrops, err := decodeDelivery(item)
		if err != nil {
			dropped = append(dropped, skipped{Kind: "delivery", Index: i, Reason: err.Error()})
			continue
		}
		dropped = append(dropped, itemDrops...)
		out = append(out, *delivery)
	}
	c.logDropped(ctx, dropped)
	return out, nil
}

func (c *Client) StartDelivery(ctx context.Context, deliveryID string) error {
	_, err := c.do(ctx, call{
		op:     "start_delivery",
		method: http.MethodPost,
		path:   deliveryPath(deliveryID, "start"),
		authed: true,
	})
	return err
}

func (c *Client) CompleteDelivery(ctx context.Context, deliveryID string) error {
	_, err := c.do(ctx, call{
		op:     "complete_delivery",
		method: http.MethodPost,
		path:   deliveryPath(deliveryID, "complete"),
		authed: true,
	})
	return err
}

func (c *Client) DeliverOrder(ctx context.Context, input deliveries.DeliverInput) error {
	_, err := c.do(ctx, call{
		op:     "deliver_order",
		method: http.MethodPost,
		path:   orderPath(input.DeliveryID, input.OrderID, "deliver"),
		body:   deliverRequest{AmountCollected: amount(input.AmountCollected)},
		authed: true,
	})
	return err
}

func (c *Client) PartialDeliverOrder(ctx context.Context, input deliveries.PartialDeliverInput) error {
	items := make([]partialItemRequest, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, partialItemRequest(item))
	}
	_, err := c.do(ctx, call{
		op:     "partial_deliver_order",
		method: http.MethodPost,
		path:   orderPath(input.DeliveryID, input.OrderID, "partial"),
		body:   partialRequest{Items: items, AmountCollected: amount(input.AmountCollected)},
		authed: true,
	})
	return err
}

func (c *Client) FailOrder(ctx context.Context, input deliveries.FailInput) error {
	_, err := c.do(ctx, call{
		op:     "fail_order",
		method: http.MethodPost,
		path:   orderPath(input.DeliveryID, input.OrderID, "fail"),
		body:   failRequest{Reason: input.Reason},
		authed: true,
	})
	return err
}

func (c *Client) PostponeOrder(ctx context.Context, input deliveries.PostponeInput) error {
	_, err := c.do(ctx, call{
		op:     "postpone_order",
		method: http.MethodPost,
		path:   orderPath(input.DeliveryID, input.OrderID, "postpone"),
		body:   postponeRequest{Notes: input.Notes},
		authed: true,
	})
	return err
}

// PushLocation reports the driver position.
func (c *Client) PushLocation(ctx context.Context, point geo.Point) error {
	_, err := c.do(ctx, call{
		op:     "push_location",
		method: http.MethodPost,
		path:   "/location/update",
		body:   locationRequest{Latitude: point.Lat, Longitude: point.Lng},
		authed: true,
	})
	return err
}

func (c *Client) logDropped(ctx context.Context, dropped []skipped) {
	for _, d := range dropped {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"record_kind":  d.Kind,
			"record_index": d.Index,
			"reason":       d.Reason,
		})
		c.logg.Warn(logCtx, "skipping malformed backend record")
	}
}

func deliveryPath(deliveryID, action string) string {
	return "/deliveries/" + url.PathEscape(deliveryID) + "/" + action
}

func orderPath(deliveryID, orderID, action string) string {
	return "/deliveries/" + url.PathEscape(deliveryID) + "/orders/" + url.PathEscape(orderID) + "/" + action
}
