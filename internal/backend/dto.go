package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-driver/internal/deliveries"
	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
	"github.com/angelmondragon/packfinderz-driver/pkg/geo"
	"github.com/shopspring/decimal"
)

// flexID accepts ids sent as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type deliveryDTO struct {
	ID             flexID            `json:"id"`
	Reference      string            `json:"reference"`
	Status         string            `json:"status"`
	ScheduledFor   *time.Time        `json:"scheduled_for"`
	Orders         []json.RawMessage `json:"orders"`
	TotalOrders    int               `json:"total_orders"`
	DeliveredCount int               `json:"delivered_count"`
	FailedCount    int               `json:"failed_count"`
}

type clientDTO struct {
	ID        flexID          `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Address   string          `json:"address"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	OldDebt   decimal.Decimal `json:"old_debt"`
}

type orderDTO struct {
	ID              flexID            `json:"id"`
	ClientID        flexID            `json:"client_id"`
	Client          clientDTO         `json:"client"`
	Status          string            `json:"status"`
	AmountDue       decimal.Decimal   `json:"amount_due"`
	AmountCollected decimal.Decimal   `json:"amount_collected"`
	Notes           string            `json:"notes"`
	FailReason      string            `json:"fail_reason"`
	Items           []json.RawMessage `json:"items"`
}

type lineItemDTO struct {
	ProductID         flexID              `json:"product_id"`
	ProductName       string              `json:"product_name"`
	QuantityOrdered   int                 `json:"quantity_ordered"`
	QuantityConfirmed *int                `json:"quantity_confirmed"`
	QuantityDelivered int                 `json:"quantity_delivered"`
	QuantityReturned  int                 `json:"quantity_returned"`
	ReturnReason      string              `json:"return_reason"`
	UnitPrice         decimal.Decimal     `json:"unit_price"`
	Subtotal          decimal.NullDecimal `json:"subtotal"`
}

type userDTO struct {
	ID    flexID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token       string  `json:"token"`
	AccessToken string  `json:"access_token"`
	User        userDTO `json:"user"`
}

// skipped describes a record dropped while decoding a snapshot.
type skipped struct {
	Kind   string
	Index  int
	Reason string
}

// errNoDeliveryID marks a delivery record with an empty or null id.
var errNoDeliveryID = errors.New("delivery without id")

func decodeDelivery(raw json.RawMessage) (*deliveries.Delivery, []skipped, error) {
	var dto deliveryDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, nil, fmt.Errorf("decode delivery: %w", err)
	}
	if dto.ID == "" {
		return nil, nil, errNoDeliveryID
	}
	status, err := enums.ParseDeliveryStatus(strings.ToLower(strings.TrimSpace(dto.Status)))
	if err != nil {
		return nil, nil, fmt.Errorf("delivery %s: %w", dto.ID, err)
	}
	out := &deliveries.Delivery{
		ID:             string(dto.ID),
		Reference:      dto.Reference,
		Status:         status,
		ScheduledFor:   dto.ScheduledFor,
		Orders:         make([]deliveries.Order, 0, len(dto.Orders)),
		TotalOrders:    dto.TotalOrders,
		DeliveredCount: dto.DeliveredCount,
		FailedCount:    dto.FailedCount,
	}
	var dropped []skipped
	for i, rawOrder := range dto.Orders {
		order, itemDrops, err := decodeOrder(rawOrder)
		if err != nil {
			dropped = append(dropped, skipped{Kind: "order", Index: i, Reason: err.Error()})
			continue
		}
		dropped = append(dropped, itemDrops...)
		out.Orders = append(out.Orders, order)
	}
	return out, dropped, nil
}

func decodeOrder(raw json.RawMessage) (deliveries.Order, []skipped, error) {
	var dto orderDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return deliveries.Order{}, nil, err
	}
	if dto.ID == "" {
		return deliveries.Order{}, nil, fmt.Errorf("order without id")
	}
	status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(dto.Status)))
	if err != nil {
		return deliveries.Order{}, nil, fmt.Errorf("order %s: %w", dto.ID, err)
	}
	clientID := dto.ClientID
	if clientID == "" {
		clientID = dto.Client.ID
	}
	order := deliveries.Order{
		ID:       string(dto.ID),
		ClientID: string(clientID),
		Client: deliveries.Client{
			ID:       string(clientID),
			Name:     strings.TrimSpace(dto.Client.Name),
			Phone:    strings.TrimSpace(dto.Client.Phone),
			Address:  strings.TrimSpace(dto.Client.Address),
			Location: clientLocation(dto.Client),
			OldDebt:  dto.Client.OldDebt,
		},
		Status:          status,
		AmountDue:       dto.AmountDue,
		AmountCollected: dto.AmountCollected,
		Notes:           dto.Notes,
		FailReason:      dto.FailReason,
		Items:           make([]deliveries.LineItem, 0, len(dto.Items)),
	}
	var dropped []skipped
	for i, rawItem := range dto.Items {
		item, err := decodeLineItem(rawItem)
		if err != nil {
			dropped = append(dropped, skipped{Kind: "line_item", Index: i, Reason: fmt.Sprintf("order %s: %v", dto.ID, err)})
			continue
		}
		order.Items = append(order.Items, item)
	}
	return order, dropped, nil
}

func decodeLineItem(raw json.RawMessage) (deliveries.LineItem, error) {
	var dto lineItemDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return deliveries.LineItem{}, err
	}
	if dto.ProductID == "" {
		return deliveries.LineItem{}, fmt.Errorf("line item without product id")
	}
	if dto.QuantityOrdered < 0 || dto.QuantityDelivered < 0 || dto.QuantityReturned < 0 ||
		(dto.QuantityConfirmed != nil && *dto.QuantityConfirmed < 0) {
		return deliveries.LineItem{}, fmt.Errorf("product %s has negative quantities", dto.ProductID)
	}
	if dto.UnitPrice.IsNegative() {
		return deliveries.LineItem{}, fmt.Errorf("product %s has a negative price", dto.ProductID)
	}
	item := deliveries.LineItem{
		ProductID:         string(dto.ProductID),
		ProductName:       dto.ProductName,
		QuantityOrdered:   dto.QuantityOrdered,
		QuantityConfirmed: dto.QuantityConfirmed,
		QuantityDelivered: dto.QuantityDelivered,
		QuantityReturned:  dto.QuantityReturned,
		ReturnReason:      dto.ReturnReason,
		UnitPrice:         dto.UnitPrice,
	}
	if dto.Subtotal.Valid {
		item.Subtotal = dto.Subtotal.Decimal
	} else {
		item.Subtotal = dto.UnitPrice.Mul(decimal.NewFromInt(int64(item.ConfirmedQuantity())))
	}
	return item, nil
}

func clientLocation(c clientDTO) *geo.Point {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	p := geo.Point{Lat: *c.Latitude, Lng: *c.Longitude}
	if !p.Valid() {
		return nil
	}
	return &p
}

// amount renders a decimal as a bare JSON number.
func amount(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := json.Number(d.String())
	return &n
}

type deliverRequest struct {
	AmountCollected *json.Number `json:"amount_collected,omitempty"`
}

type partialItemRequest struct {
	ProductID         string `json:"product_id"`
	QuantityDelivered int    `json:"quantity_delivered"`
	QuantityReturned  int    `json:"quantity_returned"`
	ReturnReason      string `json:"return_reason,omitempty"`
}

type partialRequest struct {
	Items           []partialItemRequest `json:"items"`
	AmountCollected *json.Number         `json:"amount_collected,omitempty"`
}

type failRequest struct {
	Reason string `json:"reason"`
}

type postponeRequest struct {
	Notes string `json:"notes,omitempty"`
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
