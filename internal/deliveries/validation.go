package deliveries

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/packfinderz-driver/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-driver/pkg/errors"
)

// ValidatePartialItems checks a partial delivery before anything is sent.
// Every returned unit needs a reason. When the order is known, products
// must belong to it and the counts must add up to the confirmed quantity.
func ValidatePartialItems(order *Order, items []PartialItem) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "partial delivery requires at least one item")
	}
	problems := make(map[string]string)
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		key := item.ProductID
		if strings.TrimSpace(key) == "" {
			problems[fmt.Sprintf("items[%d].product_id", i)] = "required"
			continue
		}
		if _, dup := seen[key]; dup {
			problems[key] = "listed more than once"
			continue
		}
		seen[key] = struct{}{}
		if item.QuantityDelivered < 0 || item.QuantityReturned < 0 {
			problems[key] = "quantities must not be negative"
			continue
		}
		if item.QuantityReturned > 0 && strings.TrimSpace(item.ReturnReason) == "" {
			problems[key] = "return_reason required for returned units"
			continue
		}
		if order == nil {
			continue
		}
		line, ok := order.Item(key)
		if !ok {
			problems[key] = "product not in order"
			continue
		}
		if line.QuantityConfirmed != nil && item.QuantityDelivered+item.QuantityReturned != *line.QuantityConfirmed {
			problems[key] = fmt.Sprintf("delivered plus returned must equal confirmed quantity %d", *line.QuantityConfirmed)
		}
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid partial delivery").WithDetails(problems)
	}
	return nil
}

// NormalizeFailReason accepts a vocabulary code or driver free text. The
// bare "other" code needs a description.
func NormalizeFailReason(raw string) (string, error) {
	reason := strings.TrimSpace(raw)
	if reason == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "fail reason required")
	}
	parsed, err := enums.ParseFailReason(reason)
	if err != nil {
		return reason, nil
	}
	if parsed == enums.FailReasonOther {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "describe the reason when choosing other")
	}
	return parsed.String(), nil
}
