package enums

import "fmt"

// FailReason is the closed vocabulary offered to drivers when an order cannot be delivered.
// FailReasonOther pairs with free text supplied by the driver.
type FailReason string

const (
	FailReasonClientAbsent    FailReason = "client_absent"
	FailReasonClientRefused   FailReason = "client_refused"
	FailReasonShopClosed      FailReason = "shop_closed"
	FailReasonAddressNotFound FailReason = "address_not_found"
	FailReasonNoPayment       FailReason = "no_payment"
	FailReasonDamagedGoods    FailReason = "damaged_goods"
	FailReasonOther           FailReason = "other"
)

var validFailReasons = []FailReason{
	FailReasonClientAbsent,
	FailReasonClientRefused,
	FailReasonShopClosed,
	FailReasonAddressNotFound,
	FailReasonNoPayment,
	FailReasonDamagedGoods,
	FailReasonOther,
}

// String implements fmt.Stringer.
func (f FailReason) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FailReason.
func (f FailReason) IsValid() bool {
	for _, candidate := range validFailReasons {
		if candidate == f {
			return true
		}
	}
	return false
}

// FailReasons returns the vocabulary in display order.
func FailReasons() []FailReason {
	out := make([]FailReason, len(validFailReasons))
	copy(out, validFailReasons)
	return out
}

// ParseFailReason converts raw input into a FailReason.
func ParseFailReason(value string) (FailReason, error) {
	for _, candidate := range validFailReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fail reason %q", value)
}
