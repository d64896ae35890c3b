package deliveries

import "github.com/shopspring/decimal"

// Reconciliation is the cash position of one order after the drop.
type Reconciliation struct {
	DeliveredAmount           decimal.Decimal `json:"delivered_amount"`
	ReturnedAmount            decimal.Decimal `json:"returned_amount"`
	OldDebt                   decimal.Decimal `json:"old_debt"`
	TotalDebtWithOld          decimal.Decimal `json:"total_debt_with_old"`
	AmountCollected           decimal.Decimal `json:"amount_collected"`
	RemainingDebtAfterPayment decimal.Decimal `json:"remaining_debt_after_payment"`
}

// DeliveredAmount is the sum of delivered units times unit price over the
// lines that were loaded.
func DeliveredAmount(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if !item.Loaded() {
			continue
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.QuantityDelivered))))
	}
	return total
}

// ReturnedAmount is the sum of returned units times unit price.
func ReturnedAmount(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.QuantityReturned))))
	}
	return total
}

// Reconcile computes the debt left after collecting amountCollected. A
// negative remainder means the client paid ahead.
func Reconcile(items []LineItem, oldDebt, amountCollected decimal.Decimal) Reconciliation {
	delivered := DeliveredAmount(items)
	total := oldDebt.Add(delivered)
	return Reconciliation{
		DeliveredAmount:           delivered,
		ReturnedAmount:            ReturnedAmount(items),
		OldDebt:                   oldDebt,
		TotalDebtWithOld:          total,
		AmountCollected:           amountCollected,
		RemainingDebtAfterPayment: total.Sub(amountCollected),
	}
}

// FullDeliveryItems assumes every confirmed unit is delivered. Used to
// preview an order that has not been handled yet.
func FullDeliveryItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		item.QuantityDelivered = item.ConfirmedQuantity()
		item.QuantityReturned = 0
		out[i] = item
	}
	return out
}

// ReconcileOrder reconciles a handled order with its recorded quantities
// and a pending one as a full delivery.
func ReconcileOrder(order Order, oldDebt, amountCollected decimal.Decimal) Reconciliation {
	items := order.Items
	if order.NeedsAction() {
		items = FullDeliveryItems(items)
	}
	return Reconcile(items, oldDebt, amountCollected)
}

// MoneySummary totals a whole run.
type MoneySummary struct {
	TotalDue       decimal.Decimal `json:"total_due"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalDelivered decimal.Decimal `json:"total_delivered"`
	TotalReturned  decimal.Decimal `json:"total_returned"`
}

func Summarize(d *Delivery) MoneySummary {
	summary := MoneySummary{
		TotalDue:       decimal.Zero,
		TotalCollected: decimal.Zero,
		TotalDelivered: decimal.Zero,
		TotalReturned:  decimal.Zero,
	}
	if d == nil {
		return summary
	}
	for _, order := range d.Orders {
		summary.TotalDue = summary.TotalDue.Add(order.AmountDue)
		summary.TotalCollected = summary.TotalCollected.Add(order.AmountCollected)
		if order.IsHandled() {
			summary.TotalDelivered = summary.TotalDelivered.Add(DeliveredAmount(order.Items))
			summary.TotalReturned = summary.TotalReturned.Add(ReturnedAmount(order.Items))
		}
	}
	return summary
}
