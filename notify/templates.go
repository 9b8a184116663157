package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/shopspring/decimal"
)

func shortID(order *models.Order) string {
	return strings.ToUpper(order.ID.Hex()[len(order.ID.Hex())-8:])
}

func orderPlacedCustomer(order *models.Order, customer *models.User) (string, string) {
	subject := fmt.Sprintf("Order confirmation #%s", shortID(order))
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(customer.Name))
	b.WriteString("<p>Thank you for your order. We will confirm your payment once we have checked the bank transfer receipt.</p>")
	writeOrderTable(&b, order)
	if !order.HasReceipt() {
		b.WriteString("<p>No receipt is attached yet. Please upload your bank transfer receipt from the order page.</p>")
	}
	return subject, b.String()
}

func orderPlacedAdmin(order *models.Order, customer *models.User) (string, string) {
	subject := fmt.Sprintf("New order #%s - %s", shortID(order), formatAmount(order.TotalAmount))
	var b strings.Builder
	who := order.ShippingAddress.FullName
	if customer != nil {
		who = fmt.Sprintf("%s <%s>", customer.Name, customer.Email)
	}
	fmt.Fprintf(&b, "<p>New order from %s.</p>", html.EscapeString(who))
	writeOrderTable(&b, order)
	a := order.ShippingAddress
	fmt.Fprintf(&b, "<p>Ship to: %s, %s, %s, %s (%s)</p>",
		html.EscapeString(a.FullName), html.EscapeString(a.AddressLine), html.EscapeString(a.City),
		html.EscapeString(a.District), html.EscapeString(a.Phone))
	if order.HasReceipt() {
		fmt.Fprintf(&b, `<p>Receipt: <a href="%s">view</a></p>`, html.EscapeString(*order.ReceiptImage))
	}
	return subject, b.String()
}

func orderStatusChanged(order *models.Order, customer *models.User, from models.OrderStatus) (string, string) {
	subject := fmt.Sprintf("Order #%s is now %s", shortID(order), order.Status)
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your order #%s changed from <b>%s</b> to <b>%s</b>.</p>",
		html.EscapeString(customer.Name), shortID(order), from, order.Status)
	return subject, body
}

func paymentVerified(order *models.Order, customer *models.User) (string, string) {
	subject := fmt.Sprintf("Payment received for order #%s", shortID(order))
	body := fmt.Sprintf("<p>Hi %s,</p><p>We have verified your payment of %s. Your order is being prepared.</p>",
		html.EscapeString(customer.Name), formatAmount(order.TotalAmount))
	return subject, body
}

func writeOrderTable(b *strings.Builder, order *models.Order) {
	b.WriteString(`<table style="border-collapse: collapse;"><tr><th align="left">Book</th><th>Qty</th><th align="right">Price</th><th align="right">Subtotal</th></tr>`)
	for _, it := range order.Items {
		sub := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		fmt.Fprintf(b, `<tr><td>%s</td><td align="center">%d</td><td align="right">%s</td><td align="right">%s</td></tr>`,
			html.EscapeString(it.Title), it.Quantity, formatAmount(it.Price), formatDecimal(sub))
	}
	fmt.Fprintf(b, `<tr><td colspan="3" align="right"><b>Total</b></td><td align="right"><b>%s</b></td></tr></table>`,
		formatAmount(order.TotalAmount))
}

func formatAmount(v float64) string {
	return formatDecimal(decimal.NewFromFloat(v))
}

// formatDecimal renders 2 decimals with comma thousands separators.
func formatDecimal(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var out strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		out.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if out.Len() > 0 {
			out.WriteString(",")
		}
		out.WriteString(intPart[i : i+3])
	}
	res := out.String() + "." + frac
	if neg {
		res = "-" + res
	}
	return res
}
