package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/flicky/storefront-api/internal/model"
)

var templates = template.Must(template.New("emails").Parse(`
{{define "order_placed"}}
<h2>Thanks for your purchase, {{.Name}}!</h2>
<p>Your order <b>{{.Order.OrderNumber}}</b> was created successfully.</p>
<p>Current status: <b>{{.Order.Status}}</b></p>
<p>Total: <b>${{.Order.TotalAmount.StringFixed 2}}</b></p>
<p>We will let you know when your order is on its way.</p>
{{end}}
{{define "status_changed"}}
<h2>Order {{.Order.OrderNumber}} updated</h2>
<p>Hello {{.Name}},</p>
<p>Your order status changed: <b>{{.From}}</b> -&gt; <b>{{.Order.Status}}</b>.</p>
{{end}}
{{define "auto_cancelled"}}
<h2>Order {{.Order.OrderNumber}} cancelled</h2>
<p>Hello {{.Name}},</p>
<p>Your order was cancelled automatically because it was not processed within {{.Hours}} hours.</p>
{{end}}
`))

type emailData struct {
	Name  string
	Order *model.Order
	From  model.OrderStatus
	Hours int
}

func render(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func OrderPlacedEmail(user *model.User, order *model.Order) (subject, html string, err error) {
	html, err = render("order_placed", emailData{Name: user.FullName(), Order: order})
	return "Order confirmation " + order.OrderNumber, html, err
}

func StatusChangedEmail(user *model.User, order *model.Order, from model.OrderStatus) (subject, html string, err error) {
	html, err = render("status_changed", emailData{Name: user.FullName(), Order: order, From: from})
	return "Order " + order.OrderNumber + " status update", html, err
}

func AutoCancelledEmail(user *model.User, order *model.Order, hours int) (subject, html string, err error) {
	html, err = render("auto_cancelled", emailData{Name: user.FullName(), Order: order, Hours: hours})
	return "Order " + order.OrderNumber + " cancelled", html, err
}
