package notifications

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/party-rentals/api/internal/domain"
	"github.com/party-rentals/api/internal/services"
)

// OrderMailerDeps wires the collaborators for order confirmation mail.
type OrderMailerDeps struct {
	Mailer     services.Mailer
	OwnerEmail string
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// OrderMailer renders and queues the confirmation emails sent once an order
// is paid: a receipt for the customer and a fulfilment summary for the owner.
type OrderMailer struct {
	mailer     services.Mailer
	ownerEmail string
	logger     func(ctx context.Context, event string, fields map[string]any)
	printer    *message.Printer
}

// NewOrderMailer validates dependencies and builds an OrderMailer.
func NewOrderMailer(deps OrderMailerDeps) (*OrderMailer, error) {
	if deps.Mailer == nil {
		return nil, errors.New("order mailer: mailer is required")
	}
	owner := strings.TrimSpace(deps.OwnerEmail)
	if owner == "" {
		return nil, errors.New("order mailer: owner email is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &OrderMailer{
		mailer:     deps.Mailer,
		ownerEmail: owner,
		logger:     logger,
		printer:    message.NewPrinter(language.English),
	}, nil
}

// PaymentConfirmed queues the customer receipt and the owner notification.
// Both sends are attempted even when one fails.
func (m *OrderMailer) PaymentConfirmed(ctx context.Context, order domain.Order) error {
	if m == nil || m.mailer == nil {
		return errors.New("order mailer: not initialised")
	}

	var errs []error

	customer := strings.TrimSpace(order.Customer.Email)
	if customer != "" {
		msg := domain.MailMessage{
			To:      customer,
			Subject: fmt.Sprintf("Order Confirmed – %s", order.OrderNumber),
			HTML:    m.renderCustomerEmail(order),
		}
		if err := m.mailer.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("customer mail: %w", err))
		}
	}

	msg := domain.MailMessage{
		To:      m.ownerEmail,
		Subject: fmt.Sprintf("New Order Received – %s", order.OrderNumber),
		HTML:    m.renderOwnerEmail(order),
	}
	if err := m.mailer.Send(ctx, msg); err != nil {
		errs = append(errs, fmt.Errorf("owner mail: %w", err))
	}

	if len(errs) > 0 {
		m.logger(ctx, "notifications.order.mail_failed", map[string]any{
			"orderNumber": order.OrderNumber,
			"errors":      len(errs),
		})
		return errors.Join(errs...)
	}
	return nil
}

var customerEmailTemplate = template.Must(template.New("customer").Parse(`<h2>Thank you for your order!</h2>
<p>Hi <strong>{{.CustomerName}}</strong>,</p>
<p>We have successfully received your order. Below are your order details.</p>
<h3>Order Summary</h3>
<ul>
{{range .Items}}  <li><strong>{{.Name}}</strong> × {{.Quantity}}<br/>Price: {{.LineTotal}}{{if .RentalRange}}<br/>Rental: {{.RentalRange}}{{end}}</li>
{{end}}</ul>
<h3>Payment Details</h3>
<p>Amount Paid: <strong>{{.AmountPaid}}</strong><br/>Amount Due: <strong>{{.AmountDue}}</strong></p>
{{if .DeliveryDate}}<h3>Delivery &amp; Pickup</h3>
<p>Delivery Date: {{.DeliveryDate}}<br/>Pickup Date: {{.PickupDate}}</p>
{{end}}<p>We will contact you before delivery. Thank you for choosing <strong>Party Rentals</strong>.</p>`))

var ownerEmailTemplate = template.Must(template.New("owner").Parse(`<h2>New Order Received</h2>
<h3>Customer Details</h3>
<p>Name: {{.CustomerName}}<br/>Email: {{.CustomerEmail}}<br/>Phone: {{.CustomerPhone}}<br/>Address: {{.CustomerAddress}}</p>
<h3>Order Items</h3>
<ul>
{{range .Items}}  <li><strong>{{.Name}}</strong> × {{.Quantity}}<br/>Price: {{.LineTotal}}{{if .RentalRange}}<br/>Rental: {{.RentalRange}}{{end}}</li>
{{end}}</ul>
<h3>Payment</h3>
<p>Payment Type: {{.PaymentType}}<br/>Amount Paid: {{.AmountPaid}}<br/>Amount Due: {{.AmountDue}}</p>
<p><strong>Order Number:</strong> {{.OrderNumber}}</p>`))

type orderEmailItem struct {
	Name        string
	Quantity    int
	LineTotal   string
	RentalRange string
}

type orderEmailData struct {
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	PaymentType     string
	AmountPaid      string
	AmountDue       string
	Items           []orderEmailItem
	DeliveryDate    string
	PickupDate      string
}

func (m *OrderMailer) renderCustomerEmail(order domain.Order) string {
	var b strings.Builder
	if err := customerEmailTemplate.Execute(&b, m.buildEmailData(order)); err != nil {
		return ""
	}
	return b.String()
}

func (m *OrderMailer) renderOwnerEmail(order domain.Order) string {
	var b strings.Builder
	if err := ownerEmailTemplate.Execute(&b, m.buildEmailData(order)); err != nil {
		return ""
	}
	return b.String()
}

func (m *OrderMailer) buildEmailData(order domain.Order) orderEmailData {
	data := orderEmailData{
		OrderNumber:     order.OrderNumber,
		CustomerName:    order.Customer.Name,
		CustomerEmail:   order.Customer.Email,
		CustomerPhone:   emptyDash(order.Customer.Phone),
		CustomerAddress: order.Customer.AddressLine,
		PaymentType:     string(order.PaymentType),
		AmountPaid:      m.formatMoney(order.AmountPaid),
		AmountDue:       m.formatMoney(order.AmountDue),
	}

	var windowStart, windowEnd *time.Time
	for _, item := range order.Items {
		entry := orderEmailItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			LineTotal: m.formatMoney(item.LineTotal),
		}
		if item.ProductType == domain.ProductTypeRental && item.StartDate != nil && item.EndDate != nil {
			entry.RentalRange = fmt.Sprintf("%s → %s (%d days)",
				item.StartDate.Format("2006-01-02"), item.EndDate.Format("2006-01-02"), item.Days)
			if windowStart == nil || item.StartDate.Before(*windowStart) {
				windowStart = item.StartDate
			}
			if windowEnd == nil || item.EndDate.After(*windowEnd) {
				windowEnd = item.EndDate
			}
		}
		data.Items = append(data.Items, entry)
	}

	if windowStart != nil && windowEnd != nil {
		data.DeliveryDate = windowStart.Format("2006-01-02")
		data.PickupDate = windowEnd.Format("2006-01-02")
	}
	return data
}

func (m *OrderMailer) formatMoney(amount float64) string {
	return m.printer.Sprintf("$%.2f", amount)
}

func emptyDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
