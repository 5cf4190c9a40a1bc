package sendgrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcodena/storefront/internal/models"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailService interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

type emailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey string, fromEmail string, fromName string) EmailService {
	return &emailService{client: sendgrid.NewSendClient(apiKey), fromEmail: fromEmail, fromName: fromName}
}

// SendOrderConfirmation implements EmailService.
func (e *emailService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {

	from := mail.NewEmail(e.fromName, e.fromEmail)
	to := mail.NewEmail(order.FirstName+" "+order.LastName, order.Email)

	message := mail.NewV3Mail()
	message.SetFrom(from)

	personalization := mail.NewPersonalization()
	personalization.AddTos(to)
	personalization.Subject = fmt.Sprintf("Order %s confirmed", order.ID)
	message.AddPersonalizations(personalization)

	var lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&lines, "%d x product %d @ %s\n", item.Quantity, item.ProductID, item.Price.StringFixed(2))
	}
	fmt.Fprintf(&lines, "Total: %s\n", order.TotalCost().StringFixed(2))

	body := fmt.Sprintf("Hi %s,\n\nThanks for your order!\n\n%s", order.FirstName, lines.String())

	message.AddContent(mail.NewContent("text/plain", body))

	response, err := e.client.Send(message)

	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	return nil
}
