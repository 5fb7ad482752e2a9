package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mailersend/mailersend-go"
)

// Sender delivers a saga alert to the operations mailbox.
type Sender interface {
	SendSagaAlert(subject, body string) error
}

// MailerService sends alert emails through MailerSend.
type MailerService struct {
	client    *mailersend.Mailersend
	fromName  string
	fromEmail string
	opsEmail  string
}

func NewMailerService(apiKey, fromName, fromEmail, opsEmail string) *MailerService {
	return &MailerService{
		client:    mailersend.NewMailersend(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		opsEmail:  opsEmail,
	}
}

// SendSagaAlert mails the operations address about a saga event that may
// need a human look.
func (m *MailerService) SendSagaAlert(subject, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	from := mailersend.From{
		Name:  m.fromName,
		Email: m.fromEmail,
	}

	recipients := []mailersend.Recipient{
		{
			Email: m.opsEmail,
		},
	}

	message := m.client.Email.NewMessage()
	message.SetFrom(from)
	message.SetRecipients(recipients)
	message.SetSubject(subject)
	message.SetText(body)

	res, err := m.client.Email.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Println("Alert sent. Message ID:", res.Header.Get("X-Message-Id"))
	return nil
}
