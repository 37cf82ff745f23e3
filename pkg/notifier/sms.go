package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSNotifier delivers codes over SMS via Twilio.
type SMSNotifier struct {
	client *twilio.RestClient
	from   string
}

func NewSMSNotifier(accountSID, authToken, from string) (*SMSNotifier, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &SMSNotifier{client: client, from: from}, nil
}

func (n *SMSNotifier) SendCode(ctx context.Context, destination, code string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(n.from)
	params.SetTo(destination)
	params.SetBody(fmt.Sprintf("Your AI Job Portal verification code is %s. It expires shortly.", code))

	resp, err := n.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("Failed to send SMS to %s: %v", destination, err)
		return fmt.Errorf("failed to send sms: %w", err)
	}

	if resp.Sid != nil {
		log.Printf("SMS sent to %s (SID: %s)", destination, *resp.Sid)
	}
	return nil
}

// SendWelcome is a no-op over SMS; welcome messages go out by email.
func (n *SMSNotifier) SendWelcome(ctx context.Context, destination, name string) error {
	return nil
}
