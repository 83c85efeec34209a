package notify

import (
	"context"
	"fmt"

	"dinebot/pkg/logger"
	"dinebot/pkg/sanitizer"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioNotifier struct {
	api  messageCreator
	from string
	log  *logger.Logger
}

func NewTwilioNotifier(accountSID, authToken, from string, log *logger.Logger) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioNotifier(client.Api, from, log)
}

func newTwilioNotifier(api messageCreator, from string, log *logger.Logger) *TwilioNotifier {
	return &TwilioNotifier{api: api, from: from, log: log}
}

func (n *TwilioNotifier) Send(ctx context.Context, to, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := sanitizer.NormalizePhone(to, sanitizer.DefaultRegion)
	if dest == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDestination, to)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(dest)
	params.SetFrom(n.from)
	params.SetBody(text)

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	n.log.Info("SMS accepted by Twilio", "message_sid", sid)
	return nil
}
