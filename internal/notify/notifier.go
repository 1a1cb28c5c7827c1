// internal/notify/notifier.go
package notify

import (
	"context"
	"errors"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"scholarship-workflow/internal/common/config"
	"scholarship-workflow/internal/common/logger"
)

var ErrSendFailed = errors.New("NOTIFICATION_SEND_FAILED")

// EmailSender and SMSSender are satisfied by the thin AWS clients in
// internal/common/aws and by fakes in tests.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Recipient is the applicant contact info attached to a status change.
type Recipient struct {
	Email         string
	Phone         string
	ApplicationNo string
}

// Notifier informs applicants about status changes over SES email and,
// when a phone number is on file, SNS SMS. Delivery is best-effort.
type Notifier struct {
	email  EmailSender
	sms    SMSSender
	cfg    config.IntegrationConfig
	notify map[string]bool
	logger logger.Logger
}

func NewNotifier(email EmailSender, sms SMSSender, cfg config.IntegrationConfig, notifyStatuses []string, log logger.Logger) *Notifier {
	notify := make(map[string]bool, len(notifyStatuses))
	for _, s := range notifyStatuses {
		notify[s] = true
	}
	return &Notifier{
		email:  email,
		sms:    sms,
		cfg:    cfg,
		notify: notify,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// NotifyStatusChange sends the applicant-facing message for newStatus. Status
// changes outside the configured notify list are silently skipped.
func (n *Notifier) NotifyStatusChange(ctx context.Context, rcpt *Recipient, newStatus, notes string) error {
	if !n.notify[newStatus] {
		return nil
	}

	subject, body := messageFor(rcpt.ApplicationNo, newStatus, notes)

	if n.cfg.AWS.SES.Enabled && rcpt.Email != "" {
		input := &ses.SendEmailInput{
			Source: awsv2.String(n.cfg.AWS.SES.FromEmail),
			Destination: &sestypes.Destination{
				ToAddresses: []string{rcpt.Email},
			},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{Data: awsv2.String(subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: awsv2.String(body)},
				},
			},
		}
		if _, err := n.email.SendEmail(ctx, input); err != nil {
			return fmt.Errorf("%w: email to %s: %v", ErrSendFailed, rcpt.Email, err)
		}
	}

	if n.cfg.AWS.SNS.Enabled && rcpt.Phone != "" {
		input := &sns.PublishInput{
			PhoneNumber: awsv2.String(rcpt.Phone),
			Message:     awsv2.String(body),
		}
		if _, err := n.sms.Publish(ctx, input); err != nil {
			return fmt.Errorf("%w: sms to %s: %v", ErrSendFailed, rcpt.Phone, err)
		}
	}

	n.logger.Info("status notification sent", map[string]interface{}{
		"applicationNo": rcpt.ApplicationNo,
		"status":        newStatus,
	})
	return nil
}

func messageFor(applicationNo, status, notes string) (subject, body string) {
	switch status {
	case "interview_scheduled":
		subject = fmt.Sprintf("Scholarship application %s: interview scheduled", applicationNo)
		body = fmt.Sprintf("Your application %s has moved to interview scheduling. %s", applicationNo, notes)
	case "approved":
		subject = fmt.Sprintf("Scholarship application %s approved", applicationNo)
		body = fmt.Sprintf("Congratulations! Your application %s has been approved. %s", applicationNo, notes)
	case "rejected":
		subject = fmt.Sprintf("Scholarship application %s: decision", applicationNo)
		body = fmt.Sprintf("Your application %s was not approved. %s", applicationNo, notes)
	case "for_compliance":
		subject = fmt.Sprintf("Scholarship application %s: compliance documents required", applicationNo)
		body = fmt.Sprintf("Your application %s requires additional compliance documents. %s", applicationNo, notes)
	default:
		subject = fmt.Sprintf("Scholarship application %s: status update", applicationNo)
		body = fmt.Sprintf("Your application %s is now %s. %s", applicationNo, status, notes)
	}
	return subject, body
}
