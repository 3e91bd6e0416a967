package service

import (
	"fmt"
	"html"

	"utmcouncil/vote-api/internal/model"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Notifier tells users about decisions on their carnet
type Notifier interface {
	Send(to, subject, body string) error
}

type nopNotifier struct{}

func (nopNotifier) Send(string, string, string) error { return nil }

// Mailer sends notifications over SMTP
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewNotifier returns a Mailer when mail.enabled is set and a no-op otherwise
func NewNotifier() Notifier {
	if !viper.GetBool("mail.enabled") {
		return nopNotifier{}
	}

	from := viper.GetString("mail.sender_address")

	return &Mailer{
		dialer: gomail.NewDialer(
			viper.GetString("mail.host"),
			viper.GetInt("mail.port"),
			from,
			viper.GetString("mail.password"),
		),
		from: from,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	if to == m.from {
		return fmt.Errorf("refusing to mail the sender address %s", to)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	return m.dialer.DialAndSend(msg)
}

// decisionMail builds the message for the current state of c, ok is false
// when the state needs no mail
func decisionMail(c *model.Carnet) (subject, body string, ok bool) {
	switch {
	case c.Status == model.CarnetApproved:
		return "Your carnet was verified",
			"<p>Your student card was verified. You can now vote.</p>", true
	case c.Status == model.CarnetRejected:
		return "Your carnet was rejected",
			fmt.Sprintf("<p>Your student card could not be verified.</p><p>%s</p><p>Log in to upload a new photo.</p>",
				html.EscapeString(c.RejectReason)), true
	case c.ResubmissionRequested:
		return "Please upload a new carnet photo",
			fmt.Sprintf("<p>An administrator asked for a new photo of your student card.</p><p>%s</p>",
				html.EscapeString(c.AdminNote)), true
	}

	return "", "", false
}

// notifyDecision mails the owner in the background. Failures are only logged.
func notifyDecision(n Notifier, email string, c *model.Carnet) {
	if n == nil {
		return
	}

	subject, body, ok := decisionMail(c)
	if !ok {
		return
	}

	go func() {
		if err := n.Send(email, subject, body); err != nil {
			zap.L().Warn("Failed to send decision mail", zap.Error(err), zap.String("user_id", c.UserID))
		}
	}()
}
