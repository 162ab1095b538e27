package notification

import (
	"fmt"
	"net/smtp"

	"github.com/raykavin/factorlab/pkg/logger"
)

// Mail handles email notifications for finished analysis runs
type Mail struct {
	auth              smtp.Auth
	smtpServerPort    int
	smtpServerAddress string
	to                string
	from              string
	log               logger.Logger
}

// MailParams contains all parameters needed to initialize a Mail instance
type MailParams struct {
	SMTPServerPort    int
	SMTPServerAddress string
	To                string
	From              string
	Password          string
}

// NewMail creates a new Mail instance with the provided parameters
func NewMail(params MailParams, log logger.Logger) Mail {
	return Mail{
		from:              params.From,
		to:                params.To,
		smtpServerPort:    params.SMTPServerPort,
		smtpServerAddress: params.SMTPServerAddress,
		log:               log,
		auth: smtp.PlainAuth(
			"",
			params.From,
			params.Password,
			params.SMTPServerAddress,
		),
	}
}

// Notify sends an email notification with the given text
func (m Mail) Notify(text string) {
	serverAddress := fmt.Sprintf("%s:%d", m.smtpServerAddress, m.smtpServerPort)

	message := fmt.Sprintf(
		"To: %q <%s>\r\nSubject: factorlab analysis\r\n\r\n%s\r\n",
		m.to, m.to, text,
	)

	err := smtp.SendMail(
		serverAddress,
		m.auth,
		m.from,
		[]string{m.to},
		[]byte(message),
	)
	if err != nil {
		m.log.WithError(err).Error("failed to send mail notification")
	}
}

// OnError sends an error report by mail
func (m Mail) OnError(err error) {
	m.Notify(fmt.Sprintf("analysis error: %v", err))
}
