package lib

import (
	"context"
	"log"
	"vbs/src/config"

	"github.com/wneessen/go-mail"
)

type SendMailInput struct {
	From     string
	FromName string
	To       []string
	Cc       []string
	Bcc      []string
	ReplyTo  string
	Subject  string
	Body     string
	Html     bool
}

// Mailer delivers transactional email such as booking confirmations.
type Mailer interface {
	SendMail(ctx context.Context, in *SendMailInput) error
}

type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
}

func GetSMTPClient(cfg *config.Config) (*mail.Client, error) {
	c, err := mail.NewClient(
		cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUser),
		mail.WithPassword(cfg.SMTPPassword),
	)
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return c, nil
}

// NewSMTPMailer returns nil when no SMTP host is configured.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	c, err := GetSMTPClient(cfg)
	if err != nil {
		return nil
	}
	return &SMTPMailer{client: c, from: cfg.MailFrom, fromName: cfg.MailFromName}
}

func (s *SMTPMailer) SendMail(ctx context.Context, in *SendMailInput) error {
	msg, err := BuildMessage(in, s.from, s.fromName)
	if err != nil {
		return err
	}
	return s.client.DialAndSendWithContext(ctx, msg)
}

// BuildMessage fills in the sender defaults and renders in into a message.
func BuildMessage(in *SendMailInput, defaultFrom, defaultFromName string) (*mail.Msg, error) {
	from, fromName := in.From, in.FromName
	if from == "" {
		from = defaultFrom
	}
	if fromName == "" {
		fromName = defaultFromName
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(fromName, from); err != nil {
		log.Printf("Failed to set From address: %s\n", err.Error())
		return nil, err
	}
	if err := msg.To(in.To...); err != nil {
		log.Printf("Failed to set To address: %s\n", err.Error())
		return nil, err
	}
	if in.ReplyTo != "" {
		if err := msg.ReplyTo(in.ReplyTo); err != nil {
			log.Printf("Failed to set ReplyTo address: %s\n", err.Error())
		}
	}
	if len(in.Cc) > 0 {
		if err := msg.Cc(in.Cc...); err != nil {
			log.Printf("Failed to set Cc address: %s\n", err.Error())
		}
	}
	if len(in.Bcc) > 0 {
		if err := msg.Bcc(in.Bcc...); err != nil {
			log.Printf("Failed to set Bcc address: %s\n", err.Error())
		}
	}
	msg.Subject(in.Subject)
	if in.Html {
		msg.SetBodyString(mail.TypeTextHTML, in.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, in.Body)
	}
	return msg, nil
}
