package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds the mail transport settings. Password is resolved
// through the secrets loader, never stored in the config file.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// EmailNotifier sends confirmation and summary emails over SMTP,
// mirroring what the operator would otherwise read in the log.
type EmailNotifier struct {
	cfg      SMTPConfig
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(cfg SMTPConfig, password string) (*EmailNotifier, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.To) == "" {
		return nil, fmt.Errorf("smtp recipient is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailNotifier{cfg: cfg, password: password, send: smtp.SendMail}, nil
}

func (n *EmailNotifier) Notify(_ context.Context, ev Event) error {
	subject, body := n.compose(ev)

	msg := strings.Builder{}
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", n.cfg.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.password, n.cfg.Host)

	if err := n.send(addr, auth, n.cfg.From, []string{n.cfg.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (n *EmailNotifier) compose(ev Event) (subject, body string) {
	var b strings.Builder
	switch ev.Kind {
	case EventApplicationSent:
		subject = fmt.Sprintf("Application sent: %s", ev.Record.Company)
		fmt.Fprintf(&b, "Your application was submitted automatically.\n\n")
	case EventApplicationFailed:
		subject = fmt.Sprintf("Application failed: %s", ev.Record.Company)
		fmt.Fprintf(&b, "An application could not be completed.\n\n")
	case EventCycleFinished:
		subject = "Job search cycle finished"
	default:
		subject = fmt.Sprintf("Application update: %s", ev.Kind)
	}

	if ev.Record != nil {
		fmt.Fprintf(&b, "Company:  %s\n", ev.Record.Company)
		fmt.Fprintf(&b, "Position: %s\n", ev.Record.Title)
		fmt.Fprintf(&b, "Location: %s\n", ev.Record.Location)
		fmt.Fprintf(&b, "Score:    %.0f%%\n", ev.Record.Score*100)
		fmt.Fprintf(&b, "URL:      %s\n", ev.Record.URL)
		if ev.Record.LastError != "" {
			fmt.Fprintf(&b, "Error:    %s\n", ev.Record.LastError)
		}
	}
	if ev.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", ev.Summary)
	}
	return subject, b.String()
}
