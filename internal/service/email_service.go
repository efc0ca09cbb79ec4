package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"

	"speakwell/internal/models"
)

// emailSender is the part of the SES client the service uses
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     emailSender
	fromEmail  string
	fromName   string
	appBaseURL string
	adminEmail string
	enabled    bool
	logger     logrus.FieldLogger
}

// EmailConfig holds the SES settings
type EmailConfig struct {
	AWSRegion  string
	FromEmail  string
	FromName   string
	AppBaseURL string
	AdminEmail string
}

// NewEmailService creates a new email service. An empty FromEmail yields a
// disabled service that logs and drops every message.
func NewEmailService(ctx context.Context, cfg EmailConfig, logger logrus.FieldLogger) (*EmailService, error) {
	logger = logger.WithField("component", "email")
	s := &EmailService{
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: cfg.AppBaseURL,
		adminEmail: cfg.AdminEmail,
		logger:     logger,
	}

	if cfg.FromEmail == "" {
		logger.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return s, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s.client = sesv2.NewFromConfig(awsCfg)
	s.enabled = true
	logger.WithFields(logrus.Fields{"from": cfg.FromEmail, "region": cfg.AWSRegion}).Info("Email service enabled")
	return s, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

var emailLayout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2f7d6d; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #2f7d6d; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>{{.Title}}</h1></div>
		<div class="content">
			{{range .Paragraphs}}<p>{{.}}</p>
			{{end}}{{if .Link}}<p style="text-align: center;"><a href="{{.Link}}" class="button">{{.LinkText}}</a></p>{{end}}
		</div>
		<div class="footer"><p>This is an automated email from Speakwell. Please do not reply.</p></div>
	</div>
</body>
</html>
`))

type emailContent struct {
	Title      string
	Paragraphs []string
	Link       string
	LinkText   string
}

func (c emailContent) html() (string, error) {
	var buf bytes.Buffer
	if err := emailLayout.Execute(&buf, c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c emailContent) text() string {
	var buf bytes.Buffer
	for _, p := range c.Paragraphs {
		buf.WriteString(p)
		buf.WriteString("\n\n")
	}
	if c.Link != "" {
		fmt.Fprintf(&buf, "%s: %s\n\n", c.LinkText, c.Link)
	}
	buf.WriteString("---\nThis is an automated email from Speakwell. Please do not reply.\n")
	return buf.String()
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	content := emailContent{
		Title: "Welcome to Speakwell!",
		Paragraphs: []string{
			fmt.Sprintf("Hi %s,", toName),
			"Thank you for creating your Speakwell account. Take the speaking test to find your level, then work through the lessons unlocked for you.",
		},
		Link:     s.appBaseURL + "/trial",
		LinkText: "Take the speaking test",
	}
	return s.send(ctx, toEmail, "Welcome to Speakwell!", content)
}

// SendFeedbackNotification tells the admin mailbox about new learner feedback
func (s *EmailService) SendFeedbackNotification(ctx context.Context, fb *models.Feedback) error {
	if s.adminEmail == "" {
		s.logger.Debug("No ADMIN_EMAIL configured, skipping feedback notification")
		return nil
	}
	content := emailContent{
		Title: "New feedback",
		Paragraphs: []string{
			fmt.Sprintf("%s submitted %s feedback (priority %s):", fb.UserName, fb.Type, fb.Priority),
			fb.Message,
		},
		Link:     s.appBaseURL + "/admin/feedback",
		LinkText: "Review feedback",
	}
	return s.send(ctx, s.adminEmail, fmt.Sprintf("[Speakwell] New %s feedback", fb.Type), content)
}

func (s *EmailService) send(ctx context.Context, toEmail, subject string, content emailContent) error {
	if !s.enabled {
		s.logger.WithFields(logrus.Fields{"to": toEmail, "subject": subject}).Info("Skipping email send (service disabled)")
		return nil
	}

	htmlBody, err := content.html()
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}
	return s.sendEmail(ctx, toEmail, subject, htmlBody, content.text())
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	entry := s.logger.WithFields(logrus.Fields{"to": toEmail, "subject": subject})
	if result.MessageId != nil {
		entry = entry.WithField("message_id", *result.MessageId)
	}
	entry.Info("Email sent")
	return nil
}
