package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"bibliobalance/internal/metrics"
	"bibliobalance/internal/models"
)

// sesAPI is the part of the SES client used for sending.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that accepts and drops every message.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger *zap.Logger) (*EmailService, error) {
	if fromEmail == "" {
		logger.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("Email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, logger), nil
}

func newEmailService(client sesAPI, fromEmail, fromName, appBaseURL string, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

const emailStyle = `
		body { font-family: Georgia, serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #6b4f3a; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #faf6f0; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #6b4f3a; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }`

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	if !s.enabled {
		s.logger.Debug("Skipping email send (service disabled)", zap.String("kind", "welcome"))
		return nil
	}

	subject := "Welcome to Biblio Balance!"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>%s
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome to Biblio Balance!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>Your reading journal is ready. Here's what you can do next:</p>
			<ul>
				<li>Add the books you are reading or want to read</li>
				<li>Track your progress page by page</li>
				<li>Set a yearly reading challenge</li>
				<li>See your reading stats by month and genre</li>
			</ul>
			<p style="text-align: center;">
				<a href="%s/dashboard" class="button">Open your library</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Biblio Balance. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, emailStyle, username, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

Your reading journal is ready. Here's what you can do next:
- Add the books you are reading or want to read
- Track your progress page by page
- Set a yearly reading challenge
- See your reading stats by month and genre

Open your library: %s/dashboard

---
This is an automated email from Biblio Balance. Please do not reply.
`, username, s.appBaseURL)

	err := s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
	metrics.RecordEmail("welcome", err)
	return err
}

// SendChallengeCompletedEmail congratulates a user who reached the target
// of a yearly challenge.
func (s *EmailService) SendChallengeCompletedEmail(ctx context.Context, toEmail, username string, c *models.ReadingChallenge) error {
	if !s.enabled {
		s.logger.Debug("Skipping email send (service disabled)", zap.String("kind", "challenge_completed"))
		return nil
	}

	subject := fmt.Sprintf("You completed your %d reading challenge!", c.Year)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>%s
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Challenge complete!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>You finished <strong>%d</strong> books and reached the target of <strong>%s</strong>.</p>
			<p>Why stop here? You can raise the target at any time.</p>
			<p style="text-align: center;">
				<a href="%s/stats" class="button">See your stats</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Biblio Balance. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, emailStyle, username, c.Current, c.Name, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

You finished %d books and reached the target of %s.

Why stop here? You can raise the target at any time.

See your stats: %s/stats

---
This is an automated email from Biblio Balance. Please do not reply.
`, username, c.Current, c.Name, s.appBaseURL)

	err := s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
	metrics.RecordEmail("challenge_completed", err)
	return err
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

	s.logger.Info("Email sent",
		zap.String("subject", subject),
		zap.String("message_id", aws.ToString(result.MessageId)))
	return nil
}
