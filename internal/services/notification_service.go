package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/metrics"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/mailer"
)

// RecipientLookup finds the people an email should go to
type RecipientLookup interface {
	ListApprovedByFlat(ctx context.Context, flatNumber string) ([]models.User, error)
	ListApprovedEmails(ctx context.Context) ([]string, error)
}

// NotificationService renders and sends community emails.
// Callers run it from the dispatcher; a failed email never fails the request that caused it.
type NotificationService struct {
	sender           mailer.Sender
	recipients       RecipientLookup
	maintenanceEmail string
	baseURL          string
	logger           *logrus.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(sender mailer.Sender, recipients RecipientLookup, maintenanceEmail, baseURL string, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		sender:           sender,
		recipients:       recipients,
		maintenanceEmail: maintenanceEmail,
		baseURL:          strings.TrimRight(baseURL, "/"),
		logger:           logger,
	}
}

// NotifyVisitorRequest emails the residents of the visitor's flat
func (s *NotificationService) NotifyVisitorRequest(ctx context.Context, v *models.VisitorRequest) error {
	residents, err := s.recipients.ListApprovedByFlat(ctx, v.FlatNumber)
	if err != nil {
		return fmt.Errorf("failed to load residents of %s: %w", v.FlatNumber, err)
	}
	if len(residents) == 0 {
		s.logger.WithField("flat_number", v.FlatNumber).Warn("No resident found for visitor request")
		return nil
	}

	var firstErr error
	for _, r := range residents {
		body := fmt.Sprintf(`<p>Dear %s,</p>
<p>An unknown visitor has requested access to your flat (%s).</p>
<p>Visitor Name: %s</p>
<p>Purpose: %s</p>
<p>Please check your visitor management system.</p><br>
<p>Regards,</p>
<p>Security Team</p>`,
			html.EscapeString(r.Username), html.EscapeString(v.FlatNumber),
			html.EscapeString(v.Name), html.EscapeString(v.Purpose))

		err := s.send(ctx, "visitor_request", mailer.Message{
			To:      []string{r.Email},
			Subject: "Unknown Visitor Request",
			HTML:    body,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendVisitorPass emails a known visitor their QR code as visitor_qr.png
func (s *NotificationService) SendVisitorPass(ctx context.Context, v *models.KnownVisitor, qrPNG []byte) error {
	body := fmt.Sprintf(`<p>Hello <strong>%s</strong>,</p>
<p>Your visitor pass QR code is attached. Please present this code at the security gate.</p>
<p><strong>Visit Date:</strong> %s</p>
<p><strong>Purpose:</strong> %s</p>
<p><strong>Flat Number :</strong> %s</p>
<p>Thank you,</p>
<p>SmartHive Security Team</p>`,
		html.EscapeString(v.Name), v.VisitDate.Format("2006-01-02"),
		html.EscapeString(v.Purpose), html.EscapeString(v.FlatNumber))

	return s.send(ctx, "visitor_pass", mailer.Message{
		To:      []string{v.Email},
		Subject: "Your Visitor Pass QR Code",
		HTML:    body,
		Attachments: []mailer.Attachment{{
			Filename:    "visitor_qr.png",
			ContentType: "image/png",
			Data:        qrPNG,
		}},
	})
}

// NotifyRegistrationDecision tells an applicant whether their account was approved
func (s *NotificationService) NotifyRegistrationDecision(ctx context.Context, user *models.User) error {
	status, text := "Declined", "Your registration was declined."
	if user.IsApproved() {
		status, text = "Approved", "Your registration has been approved!"
	}

	return s.send(ctx, "registration_"+strings.ToLower(status), mailer.Message{
		To:      []string{user.Email},
		Subject: "Registration " + status,
		Text:    text,
	})
}

// NotifyAnnouncement emails every approved resident
func (s *NotificationService) NotifyAnnouncement(ctx context.Context, a *models.Announcement) error {
	emails, err := s.recipients.ListApprovedEmails(ctx)
	if err != nil {
		return fmt.Errorf("failed to load announcement recipients: %w", err)
	}
	if len(emails) == 0 {
		s.logger.Info("No approved users to notify of announcement")
		return nil
	}

	err = s.send(ctx, "announcement", mailer.Message{
		To:      emails,
		Subject: "New Announcement: " + a.Title,
		Text:    a.Details,
		HTML: fmt.Sprintf(`<p>%s</p>
<p>Regards</p>
<p>Admin Team</p>
<p>SmartHive</p>`, html.EscapeString(a.Details)),
	})
	if err != nil {
		return err
	}

	s.logger.WithField("recipients", len(emails)).Info("Announcement email sent")
	return nil
}

// NotifyMaintenanceRequest emails the maintenance desk
func (s *NotificationService) NotifyMaintenanceRequest(ctx context.Context, m *models.MaintenanceRequest) error {
	if s.maintenanceEmail == "" {
		s.logger.Warn("MAINTENANCE_EMAIL not set, skipping maintenance notification")
		return nil
	}

	var b strings.Builder
	b.WriteString("<h2>New Maintenance Request</h2>\n")
	fmt.Fprintf(&b, "<p><strong>Flat Number:</strong> %s</p>\n", html.EscapeString(m.FlatNumber))
	fmt.Fprintf(&b, "<p><strong>Title:</strong> %s</p>\n", html.EscapeString(m.Title))
	fmt.Fprintf(&b, "<p><strong>Description:</strong> %s</p>\n", html.EscapeString(m.Description))
	fmt.Fprintf(&b, "<p><strong>Preferred Date:</strong> %s</p>\n", m.PreferredDate.Format("2006-01-02"))
	if m.ImageURL.Valid {
		fmt.Fprintf(&b, `<p><strong>Issue Image:</strong> <a href="%s%s" target="_blank">View Image</a></p>`,
			s.baseURL, html.EscapeString(m.ImageURL.String))
	}

	return s.send(ctx, "maintenance_request", mailer.Message{
		To:      []string{s.maintenanceEmail},
		Subject: "New Maintenance Request: " + m.Title,
		HTML:    b.String(),
	})
}

func (s *NotificationService) send(ctx context.Context, template string, msg mailer.Message) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		metrics.IncEmail(template, "error")
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	metrics.IncEmail(template, "sent")
	return nil
}
