package liftcheck

import "context"

// Notifier tells the reviewing admin about inspection events.
// Delivery is best-effort: the engine logs failures and carries on.
type Notifier interface {
	// InspectionCompleted is called after a completed inspection is saved.
	InspectionCompleted(ctx context.Context, inspection *Inspection) error
}

// EmailConfig holds configuration for email notifications.
type EmailConfig struct {
	// Provider is the email provider ("mock" or "postmark").
	Provider string

	// FromAddress is the sender email address.
	FromAddress string

	// FromName is the sender display name.
	FromName string

	// AdminAddresses receive completion notices.
	AdminAddresses []string

	// ReviewBaseURL is the base URL of the admin review page.
	ReviewBaseURL string

	// Postmark-specific configuration
	PostmarkServerToken  string
	PostmarkAccountToken string
}
