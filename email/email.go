// Package email notifies the reviewing admin when an inspection completes.
package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/dukerupert/liftcheck"
	"github.com/keighl/postmark"
)

// Compile-time interface checks
var _ liftcheck.Notifier = (*LogNotifier)(nil)
var _ liftcheck.Notifier = (*PostmarkNotifier)(nil)

// New creates a notifier based on the provider configuration.
func New(logger *slog.Logger, cfg liftcheck.EmailConfig) liftcheck.Notifier {
	switch cfg.Provider {
	case "postmark":
		return NewPostmarkNotifier(logger, cfg)
	default:
		return &LogNotifier{logger: logger, cfg: cfg}
	}
}

// LogNotifier logs notifications instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
	cfg    liftcheck.EmailConfig
}

func (n *LogNotifier) InspectionCompleted(ctx context.Context, insp *liftcheck.Inspection) error {
	s := insp.Summary()
	n.logger.Info("MOCK EMAIL: Inspection completed",
		slog.Any("to", n.cfg.AdminAddresses),
		slog.String("subject", subject(insp)),
		slog.String("review_url", reviewURL(n.cfg.ReviewBaseURL, insp)),
		slog.Int("defects", s.DefectCount),
		slog.Int("unresolved", s.UnresolvedCount))
	return nil
}

// PostmarkNotifier sends notifications via Postmark.
type PostmarkNotifier struct {
	client *postmark.Client
	logger *slog.Logger
	cfg    liftcheck.EmailConfig
}

// NewPostmarkNotifier creates a Postmark-backed notifier.
func NewPostmarkNotifier(logger *slog.Logger, cfg liftcheck.EmailConfig) *PostmarkNotifier {
	return &PostmarkNotifier{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		logger: logger,
		cfg:    cfg,
	}
}

// InspectionCompleted emails every admin address. Nothing is sent when no
// admin is configured.
func (n *PostmarkNotifier) InspectionCompleted(ctx context.Context, insp *liftcheck.Inspection) error {
	if len(n.cfg.AdminAddresses) == 0 {
		return nil
	}

	url := reviewURL(n.cfg.ReviewBaseURL, insp)
	email := postmark.Email{
		From:       fmt.Sprintf("%s <%s>", n.cfg.FromName, n.cfg.FromAddress),
		To:         strings.Join(n.cfg.AdminAddresses, ","),
		Subject:    subject(insp),
		TextBody:   textBody(insp, url),
		HtmlBody:   htmlBody(insp, url),
		Tag:        "inspection-completed",
		TrackOpens: true,
	}

	if _, err := n.client.SendEmail(email); err != nil {
		n.logger.Error("failed to send completion email via Postmark",
			slog.String("inspection_id", insp.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to send completion email: %w", err)
	}

	n.logger.Info("completion email sent via Postmark",
		slog.String("inspection_id", insp.ID.String()),
		slog.Int("recipients", len(n.cfg.AdminAddresses)))
	return nil
}

func subject(insp *liftcheck.Inspection) string {
	s := fmt.Sprintf("Inspection completed: %s (%s)", insp.AssetID, insp.CraneStatus)
	if insp.CraneStatus == liftcheck.StatusUnsafe {
		s = "[UNSAFE] " + s
	}
	return s
}

func reviewURL(base string, insp *liftcheck.Inspection) string {
	return fmt.Sprintf("%s/inspections/%s", strings.TrimRight(base, "/"), insp.ID)
}

// defectLines lists defective and unresolved rows in form order.
func defectLines(insp *liftcheck.Inspection) []string {
	var lines []string
	for _, r := range insp.Items {
		switch {
		case r.Result == liftcheck.ResultDefect && r.Defect != nil:
			line := fmt.Sprintf("%s: %s, rectify %s", r.Key, r.Defect.Severity, strings.ToLower(string(r.Defect.Timeframe)))
			if r.Defect.Notes != "" {
				line += " - " + r.Defect.Notes
			}
			lines = append(lines, line)
		case r.Result == liftcheck.ResultUnresolved:
			lines = append(lines, fmt.Sprintf("%s: previous defect still unresolved", r.Key))
		}
	}
	return lines
}

func textBody(insp *liftcheck.Inspection, url string) string {
	s := insp.Summary()
	var b strings.Builder
	fmt.Fprintf(&b, "Asset %s was inspected by %s.\n\n", insp.AssetID, insp.TechnicianID)
	fmt.Fprintf(&b, "Operational status: %s\n", insp.CraneStatus)
	fmt.Fprintf(&b, "Items: %d passed, %d defects, %d unresolved\n", s.PassCount, s.DefectCount, s.UnresolvedCount)
	if lines := defectLines(insp); len(lines) > 0 {
		b.WriteString("\nDefects:\n")
		for _, l := range lines {
			b.WriteString("- " + l + "\n")
		}
	}
	fmt.Fprintf(&b, "\nReview: %s\n", url)
	return b.String()
}

func htmlBody(insp *liftcheck.Inspection, url string) string {
	s := insp.Summary()
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Inspection completed: %s</h2>\n", html.EscapeString(insp.AssetID))
	fmt.Fprintf(&b, "<p>Operational status: <strong>%s</strong></p>\n", html.EscapeString(string(insp.CraneStatus)))
	fmt.Fprintf(&b, "<p>%d passed, %d defects, %d unresolved</p>\n", s.PassCount, s.DefectCount, s.UnresolvedCount)
	if lines := defectLines(insp); len(lines) > 0 {
		b.WriteString("<ul>\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(l))
		}
		b.WriteString("</ul>\n")
	}
	fmt.Fprintf(&b, "<p><a href=\"%s\">Review inspection</a></p>\n", html.EscapeString(url))
	return b.String()
}
