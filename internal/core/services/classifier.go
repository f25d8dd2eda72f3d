package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/logger"
	"github.com/custodia-labs/guestmail/internal/metrics"
)

// DefaultBodyPromptChars bounds the body prefix sent for classification.
const DefaultBodyPromptChars = 1000

// Classifier assigns a category to a message. Inference is tried first;
// any failure degrades to FallbackClassify so the caller always gets a
// result.
type Classifier struct {
	inference *Inference
	bodyChars int
}

// NewClassifier creates a classifier. bodyChars <= 0 uses DefaultBodyPromptChars.
func NewClassifier(inference *Inference, bodyChars int) *Classifier {
	if bodyChars <= 0 {
		bodyChars = DefaultBodyPromptChars
	}
	return &Classifier{inference: inference, bodyChars: bodyChars}
}

// Classify returns the classification for msg. It only fails when ctx is
// cancelled, so the run can stop instead of mislabelling the remainder.
func (c *Classifier) Classify(ctx context.Context, msg *domain.MailboxMessage) (domain.Classification, error) {
	if !c.inference.Available() {
		return FallbackClassify(msg.Subject, msg.From, msg.Body), nil
	}

	date := "Unknown"
	if !msg.ReceivedAt.IsZero() {
		date = msg.ReceivedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	var reply classificationReply
	err := c.inference.JSON(ctx, opClassify, driven.PromptClassify, classificationSchema(), &reply,
		msg.From, msg.Subject, date, msg.BodyPrefix(c.bodyChars))
	if err == nil {
		category, perr := domain.ParseCategory(reply.Category)
		if perr == nil {
			return domain.Classification{
				Category:   category,
				Confidence: domain.ClampConfidence(reply.Confidence),
				Rationale:  strings.TrimSpace(reply.Reasoning),
			}, nil
		}
		err = perr
	}
	if ctx.Err() != nil {
		return domain.Classification{}, ctx.Err()
	}

	logger.Warn("classify %s: %v (using keyword rules)", msg.ID, err)
	metrics.RecordFallback(opClassify)
	return FallbackClassify(msg.Subject, msg.From, msg.Body), nil
}

// keywordRule is one step of the ordered fallback. The first rule whose
// predicate matches decides the category.
type keywordRule struct {
	category   domain.Category
	confidence int
	label      string
	match      func(subject, from, body, rawBody string) bool
}

var fallbackRules = []keywordRule{
	{
		category: domain.CategoryBookings, confidence: 70, label: "booking-related",
		match: func(subject, from, body, _ string) bool {
			return containsAny(from, domain.TravelPlatformDomains()...) ||
				containsAny(from, "airbnb", "expedia", "agoda") ||
				containsAny(subject, "reservation", "booking") ||
				containsAny(body, "check-in", "check-out")
		},
	},
	{
		category: domain.CategoryFinance, confidence: 70, label: "financial",
		match: func(subject, from, body, rawBody string) bool {
			return containsAny(subject, "invoice", "payment", "receipt") ||
				strings.Contains(from, "otelms") ||
				strings.Contains(body, "₾") ||
				strings.Contains(rawBody, "GEL") ||
				strings.Contains(body, "revenue")
		},
	},
	{
		category: domain.CategoryMarketing, confidence: 70, label: "marketing",
		match: func(subject, _, body, _ string) bool {
			return containsAny(subject, "newsletter", "unsubscribe", "promotion", "offer", "discount") ||
				containsAny(body, "click here", "limited time")
		},
	},
	{
		category: domain.CategorySpam, confidence: 60, label: "spam",
		match: func(subject, _, body, _ string) bool {
			return containsAny(subject, "urgent", "winner", "claim", "verify your account") ||
				strings.Contains(body, "click here immediately")
		},
	},
}

// FallbackClassify categorises by ordered keyword and sender rules.
// It is deterministic and never calls out.
func FallbackClassify(subject, from, body string) domain.Classification {
	ls, lf, lb := strings.ToLower(subject), strings.ToLower(from), strings.ToLower(body)
	for _, rule := range fallbackRules {
		if rule.match(ls, lf, lb, body) {
			return domain.Classification{
				Category:   rule.category,
				Confidence: rule.confidence,
				Rationale:  "Detected " + rule.label + " keywords (fallback method)",
				Fallback:   true,
			}
		}
	}
	return domain.Classification{
		Category:   domain.CategoryGeneral,
		Confidence: 50,
		Rationale:  "No specific keywords detected (fallback method)",
		Fallback:   true,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
