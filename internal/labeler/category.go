// Package labeler provides the rule-based weak labeler that assigns each
// complaint one of five categories: refund_request, billing_problem,
// delivery_issue, app_bug, or other. Labels come from prioritized regular
// expression rule sets over the issue and narrative fields rather than from
// a trained model.
package labeler

import "fmt"

// Category is the closed set of labels a complaint can receive.
type Category string

const (
	// RefundRequest covers refunds, chargebacks, reimbursements and reversed
	// charges.
	RefundRequest Category = "refund_request"

	// BillingProblem covers charges, fees, interest and statement disputes.
	BillingProblem Category = "billing_problem"

	// DeliveryIssue covers cards or mail that never arrived or arrived late.
	DeliveryIssue Category = "delivery_issue"

	// AppBug covers app, website, login and other technical problems.
	AppBug Category = "app_bug"

	// Other is the fallback. No rule ever produces it; it is returned only
	// when every rule set fails to match.
	Other Category = "other"
)

// AllCategories returns the complete set of categories in a stable order.
func AllCategories() []Category {
	return []Category{
		RefundRequest,
		BillingProblem,
		DeliveryIssue,
		AppBug,
		Other,
	}
}

// Valid reports whether c is one of the five known categories.
func (c Category) Valid() bool {
	switch c {
	case RefundRequest, BillingProblem, DeliveryIssue, AppBug, Other:
		return true
	}
	return false
}

// ParseCategory converts a stored label back into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Field names the input column a rule set reads from.
type Field string

const (
	// FieldIssue is the short, semi-structured issue column. It is the more
	// reliable signal and is always evaluated first.
	FieldIssue Field = "issue"

	// FieldNarrative is the free-text complaint body.
	FieldNarrative Field = "narrative"
)
