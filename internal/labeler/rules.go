package labeler

// RuleSet is a named group of patterns bound to one input field. Any single
// matching pattern triggers the set's category; patterns are not scored.
type RuleSet struct {
	Name     string   `json:"name" yaml:"name"`
	Field    Field    `json:"field" yaml:"field"`
	Category Category `json:"category" yaml:"category"`
	Patterns []string `json:"patterns" yaml:"patterns"`
}

// Rule set names used by DefaultRuleSets. They appear in label explanations
// and in the rule_matches_total metric.
const (
	IssueRefund       = "issue_refund"
	IssueBilling      = "issue_billing"
	IssueDelivery     = "issue_delivery"
	NarrativeApp      = "narrative_app"
	NarrativeRefund   = "narrative_refund"
	NarrativeBilling  = "narrative_billing"
	NarrativeDelivery = "narrative_delivery"
)

// DefaultRuleSets returns the built-in rule sets in evaluation order.
// The first set that matches wins; later sets are never consulted.
//
// Cascade:
//
//	1 - issue_refund        -> refund_request
//	2 - issue_billing       -> billing_problem
//	3 - issue_delivery      -> delivery_issue
//	4 - narrative_app       -> app_bug
//	5 - narrative_refund    -> refund_request
//	6 - narrative_billing   -> billing_problem
//	7 - narrative_delivery  -> delivery_issue
//	    (no match)          -> other
//
// The narrative refund/billing/delivery sets intentionally differ from their
// issue counterparts (narrative_refund has no "credit balance refund" or
// "paid by mistake"). Keep them separate.
func DefaultRuleSets() []RuleSet {
	return []RuleSet{
		{
			Name:     IssueRefund,
			Field:    FieldIssue,
			Category: RefundRequest,
			Patterns: []string{
				`\brefund`,
				`chargeback`,
				`reimburse`,
				`money back`,
				`credit balance refund`,
				`reverse(d)? charge`,
				`paid by mistake`,
			},
		},
		{
			Name:     IssueBilling,
			Field:    FieldIssue,
			Category: BillingProblem,
			Patterns: []string{
				`billing`,
				`\bcharged\b`,
				`overcharg`,
				`fee`,
				`interest`,
				`late fee`,
				`incorrect amount`,
				`statement`,
				`charged twice`,
			},
		},
		{
			Name:     IssueDelivery,
			Field:    FieldIssue,
			Category: DeliveryIssue,
			Patterns: []string{
				`card not received`,
				`never received`,
				`did not receive`,
				`in the mail`,
				`mail delivery`,
				`delayed (?:delivery|mail|card)`,
			},
		},
		{
			Name:     NarrativeApp,
			Field:    FieldNarrative,
			Category: AppBug,
			Patterns: []string{
				`\bapp\b`,
				`application`,
				`\bmobile\b`,
				`website`,
				`online portal`,
				`\bonline\b`,
				`portal`,
				`login`,
				`password`,
				`technical`,
				`error`,
				`crash`,
				`bug`,
				`glitch`,
				`update`,
				`site (?:down|error)`,
				`unable to (?:log|login|sign in)`,
				`two[- ]?factor`,
				`otp`,
			},
		},
		{
			Name:     NarrativeRefund,
			Field:    FieldNarrative,
			Category: RefundRequest,
			Patterns: []string{
				`\brefund`,
				`chargeback`,
				`reimburse`,
				`money back`,
				`reverse(d)? charge`,
			},
		},
		{
			Name:     NarrativeBilling,
			Field:    FieldNarrative,
			Category: BillingProblem,
			Patterns: []string{
				`\bcharged\b`,
				`billing`,
				`fee`,
				`interest`,
				`late fee`,
				`overcharg`,
				`statement`,
				`charged twice`,
			},
		},
		{
			Name:     NarrativeDelivery,
			Field:    FieldNarrative,
			Category: DeliveryIssue,
			Patterns: []string{
				`card (?:not|never) received`,
				`never received`,
				`did not receive`,
				`in the mail`,
				`delayed`,
				`arriv(e|al)`,
				`mail delivery`,
				`debit card not received`,
				`credit card not received`,
			},
		},
	}
}
