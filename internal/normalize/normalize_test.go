package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Consumer complaint narrative", "consumer_complaint_narrative"},
		{"  Product  ", "product"},
		{"Issue", "issue"},
		{"\ufeffDate received", "date_received"},
		{"Credit card or prepaid card", "credit_card_or_prepaid_card"},
		{"Money transfer, virtual currency, or money service", "money_transfer_virtual_currency_or_money_service"},
		{"Bank account or service", "bank_account_or_service"},
		{"__already_normal__", "already_normal"},
		{"ZIP-code (5)", "zip_code_5"},
		{"!!!", ""},
		{"", ""},
		{"Überweisung", "berweisung"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Identifier(tt.in), "Identifier(%q)", tt.in)
	}
}

func TestIdentifier_Idempotent(t *testing.T) {
	inputs := []string{
		"Consumer complaint narrative",
		"  -- Mixed__CASE  value --  ",
		"a..b..c",
		"",
		"_",
		"Checking or savings account",
		"tab\tand\nnewline",
	}

	for _, in := range inputs {
		once := Identifier(in)
		assert.Equal(t, once, Identifier(once), "Identifier not idempotent for %q", in)
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "my app crashed", Text("  My App CRASHED \n"))
	assert.Equal(t, "", Text("   "))
}
