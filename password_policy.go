package iam

import (
	"fmt"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
)

// PasswordSymbols is the punctuation set accepted by the policy.
const PasswordSymbols = "!@#$%^&*()_+"

const (
	// PasswordMinLength is the minimum accepted password length
	PasswordMinLength = 8
	// PasswordMaxLength is the maximum accepted password length
	PasswordMaxLength = 128
)

// PasswordRule is a single policy rule. Rules are evaluated
// independently so callers can report every violation at once.
type PasswordRule struct {
	Code        string
	Description string
	Check       func(password string) bool
}

// DefaultPasswordRules returns the rule set enforced during
// registration and password changes.
func DefaultPasswordRules() []PasswordRule {
	return []PasswordRule{
		{
			Code:        "min_length",
			Description: fmt.Sprintf("must be at least %d characters long", PasswordMinLength),
			Check: func(password string) bool {
				return len(password) >= PasswordMinLength
			},
		},
		{
			Code:        "max_length",
			Description: fmt.Sprintf("must be at most %d characters long", PasswordMaxLength),
			Check: func(password string) bool {
				return len(password) <= PasswordMaxLength
			},
		},
		{
			Code:        "uppercase",
			Description: "must contain at least one uppercase letter",
			Check: func(password string) bool {
				return strings.ContainsFunc(password, unicode.IsUpper)
			},
		},
		{
			Code:        "lowercase",
			Description: "must contain at least one lowercase letter",
			Check: func(password string) bool {
				return strings.ContainsFunc(password, unicode.IsLower)
			},
		},
		{
			Code:        "digit",
			Description: "must contain at least one digit",
			Check: func(password string) bool {
				return strings.ContainsFunc(password, unicode.IsDigit)
			},
		},
		{
			Code:        "symbol",
			Description: fmt.Sprintf("must contain at least one of %s", PasswordSymbols),
			Check: func(password string) bool {
				return strings.ContainsAny(password, PasswordSymbols)
			},
		},
	}
}

// ValidatePasswordPolicy evaluates every rule against the password and
// returns all violated rules, empty when the password is acceptable.
func ValidatePasswordPolicy(password string, rules ...PasswordRule) []PasswordRule {
	if len(rules) == 0 {
		rules = DefaultPasswordRules()
	}

	var violations []PasswordRule
	for _, rule := range rules {
		if rule.Check == nil {
			continue
		}
		if !rule.Check(password) {
			violations = append(violations, rule)
		}
	}

	return violations
}

// PasswordPolicyRule adapts the policy to an ozzo validation rule so
// payloads can use it alongside field validations.
func PasswordPolicyRule(rules ...PasswordRule) validation.RuleFunc {
	return func(value any) error {
		password, _ := value.(string)
		violations := ValidatePasswordPolicy(password, rules...)
		if len(violations) == 0 {
			return nil
		}

		descriptions := make([]string, 0, len(violations))
		for _, rule := range violations {
			descriptions = append(descriptions, rule.Description)
		}

		return fmt.Errorf("%s", strings.Join(descriptions, "; "))
	}
}

// PasswordPolicyCodes returns the codes of the violated rules, used in
// error metadata.
func PasswordPolicyCodes(violations []PasswordRule) []string {
	codes := make([]string, 0, len(violations))
	for _, rule := range violations {
		codes = append(codes, rule.Code)
	}
	return codes
}
