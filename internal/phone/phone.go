// Package phone validates and normalizes phone numbers from the sign-up form.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/pkg/errors"
)

// DefaultRegion is assumed for numbers entered without a country prefix.
const DefaultRegion = "KZ"

// Clean strips everything but digits from a raw number, keeping a leading '+'.
func Clean(raw string) string {
	hasPlus := strings.HasPrefix(raw, "+")
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if hasPlus {
		return "+" + b.String()
	}
	return b.String()
}

// ParseAndFormat parses a raw phone number and returns it in E.164 form,
// e.g. "+77771234567". The region is used when the number carries no prefix.
func ParseAndFormat(raw, region string) (string, error) {
	if region == "" {
		region = DefaultRegion
	}
	parsed, err := phonenumbers.Parse(Clean(raw), region)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse phone number")
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", errors.Errorf("invalid phone number for region %s", region)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// IsValid reports whether a raw phone number is valid for the region.
func IsValid(raw, region string) bool {
	_, err := ParseAndFormat(raw, region)
	return err == nil
}
