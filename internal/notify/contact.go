package notify

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// NormalizeContact renders a contact that is a valid phone number in
// international format. Handles, emails and anything else come back
// trimmed but otherwise verbatim.
func NormalizeContact(contact, region string) string {
	contact = strings.TrimSpace(contact)
	if !looksLikePhone(contact) {
		return contact
	}

	num, err := phonenumbers.Parse(contact, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return contact
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}

func looksLikePhone(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}
