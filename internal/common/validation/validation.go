package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MaxNameLength  = 100
	MaxPhoneLength = 20
	MinPhoneLength = 7

	// Ticket counts the board can be sized to. Four-digit padding caps the
	// board at 10000 entries.
	MinTicketCount = 1
	MaxTicketCount = 10000
)

// PINs are short numeric credentials, 4 to 6 digits.
var pinRegex = regexp.MustCompile(`^[0-9]{4,6}$`)

// Phone numbers: digits with optional leading +, spaces and dashes allowed.
var phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,18}$`)

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name cannot exceed %d characters", MaxNameLength)
	}
	return nil
}

func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("phone cannot be empty")
	}
	if len(phone) < MinPhoneLength || len(phone) > MaxPhoneLength {
		return fmt.Errorf("phone must be between %d and %d characters", MinPhoneLength, MaxPhoneLength)
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("phone has an invalid format")
	}
	return nil
}

func ValidatePIN(pin string) error {
	if !pinRegex.MatchString(pin) {
		return fmt.Errorf("pin must be 4 to 6 digits")
	}
	return nil
}

func ValidateTicketCount(count int) error {
	if count < MinTicketCount {
		return fmt.Errorf("ticket count must be at least %d", MinTicketCount)
	}
	if count > MaxTicketCount {
		return fmt.Errorf("ticket count cannot exceed %d", MaxTicketCount)
	}
	return nil
}

// ValidateSelection checks a reservation batch: at least one id, no
// duplicates, no blanks.
func ValidateSelection(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("at least one ticket must be selected")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("ticket id cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate ticket id: %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
