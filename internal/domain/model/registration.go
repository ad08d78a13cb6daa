package model

import (
	"regexp"
	"strings"
	"unicode"
)

// RegistrationForm collects the student details gathered on the registration
// step of a checkout flow. Validation is declarative: one validator per field,
// evaluated uniformly on blur and on submit, so field-level and submit-level
// checks can never drift apart.
type RegistrationForm struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptedTerms   bool   `json:"accepted_terms"`
}

// phoneDigits is the exact digit count for the target locale (India).
const phoneDigits = 10

var emailRx = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type fieldValidator struct {
	check func(f *RegistrationForm) bool
	msg   string
}

// registrationValidators is the single source of truth for form validity.
// Order matters only for "first invalid field" reporting, so the map is
// paired with an explicit field order.
var registrationFieldOrder = []string{"full_name", "email", "phone", "password", "confirm_password", "accepted_terms"}

var registrationValidators = map[string]fieldValidator{
	"full_name": {
		check: func(f *RegistrationForm) bool { return len(strings.TrimSpace(f.FullName)) >= 2 },
		msg:   "full name must be at least 2 characters",
	},
	"email": {
		check: func(f *RegistrationForm) bool { return emailRx.MatchString(strings.TrimSpace(f.Email)) },
		msg:   "enter a valid email address",
	},
	"phone": {
		check: func(f *RegistrationForm) bool { return isExactDigits(f.Phone, phoneDigits) },
		msg:   "phone number must be exactly 10 digits",
	},
	"password": {
		check: func(f *RegistrationForm) bool { return isStrongPassword(f.Password) },
		msg:   "password must be at least 8 characters with an uppercase letter, a lowercase letter and a digit",
	},
	"confirm_password": {
		check: func(f *RegistrationForm) bool { return f.Password != "" && f.Password == f.ConfirmPassword },
		msg:   "passwords do not match",
	},
	"accepted_terms": {
		check: func(f *RegistrationForm) bool { return f.AcceptedTerms },
		msg:   "you must accept the terms and conditions",
	},
}

// ValidateField runs a single field's validator. Unknown fields report valid.
func (f *RegistrationForm) ValidateField(name string) (ok bool, msg string) {
	v, found := registrationValidators[name]
	if !found {
		return true, ""
	}
	if !v.check(f) {
		return false, v.msg
	}
	return true, ""
}

// Validate evaluates every field validator and returns per-field errors plus
// the first invalid field in display order (the UI scrolls to it).
func (f *RegistrationForm) Validate() (errs map[string]string, firstInvalid string) {
	errs = make(map[string]string)
	for _, name := range registrationFieldOrder {
		if ok, msg := f.ValidateField(name); !ok {
			errs[name] = msg
			if firstInvalid == "" {
				firstInvalid = name
			}
		}
	}
	return errs, firstInvalid
}

// IsValid is true iff every field-level validator passes.
func (f *RegistrationForm) IsValid() bool {
	errs, _ := f.Validate()
	return len(errs) == 0
}

func isExactDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isStrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
