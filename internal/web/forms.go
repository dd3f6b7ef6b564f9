package web

import (
	"fmt"
	"net/http"
	"net/mail"
	"strings"
)

const minPasswordLen = 6

// formValues carries the submitted fields back into the re-rendered page.
// Passwords are deliberately absent: they are read from the request but
// never echoed back.
type formValues struct {
	FullName string
	Email    string
	Phone    string
}

func valuesFrom(r *http.Request) formValues {
	return formValues{
		FullName: strings.TrimSpace(r.PostFormValue("full_name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Phone:    strings.TrimSpace(r.PostFormValue("phone_number")),
	}
}

// validateRegistration runs before any storage call. In demo mode only
// name and email are collected, matching the anonymous flow.
func validateRegistration(v formValues, password, confirm string, demo bool) map[string]string {
	errs := make(map[string]string)

	if v.FullName == "" {
		errs["full_name"] = "Full name is required."
	}
	validateEmail(v.Email, errs)

	if demo {
		return errs
	}

	switch {
	case password == "":
		errs["password"] = "Password is required."
	case len(password) < minPasswordLen:
		errs["password"] = fmt.Sprintf("Password must be at least %d characters.", minPasswordLen)
	case password != confirm:
		errs["confirm"] = "Passwords do not match."
	}

	return errs
}

func validateLogin(email, password string) map[string]string {
	errs := make(map[string]string)
	validateEmail(email, errs)
	if password == "" {
		errs["password"] = "Password is required."
	}
	return errs
}

func validateEmail(email string, errs map[string]string) {
	if email == "" {
		errs["email"] = "Email address is required."
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "That does not look like a valid email address."
	}
}
