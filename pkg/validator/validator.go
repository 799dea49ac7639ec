package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

const (
	maxNameLen = 100
	maxBioLen  = 500
)

func ValidateRegister(email, username, name, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)

	username = strings.TrimSpace(username)
	switch {
	case username == "":
		errs.Add("username", "Username is required")
	case len(username) < 3:
		errs.Add("username", "Username must be at least 3 characters")
	case len(username) > 50:
		errs.Add("username", "Username is too long")
	case !usernameRegex.MatchString(username):
		errs.Add("username", "Username can only contain letters, numbers, _, . and -")
	}

	validateName(name, errs)
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)
	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// ValidateProfile checks the fields of a partial profile update. Nil fields
// are left alone; an empty avatar is allowed and clears it.
func ValidateProfile(name, bio, avatar *string) ValidationErrors {
	errs := make(ValidationErrors)

	if name != nil {
		validateName(*name, errs)
	}
	if bio != nil && utf8.RuneCountInString(strings.TrimSpace(*bio)) > maxBioLen {
		errs.Add("bio", fmt.Sprintf("Bio must be at most %d characters", maxBioLen))
	}
	if avatar != nil && *avatar != "" {
		u, err := url.Parse(*avatar)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Add("avatar", "Avatar must be an http(s) URL")
		}
	}

	return errs
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validateName(name string, errs ValidationErrors) {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n == 0:
		errs.Add("name", "Name is required")
	case n > maxNameLen:
		errs.Add("name", "Name is too long")
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
