// internal/auth/method.go
package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Method is the login protocol.
type Method string

const (
	// MethodFirstParty logs in with the platform's own credential form.
	MethodFirstParty Method = "first_party"
	// MethodFederated logs in through the external identity provider.
	MethodFederated Method = "federated"
)

// ParseMethod accepts the configured method name. Case, dashes and
// underscores are ignored, so "FirstParty" and "first-party" both parse.
func ParseMethod(s string) (Method, error) {
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(s))
	switch key {
	case "firstparty":
		return MethodFirstParty, nil
	case "federated", "federatedprovider", "google":
		return MethodFederated, nil
	}
	return "", fmt.Errorf("unknown authentication method %q", s)
}

// Credentials are the account secrets. They are never logged.
type Credentials struct {
	Username string
	Password string
}

// String masks the username and redacts the password.
func (c Credentials) String() string {
	return c.MaskedUsername() + ":[redacted]"
}

// MaskedUsername keeps the first character of the local part and the
// domain: student@example.com becomes s******@example.com.
func (c Credentials) MaskedUsername() string {
	local, domain, isEmail := strings.Cut(c.Username, "@")
	runes := []rune(local)
	if len(runes) == 0 {
		return ""
	}
	masked := string(runes[0]) + strings.Repeat("*", len(runes)-1)
	if len(runes) == 1 {
		masked += "*"
	}
	if isEmail {
		masked += "@" + domain
	}
	return masked
}

// ErrAuthenticationStepFailed matches every StepError through errors.Is.
var ErrAuthenticationStepFailed = errors.New("authentication step failed")

// StepError names the login step that failed. It is fatal to the run.
type StepError struct {
	Method Method
	Step   string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s login failed at step %q: %v", e.Method, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (e *StepError) Is(target error) bool { return target == ErrAuthenticationStepFailed }
