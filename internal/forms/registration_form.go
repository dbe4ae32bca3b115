package forms

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"eventsite/internal/domain/event"
)

// DuplicateEmailMessage is the field error shown when an email is already
// registered for the event, whether caught by the pre-save check or by the
// storage constraint.
const DuplicateEmailMessage = "This email has already registered for this event."

// DuplicateChecker answers whether a registration with this email already
// exists for the event. The check is advisory; the storage uniqueness
// constraint remains the final authority when two submissions race.
type DuplicateChecker interface {
	ExistsForEvent(ctx context.Context, eventID, email string) (bool, error)
}

var validate = validator.New()

// RegistrationForm binds and validates a name/email submission scoped to a
// single event. It is decoupled from any request or response type: callers
// bind raw form values and ask for the verdict.
type RegistrationForm struct {
	Event event.Event

	Name  string
	Email string

	// field name -> messages, in the order they were added
	Errors map[string][]string

	checker DuplicateChecker
	bound   bool
}

func NewRegistrationForm(ev event.Event, checker DuplicateChecker) *RegistrationForm {
	return &RegistrationForm{
		Event:   ev,
		Errors:  make(map[string][]string),
		checker: checker,
	}
}

// Bind takes the untrusted form values. Leading and trailing whitespace is
// not meaningful in either field.
func (f *RegistrationForm) Bind(name, email string) {
	f.Name = strings.TrimSpace(name)
	f.Email = strings.TrimSpace(email)
	f.bound = true
}

// Validate runs the field checks and, when the email is well formed, the
// duplicate check against the store. The returned error is infrastructural
// (the duplicate lookup failed), never a validation verdict.
func (f *RegistrationForm) Validate(ctx context.Context) error {
	if err := validate.Var(f.Name, "required,max=100"); err != nil {
		f.AddError("name", fieldMessage(err))
	}

	emailOK := true
	if err := validate.Var(f.Email, "required,email,max=254"); err != nil {
		f.AddError("email", fieldMessage(err))
		emailOK = false
	}

	if emailOK && f.checker != nil {
		exists, err := f.checker.ExistsForEvent(ctx, f.Event.ID, f.Email)
		if err != nil {
			return err
		}
		if exists {
			f.AddError("email", DuplicateEmailMessage)
		}
	}

	return nil
}

func (f *RegistrationForm) Valid() bool {
	return f.bound && len(f.Errors) == 0
}

func (f *RegistrationForm) AddError(field, message string) {
	f.Errors[field] = append(f.Errors[field], message)
}

func (f *RegistrationForm) FieldErrors(field string) []string {
	return f.Errors[field]
}

// FieldClass returns the form-control styling for a field, marking it
// invalid after a failed submission. Display concern only.
func (f *RegistrationForm) FieldClass(field string) string {
	if f.bound && len(f.Errors[field]) > 0 {
		return "form-control is-invalid"
	}
	return "form-control"
}

func fieldMessage(err error) string {
	var verr validator.ValidationErrors
	if !errors.As(err, &verr) || len(verr) == 0 {
		return "is invalid"
	}

	fe := verr[0]
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return "Ensure this value has at most " + fe.Param() + " characters."
	default:
		return "is invalid"
	}
}
