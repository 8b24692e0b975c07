package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"agency-forms/models"
)

const (
	MsgRequiredFields   = "Required fields are missing."
	MsgInvalidEmail     = "Invalid email address."
	MsgEmailRequired    = "Email is required."
	MsgEmailInvalid     = "A valid email address is required."
	MsgInvalidBody      = "Invalid request body"
	MsgConfigError      = "Email configuration error"
	MsgSendFailed       = "Failed to send message"
	MsgContactSent      = "Your message has been sent successfully!"
	MsgWaitingListAdded = "Successfully joined the waiting list!"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateContact checks a normalized contact submission. All required
// fields are reported together.
func ValidateContact(s models.ContactSubmission) error {
	if err := validate.Struct(s); err != nil {
		return toValidationError("contact.validate", err, MsgRequiredFields)
	}
	if err := validate.Var(s.Email, "email"); err != nil {
		return validationError("contact.validate", MsgInvalidEmail, "email")
	}
	return nil
}

// ValidateWaitingListEntry checks a normalized waiting list entry.
func ValidateWaitingListEntry(e models.WaitingListEntry) error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "required" {
		return validationError("waiting_list.validate", MsgEmailRequired, "email")
	}
	return toValidationError("waiting_list.validate", err, MsgEmailInvalid)
}

// InvalidBody is returned by the HTTP layer when a body cannot be decoded.
func InvalidBody(op string, cause error) error {
	e := validationError(op, MsgInvalidBody)
	e.Err = cause
	return e
}

func toValidationError(op string, err error, msg string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return validationError(op, msg, fields...)
}
