package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const (
	MsgName   = "Name must be at least 2 characters."
	MsgEmail  = "Please enter a valid email address."
	MsgPhone  = "Please enter a valid phone number."
	MsgSlotID = "Please select a valid time slot."
)

// Errors maps form field names to a human readable message.
type Errors struct {
	Fields map[string]string
}

func (e *Errors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsErrors unwraps err into *Errors.
func AsErrors(err error) (*Errors, bool) {
	var verr *Errors
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

type contactForm struct {
	Name  string `json:"name" validate:"min=2"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"min=10"`
	Notes string `json:"notes"`
}

type bookingForm struct {
	SlotID string `json:"slot_id" validate:"required,slotid"`
	Name   string `json:"name" validate:"min=2"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"min=10"`
	Notes  string `json:"notes"`
}

var fieldMessages = map[string]string{
	"name":    MsgName,
	"email":   MsgEmail,
	"phone":   MsgPhone,
	"slot_id": MsgSlotID,
}

var validate = newValidator()

// rules are the custom tags used by the form structs.
var rules = map[string]validator.Func{
	"slotid": func(fl validator.FieldLevel) bool {
		_, err := availability.ParseSlotID(fl.Field().String(), nil)
		return err == nil
	},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validation: register %q rule: %v", tag, err))
		}
	}
	return v
}

// ValidateContact checks the customer fields. It returns nil when they are valid.
func ValidateContact(c model.Contact) *Errors {
	return check(contactForm{Name: c.Name, Email: c.Email, Phone: c.Phone, Notes: c.Notes})
}

// ValidateBooking checks the contact fields and the chosen slot identifier.
func ValidateBooking(slotID string, c model.Contact) *Errors {
	return check(bookingForm{SlotID: slotID, Name: c.Name, Email: c.Email, Phone: c.Phone, Notes: c.Notes})
}

func check(form any) *Errors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Errors{Fields: map[string]string{"form": err.Error()}}
	}
	out := &Errors{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		msg, ok := fieldMessages[field]
		if !ok {
			msg = field + " is invalid (" + fe.Tag() + ")"
		}
		out.Fields[field] = msg
	}
	return out
}
