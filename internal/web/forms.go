package web

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"bookworm/internal/format"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		return format.IsValidEmail(fl.Field().String())
	})
	return v
}

// fieldMessages maps "field.tag" to the message shown under the input.
var fieldMessages = map[string]string{
	"name.required":                  "Name is required",
	"email.required":                 "Email is required",
	"email.emailaddr":                "Please enter a valid email address",
	"password.required":              "Password is required",
	"password.min":                   "Password must be at least 6 characters long",
	"password_confirmation.required": "Please confirm your password",
	"password_confirmation.eqfield":  "Passwords do not match",
}

// FormErrors holds one message per field; "general" is the form-wide error.
type FormErrors map[string]string

func (e FormErrors) Any() bool {
	return len(e) > 0
}

// validateForm runs the struct tags of form and returns the first failing
// rule of every field.
func validateForm(form any) FormErrors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FormErrors{"general": "Please check the form and try again."}
	}
	out := FormErrors{}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		if msg, ok := fieldMessages[field+"."+fe.Tag()]; ok {
			out[field] = msg
		} else {
			out[field] = "This field is invalid"
		}
	}
	return out
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,emailaddr"`
	Password string `form:"password" validate:"required"`
}

type RegisterForm struct {
	Name                 string `form:"name" validate:"required"`
	Email                string `form:"email" validate:"required,emailaddr"`
	Password             string `form:"password" validate:"required,min=6"`
	PasswordConfirmation string `form:"password_confirmation" validate:"required,eqfield=Password"`
	Address              string `form:"address"`
}

type ProfileForm struct {
	Name    string `form:"name" validate:"required"`
	Email   string `form:"email" validate:"required,emailaddr"`
	Address string `form:"address"`
}

type NewsletterForm struct {
	Email string `form:"email" validate:"required,emailaddr"`
}

func parseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func parseRegisterForm(r *http.Request) RegisterForm {
	return RegisterForm{
		Name:                 strings.TrimSpace(r.PostFormValue("name")),
		Email:                strings.TrimSpace(r.PostFormValue("email")),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
		Address:              strings.TrimSpace(r.PostFormValue("address")),
	}
}

func parseProfileForm(r *http.Request) ProfileForm {
	return ProfileForm{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Address: strings.TrimSpace(r.PostFormValue("address")),
	}
}
