package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits       = "0123456789"

	// bcrypt rejects longer inputs
	maxPasswordBytes = 72
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=50"`
	Surname  string `json:"surname" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	// checked rule by rule in Register so every failing rule is reported
	Password string `json:"password" validate:"-"`
}

// Errors maps a JSON field name to the messages describing what is wrong with it.
type Errors map[string][]string

func (e Errors) Error() string {
	return "validation failed"
}

var loginMessages = map[string]string{
	"email.required":    "Invalid email address",
	"email.email":       "Invalid email address",
	"password.required": "Password is required",
}

var registerMessages = map[string]string{
	"name.required":      "Name is required",
	"name.max":           "Name is too long",
	"surname.required":   "Surname is required",
	"surname.max":        "Surname is too long",
	"email.required":     "Invalid email address",
	"email.email":        "Invalid email address",
}

type rule struct {
	tag     string
	message string
}

var passwordRules = []rule{
	{tag: "min=8", message: "Password must be at least 8 characters long"},
	{tag: "max=32", message: "Password must be less than 32 characters long"},
	{tag: "max_bytes=" + strconv.Itoa(maxPasswordBytes), message: "Password must be at most 72 bytes long"},
	{tag: "has_upper", message: "Password must contain at least one uppercase letter"},
	{tag: "has_digit", message: "Password must contain at least one number"},
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "has_upper", containsAny(upperLetters))
	mustRegister(v, "has_digit", containsAny(digits))
	mustRegister(v, "max_bytes", maxBytes)

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("validation: register " + tag + ": " + err.Error())
	}
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		panic("validation: max_bytes needs an integer parameter, got " + strconv.Quote(fl.Param()))
	}
	return len(fl.Field().String()) <= limit
}

func containsAny(chars string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.ContainsAny(fl.Field().String(), chars)
	}
}

// Login checks the login form and returns it with the email lower-cased.
func (v *Validator) Login(in LoginInput) (LoginInput, error) {
	errs, err := v.check(in, loginMessages)
	if err != nil {
		return LoginInput{}, err
	}
	if len(errs) > 0 {
		return LoginInput{}, errs
	}
	in.Email = strings.ToLower(in.Email)
	return in, nil
}

// Register checks the registration form and returns it with the email lower-cased.
func (v *Validator) Register(in RegisterInput) (RegisterInput, error) {
	errs, err := v.check(in, registerMessages)
	if err != nil {
		return RegisterInput{}, err
	}
	for _, r := range passwordRules {
		if v.v.Var(in.Password, r.tag) != nil {
			errs["password"] = append(errs["password"], r.message)
		}
	}
	if len(errs) > 0 {
		return RegisterInput{}, errs
	}
	in.Email = strings.ToLower(in.Email)
	return in, nil
}

func (v *Validator) check(in any, messages map[string]string) (Errors, error) {
	out := make(Errors)

	err := v.v.Struct(in)
	if err == nil {
		return out, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}

	for _, fe := range fieldErrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		out[fe.Field()] = append(out[fe.Field()], msg)
	}
	return out, nil
}
