package form

import (
	"context"
	"strings"

	"github.com/Astemirdum/bookstore-client/pkg/validate"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

var authMessages = validate.Messages{
	"email.required":                 "Email is required",
	"email.email":                    "Email is invalid",
	"password.required":              "Password is required",
	"password.min":                   "Password must be at least 8 characters",
	"name":                           "Name is required",
	"password_confirmation.required": "Please confirm your password",
	"password_confirmation.eqfield":  "Passwords do not match",
}

type Authenticator interface {
	Login(ctx context.Context, creds model.LoginCredentials) (model.AuthResponse, error)
	Register(ctx context.Context, data model.RegisterData) (model.AuthResponse, error)
}

type LoginForm struct {
	Email    string
	Password string
}

func (f *LoginForm) credentials() model.LoginCredentials {
	return model.LoginCredentials{Email: strings.TrimSpace(f.Email), Password: f.Password}
}

func (f *LoginForm) Validate() errs.ValidationErrors {
	return check(f.credentials())
}

func (f *LoginForm) Submit(ctx context.Context, svc Authenticator) (model.AuthResponse, error) {
	if verrs := f.Validate(); verrs != nil {
		return model.AuthResponse{}, verrs
	}
	return svc.Login(ctx, f.credentials())
}

type RegisterForm struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

func (f *RegisterForm) data() model.RegisterData {
	return model.RegisterData{
		Name:                 strings.TrimSpace(f.Name),
		Email:                strings.TrimSpace(f.Email),
		Password:             f.Password,
		PasswordConfirmation: f.PasswordConfirmation,
	}
}

func (f *RegisterForm) Validate() errs.ValidationErrors {
	return check(f.data())
}

func (f *RegisterForm) Submit(ctx context.Context, svc Authenticator) (model.AuthResponse, error) {
	if verrs := f.Validate(); verrs != nil {
		return model.AuthResponse{}, verrs
	}
	return svc.Register(ctx, f.data())
}

func check(v any) errs.ValidationErrors {
	fields, err := validator.Fields(v, authMessages)
	if err != nil {
		return errs.ValidationErrors{"form": err.Error()}
	}
	if len(fields) == 0 {
		return nil
	}
	return errs.ValidationErrors(fields)
}
