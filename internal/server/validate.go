package server

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type registerRequest struct {
	Username string
	Password string
	Email    string
	Profile  map[string]any
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 32)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 0)),
		validation.Field(&r.Email, is.Email),
	)
}

// parseRegister splits a free-form registration body into the validated
// fields and the profile stored alongside them.
func parseRegister(body map[string]any) (registerRequest, error) {
	r := registerRequest{Profile: map[string]any{}}
	fields := map[string]*string{
		"username": &r.Username,
		"password": &r.Password,
		"email":    &r.Email,
	}
	for k, v := range body {
		if dst, ok := fields[k]; ok {
			s, isString := v.(string)
			if !isString && v != nil {
				return r, fmt.Errorf("%s: must be a string", k)
			}
			*dst = s
			continue
		}
		if !reserved[k] {
			r.Profile[k] = v
		}
	}
	if r.Email != "" {
		r.Profile["email"] = r.Email
	}
	return r, r.Validate()
}
