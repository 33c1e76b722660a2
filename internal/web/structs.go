package web

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	authservice "github.com/goserg/memberportal/auth/service"
	"github.com/goserg/memberportal/auth/storage"
)

type signupRequest struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

type loginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func parseSignupRequest(c *fiber.Ctx) (signupRequest, error) {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return signupRequest{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return req, nil
}

func parseLoginRequest(c *fiber.Ctx) (loginRequest, error) {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return loginRequest{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return req, nil
}

const (
	msgUsernameTaken      = "Username already exists."
	msgEmailTaken         = "Email already exists."
	msgInvalidCredentials = "Invalid credentials."
	msgNotAdmin           = "You are not an admin."
	msgPasswordTooLong    = "Password must be at most 72 bytes."
)

var requiredMessages = map[string]string{
	authservice.FieldUsername: "Username is required.",
	authservice.FieldEmail:    "Email is required.",
	authservice.FieldPassword: "Password is required.",
}

// formError turns an error a form can show back to the user into a status
// and messages. ok is false for errors that belong to the error handler.
func formError(err error) (status int, messages []string, ok bool) {
	var (
		verr *authservice.ValidationError
		dup  *storage.DuplicateKeyError
	)
	switch {
	case errors.As(err, &verr):
		if verr.Err != nil {
			return http.StatusUnprocessableEntity, []string{msgPasswordTooLong}, true
		}
		for _, field := range verr.Fields {
			messages = append(messages, requiredMessages[field])
		}
		return http.StatusUnprocessableEntity, messages, true
	case errors.As(err, &dup):
		if dup.Field == storage.FieldEmail {
			return http.StatusConflict, []string{msgEmailTaken}, true
		}
		return http.StatusConflict, []string{msgUsernameTaken}, true
	case errors.Is(err, authservice.ErrInvalidCredentials):
		return http.StatusUnauthorized, []string{msgInvalidCredentials}, true
	case errors.Is(err, authservice.ErrNotAdmin):
		return http.StatusForbidden, []string{msgNotAdmin}, true
	}
	return 0, nil, false
}
