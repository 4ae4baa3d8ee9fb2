// Package account exposes sign-up, sign-in and per-user settings methods.
package account

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/scrollkit/cardfeed/internal/api/rpc"
	"github.com/scrollkit/cardfeed/internal/auth"
)

// AuthAPI provides session methods
type AuthAPI struct {
	auth *auth.Service
}

// NewAuthAPI creates a new auth API
func NewAuthAPI(service *auth.Service) *AuthAPI {
	return &AuthAPI{auth: service}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeCredentials(params json.RawMessage) (*credentials, error) {
	var p credentials
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Email == "" || p.Password == "" {
		return nil, rpc.InvalidParams(fmt.Errorf("missing required parameters: email, password"))
	}
	return &p, nil
}

// SignUp handles auth.sign_up
func (a *AuthAPI) SignUp(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := decodeCredentials(params)
	if err != nil {
		return nil, err
	}
	session, err := a.auth.SignUp(ctx.Request.Context(), p.Email, p.Password)
	if err != nil {
		return nil, clientError(err)
	}
	return session, nil
}

// SignIn handles auth.sign_in
func (a *AuthAPI) SignIn(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := decodeCredentials(params)
	if err != nil {
		return nil, err
	}
	session, err := a.auth.SignIn(ctx.Request.Context(), p.Email, p.Password)
	if err != nil {
		return nil, clientError(err)
	}
	return session, nil
}

// SignOut handles auth.sign_out. Signing out without a token is a no-op.
func (a *AuthAPI) SignOut(ctx *gin.Context, _ json.RawMessage) (interface{}, error) {
	token := rpc.BearerToken(ctx)
	if token != "" {
		if err := a.auth.SignOut(ctx.Request.Context(), token); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{"signed_out": true}, nil
}

// clientError keeps the message of credential failures in the response
func clientError(err error) error {
	for _, known := range []error{auth.ErrInvalidCredentials, auth.ErrEmailTaken} {
		if errors.Is(err, known) {
			return &rpc.Error{Code: rpc.CodeServerError, Message: known.Error(), Err: err}
		}
	}
	return err
}
