// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package portal

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/psu-triup/portal/internal/platform/apperr"
	"github.com/psu-triup/portal/internal/platform/constants"
	"github.com/psu-triup/portal/internal/platform/ctxutil"
	requestutil "github.com/psu-triup/portal/internal/platform/request"
	"github.com/psu-triup/portal/internal/platform/respond"
	"github.com/psu-triup/portal/internal/platform/sec"
	"github.com/psu-triup/portal/internal/platform/validate"
	"github.com/psu-triup/portal/internal/session"
)

const (
	msgMissingCredentials = "กรอกอีเมล/รหัสผ่านก่อน"
	msgInvalidCredentials = "username หรือ password ไม่ถูกต้อง"
)

// LoginPage describes the admin sign-in form.
type LoginPage struct {
	Action string `json:"action"`
}

// LoginInput is the admin sign-in form.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// # Admin Login

func (handler *Handler) loginPage(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, LoginPage{Action: constants.AdminLoginPath})
}

/*
login exchanges admin credentials for a backend session.

Description: A login only counts when the backend reports success and
returns both a session token and its expiry. The token is stored in the
admin cookie for the edge gate and in a portal session for the render
adapter. Any other answer keeps the visitor on the form with the backend's
message, or a generic one.
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	// 1. Validate the form
	var input LoginInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	input.Email = strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.
		Required("email", input.Email).
		Required("password", input.Password)
	if err := validator.ErrMessage(msgMissingCredentials); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// 2. Ask the backend
	result, err := handler.backend.Login(ctx, input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, upstream(err, msgInvalidCredentials))
		return
	}

	if !result.Complete() {
		message := result.Error
		if message == "" {
			message = msgInvalidCredentials
		}
		ctxutil.GetLogger(ctx).InfoContext(ctx, "admin_login_rejected", slog.Bool("backend_success", result.Success))
		respond.Error(writer, request, apperr.Unauthorized(message))
		return
	}

	// 3. Open the portal session
	token, expiresAt := result.Token(), result.Session.ExpiresAt
	if _, err := handler.sessions.Start(ctx, writer, token, expiresAt, result.Identity()); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "admin_session_start_failed", slog.Any("error", err))
		respond.Error(writer, request, apperr.Unauthorized(msgInvalidCredentials))
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AdminCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   handler.secure,
		SameSite: http.SameSiteLaxMode,
	})

	ctxutil.SetUsername(ctx, result.Identity().Username())
	ctxutil.GetLogger(ctx).InfoContext(ctx, "admin_login_succeeded",
		slog.String("token", sec.Fingerprint(token)),
		slog.Time("expires_at", expiresAt),
	)

	respond.Redirect(writer, constants.AdminHomePath)
}

// # Admin Logout

/*
logoutAdmin ends the admin session.

Description: The backend is told first, but its answer does not matter:
the admin cookie and the portal session are cleared in every case.
*/
func (handler *Handler) logoutAdmin(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	token := ""
	if current := session.From(ctx); current != nil {
		token = current.Token
	} else if cookie, err := request.Cookie(constants.AdminCookieName); err == nil {
		token = cookie.Value
	}

	if token != "" {
		if err := handler.backend.Logout(ctx, token); err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "admin_logout_failed", slog.Any("error", err))
		}
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.secure,
		SameSite: http.SameSiteLaxMode,
	})

	if err := handler.sessions.End(ctx, writer, session.ReasonLogout); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "admin_session_end_failed", slog.Any("error", err))
	}

	respond.Redirect(writer, constants.PSUHomePath)
}
