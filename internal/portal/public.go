// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package portal

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/psu-triup/portal/internal/platform/constants"
	"github.com/psu-triup/portal/internal/platform/ctxutil"
	"github.com/psu-triup/portal/internal/platform/respond"
)

// LandingPage offers PSU Passport sign-in.
type LandingPage struct {
	LoginURL string `json:"login_url"`
}

// ForbiddenPage is shown when a verified role may not enter an area.
type ForbiddenPage struct {
	Status   int    `json:"status"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	HomePath string `json:"home_path"`
}

// # Landing

// landing sends a visitor with a live PSU session straight to the findings.
func (handler *Handler) landing(writer http.ResponseWriter, request *http.Request) {
	if handler.psuSignedIn(request) {
		http.Redirect(writer, request, constants.PSUHomePath, http.StatusFound)
		return
	}

	respond.OK(writer, LandingPage{LoginURL: handler.backend.PSULoginURL()})
}

// psuSignedIn asks the backend whether the PSU cookie is still good.
//
// This is a convenience shortcut, not a gate decision, so it is neither
// observed nor audited.
func (handler *Handler) psuSignedIn(request *http.Request) bool {
	cookie, err := request.Cookie(handler.psuArea.CookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return false
	}

	ctx := request.Context()
	if handler.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, handler.timeout)
		defer cancel()
	}

	identity, err := handler.backend.WhoAmI(ctx, handler.psuArea.Credential(cookie.Value))
	return err == nil && identity != nil
}

// forbidden renders the fixed forbidden page.
func (handler *Handler) forbidden(writer http.ResponseWriter, request *http.Request) {
	respond.JSON(writer, http.StatusForbidden, respond.SuccessEnvelope{Data: ForbiddenPage{
		Status:   http.StatusForbidden,
		Title:    "Access Forbidden",
		Message:  "คุณไม่มีสิทธิ์เข้าถึงหน้านี้ กรุณาติดต่อผู้ดูแลระบบ หากคุณคิดว่านี่คือความผิดพลาด",
		HomePath: constants.PSULoginPath,
	}})
}

// # PSU Logout

/*
logoutPSU ends the PSU Passport session.

Description: The backend may answer with a single sign-out URL. The browser
is only sent there when its host is allow-listed; every other answer,
including a failed call, lands on the landing page.
*/
func (handler *Handler) logoutPSU(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	target := constants.PSULoginPath

	if cookie, err := request.Cookie(handler.psuArea.CookieName); err == nil && cookie.Value != "" {
		logoutURL, err := handler.backend.LogoutPSU(ctx, handler.psuArea.Credential(cookie.Value))
		switch {
		case err != nil:
			ctxutil.GetLogger(ctx).WarnContext(ctx, "psu_logout_failed", slog.Any("error", err))
		case logoutURL == "":
		case handler.allowedLogout(logoutURL):
			target = logoutURL
		default:
			ctxutil.GetLogger(ctx).WarnContext(ctx, "psu_logout_url_rejected", slog.String("url", logoutURL))
		}
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     handler.psuArea.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.secure,
		SameSite: http.SameSiteLaxMode,
	})

	respond.Redirect(writer, target)
}

// allowedLogout reports whether raw is an absolute http(s) URL on an allowed host.
func (handler *Handler) allowedLogout(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return false
	}
	return slices.ContainsFunc(handler.logout, func(host string) bool {
		return strings.EqualFold(host, parsed.Hostname())
	})
}
