// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package portal

import (
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/audit"
	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/importer"
	"github.com/psu-triup/portal/internal/platform/apperr"
	"github.com/psu-triup/portal/internal/platform/ctxutil"
	requestutil "github.com/psu-triup/portal/internal/platform/request"
	"github.com/psu-triup/portal/internal/platform/respond"
	"github.com/psu-triup/portal/internal/platform/validate"
	"github.com/psu-triup/portal/pkg/pagination"
	"github.com/psu-triup/portal/pkg/slice"
	"github.com/psu-triup/portal/pkg/textmatch"
)

const (
	usersPageSize = 10
	auditPageSize = 20

	// maxKeyword caps the search box of every list page.
	maxKeyword = 100

	// filterAll disables a list filter.
	filterAll = "all"
)

var exportFormats = []string{"excel", "pdf"}

// roleFilters are the accepted values of the users role selector.
var roleFilters = append([]string{filterAll}, slice.Map(access.KnownRoles, func(role access.RoleID) string {
	return strconv.Itoa(int(role))
})...)

// # Page Models

// DashboardPage is the admin landing page.
type DashboardPage struct {
	Viewer     Viewer              `json:"viewer"`
	Statistics *backend.Statistics `json:"statistics"`
	Exports    map[string]string   `json:"exports"`
}

// UserRow is one account in the users table.
type UserRow struct {
	UUID      string        `json:"user_pk_uuid"`
	Username  string        `json:"username"`
	FullName  string        `json:"fullname"`
	Email     string        `json:"email,omitempty"`
	RoleID    access.RoleID `json:"roles_id"`
	RoleLabel string        `json:"role_label"`
}

// RoleOption is one entry of a role selector.
type RoleOption struct {
	RoleID access.RoleID `json:"roles_id"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
}

// UsersPage is the searchable users table.
type UsersPage struct {
	Viewer Viewer          `json:"viewer"`
	Query  string          `json:"q"`
	Role   string          `json:"role"`
	Roles  []RoleOption    `json:"roles"`
	Users  []UserRow       `json:"users"`
	Meta   pagination.Meta `json:"meta"`
	Pages  []int           `json:"pages"`
}

// UserDetailPage shows one account and its role history.
type UserDetailPage struct {
	Viewer      Viewer                 `json:"viewer"`
	User        UserRow                `json:"user"`
	Profile     access.Profile         `json:"profile"`
	RoleLog     []backend.RoleLogEntry `json:"role_log"`
	Editable    bool                   `json:"editable"`
	RoleChoices []RoleOption           `json:"role_choices"`
}

// RoleInput is the role change form.
type RoleInput struct {
	RolesID access.RoleID `json:"roles_id"`
}

// RoleChange confirms an applied role change.
type RoleChange struct {
	UUID      string        `json:"user_pk_uuid"`
	RoleID    access.RoleID `json:"roles_id"`
	RoleLabel string        `json:"role_label"`
	ChangedBy string        `json:"changed_by"`
}

// SystemPage lists the import scripts.
type SystemPage struct {
	Viewer  Viewer            `json:"viewer"`
	Scripts []importer.Status `json:"scripts"`
}

// AuditPage lists recorded gate redirects, newest first.
type AuditPage struct {
	Viewer  Viewer          `json:"viewer"`
	Entries []audit.Entry   `json:"entries"`
	Meta    pagination.Meta `json:"meta"`
	Pages   []int           `json:"pages"`
}

func newUserRow(user backend.User) UserRow {
	return UserRow{
		UUID:      user.UUID,
		Username:  user.Username,
		FullName:  user.FullName(),
		Email:     user.Email,
		RoleID:    user.RolesID,
		RoleLabel: user.RolesID.Label(),
	}
}

// # Dashboard

func (handler *Handler) dashboard(writer http.ResponseWriter, request *http.Request) {
	result := handler.admin.Guard(writer, request)
	if !result.OK {
		return
	}

	stats, err := handler.backend.Statistics(request.Context())
	if err != nil {
		respond.Error(writer, request, upstream(err, "Statistics are unavailable"))
		return
	}

	exports := make(map[string]string, len(exportFormats))
	for _, format := range exportFormats {
		if link, ok := handler.backend.ExportURL(format); ok {
			exports[format] = link
		}
	}

	respond.OK(writer, DashboardPage{
		Viewer:     NewViewer(result.Identity, request.URL.Path),
		Statistics: stats,
		Exports:    exports,
	})
}

// # Users

/*
listUsers serves the users table.

Description: The keyword is matched over username, full name and role
label. Role counts are taken over every account, before any filter, so the
selector always shows the full distribution.
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	result := handler.admin.Guard(writer, request)
	if !result.OK {
		return
	}

	keyword := requestutil.Query(request, "q")
	roleFilter := requestutil.Query(request, "role")
	if roleFilter == "" {
		roleFilter = filterAll
	}

	validator := &validate.Validator{}
	validator.
		MaxLen("q", keyword, maxKeyword).
		OneOf("role", roleFilter, roleFilters...)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	wantRole := access.RoleID(0)
	if roleFilter != filterAll {
		parsed, _ := strconv.Atoi(roleFilter)
		wantRole = access.RoleID(parsed)
	}

	users, err := handler.backend.ListUsers(request.Context())
	if err != nil {
		respond.Error(writer, request, upstream(err, "Users are unavailable"))
		return
	}

	counts := slice.CountBy(users, func(user backend.User) access.RoleID { return user.RolesID })
	roles := slice.Map(access.KnownRoles, func(role access.RoleID) RoleOption {
		return RoleOption{RoleID: role, Label: role.Label(), Count: counts[role]}
	})

	matched := slice.Filter(users, func(user backend.User) bool {
		if roleFilter != filterAll && user.RolesID != wantRole {
			return false
		}
		return textmatch.Contains(keyword, user.Username, user.FullName(), user.RolesID.Label())
	})

	pageRows, meta := pagination.Window(matched, pagination.FromRequest(request, usersPageSize))

	respond.OK(writer, UsersPage{
		Viewer: NewViewer(result.Identity, request.URL.Path),
		Query:  keyword,
		Role:   roleFilter,
		Roles:  roles,
		Users:  slice.Map(pageRows, newUserRow),
		Meta:   meta,
		Pages:  pagination.Links(meta),
	})
}

func (handler *Handler) userDetail(writer http.ResponseWriter, request *http.Request) {
	result := handler.admin.Guard(writer, request)
	if !result.OK {
		return
	}

	uuid := requestutil.Param(request, "uuid")
	if err := (&validate.Validator{}).UUID("uuid", uuid).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// The account and its history are independent reads
	var (
		user    *backend.User
		history []backend.RoleLogEntry
	)
	group, ctx := errgroup.WithContext(request.Context())
	group.Go(func() error {
		var err error
		user, err = handler.backend.GetUser(ctx, uuid)
		return err
	})
	group.Go(func() error {
		var err error
		history, err = handler.backend.RoleLog(ctx, uuid)
		return err
	})
	if err := group.Wait(); err != nil {
		respond.Error(writer, request, upstream(err, "User is unavailable"))
		return
	}
	if history == nil {
		history = []backend.RoleLogEntry{}
	}

	assignable := slice.Filter(access.KnownRoles, func(role access.RoleID) bool { return !role.IsCEO() })
	choices := slice.Map(assignable, func(role access.RoleID) RoleOption {
		return RoleOption{RoleID: role, Label: role.Label()}
	})

	respond.OK(writer, UserDetailPage{
		Viewer:      NewViewer(result.Identity, request.URL.Path),
		User:        newUserRow(*user),
		Profile:     user.Profile,
		RoleLog:     history,
		Editable:    !user.RolesID.IsCEO(),
		RoleChoices: choices,
	})
}

/*
updateRole changes the role of one account.

Description: Only the six non-CEO roles can be assigned, and an account
that holds the CEO role cannot be changed at all. The change is attributed
to the admin the gate just verified; nothing in the request body can name
someone else.
*/
func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	result := handler.admin.Guard(writer, request)
	if !result.OK {
		return
	}
	ctx := request.Context()

	// 1. Validate the form
	uuid := requestutil.Param(request, "uuid")
	var input RoleInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		UUID("uuid", uuid).
		Custom("roles_id", !input.RolesID.Known(), "Unknown role").
		Custom("roles_id", input.RolesID.IsCEO(), "The CEO role cannot be assigned")
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// 2. The CEO account is immutable
	target, err := handler.backend.GetUser(ctx, uuid)
	if err != nil {
		respond.Error(writer, request, upstream(err, "User is unavailable"))
		return
	}
	if target.RolesID.IsCEO() {
		respond.Error(writer, request, apperr.Forbidden("The CEO role cannot be changed"))
		return
	}

	// 3. Apply
	changedBy := result.Identity.Username()
	if err := handler.backend.UpdateRole(ctx, uuid, input.RolesID, changedBy); err != nil {
		respond.Error(writer, request, upstream(err, "Role update failed"))
		return
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_role_changed",
		slog.String("user", uuid),
		slog.Int("old_role", int(target.RolesID)),
		slog.Int("new_role", int(input.RolesID)),
	)

	respond.OK(writer, RoleChange{
		UUID:      uuid,
		RoleID:    input.RolesID,
		RoleLabel: input.RolesID.Label(),
		ChangedBy: changedBy,
	})
}

// # System

func (handler *Handler) system(writer http.ResponseWriter, request *http.Request) {
	result := handler.admin.Guard(writer, request)
	if !result.OK {
		return
	}

	statuses, err := handler.imports.Status(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, SystemPage{
		Viewer:  NewViewer(result.Identity, request.URL.Path),
		Scripts: statuses,
	})
}

func (handler *Handler) runScript(writer http.ResponseWriter, request *http.Request) {
	result := handler.admin.Guard(writer, request)
	if !result.OK {
		return
	}

	script, ok := backend.ParseScript(requestutil.Param(request, "script"))
	if !ok {
		respond.Error(writer, request, apperr.NotFound("Script"))
		return
	}

	run, err := handler.imports.Run(request.Context(), script, result.Identity.Username())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, run)
}

func (handler *Handler) runAllImports(writer http.ResponseWriter, request *http.Request) {
	result := handler.admin.Guard(writer, request)
	if !result.OK {
		return
	}

	respond.OK(writer, handler.imports.RunAll(request.Context(), result.Identity.Username()))
}

// # Access Audit

func (handler *Handler) accessAudit(writer http.ResponseWriter, request *http.Request) {
	result := handler.admin.Guard(writer, request)
	if !result.OK {
		return
	}

	if handler.audit == nil {
		respond.Error(writer, request, apperr.ServiceUnavailable("Access audit is disabled"))
		return
	}

	params := pagination.FromRequest(request, auditPageSize)
	entries, total, err := handler.audit.List(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if entries == nil {
		entries = []audit.Entry{}
	}

	meta := pagination.NewMeta(params.Page, params.Limit, total)
	respond.OK(writer, AuditPage{
		Viewer:  NewViewer(result.Identity, request.URL.Path),
		Entries: entries,
		Meta:    meta,
		Pages:   pagination.Links(meta),
	})
}
