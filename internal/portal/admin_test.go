// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package portal_test

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/audit"
	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/importer"
	"github.com/psu-triup/portal/internal/platform/constants"
	"github.com/psu-triup/portal/internal/portal"
)

// seedUsers loads one CEO, one admin and eleven research staff.
func seedUsers(f *fixture) {
	f.backend.users = []backend.User{
		{UUID: userUUID(1), Username: "ceo.psu", RolesID: access.RoleCEO, Profile: access.Profile{FullName: "ผู้บริหาร สูงสุด"}},
		{UUID: userUUID(2), Username: "admin.triup", RolesID: access.RoleAdmin},
	}
	for i := 1; i <= 11; i++ {
		f.backend.users = append(f.backend.users, backend.User{
			UUID:     userUUID(10 + i),
			Username: fmt.Sprintf("staff.%02d", i),
			RolesID:  access.RoleResearchStaff,
			Profile:  access.Profile{FullName: fmt.Sprintf("นักวิจัย %d", i)},
		})
	}
}

// # Gate Behaviour

/*
TestAdminPages_Gated verifies every admin page turns away anonymous and under-privileged visitors.
*/
func TestAdminPages_Gated(t *testing.T) {
	paths := []string{
		constants.AdminHomePath,
		"/admin/users-data",
		"/admin/users-data/" + userUUID(1),
		"/admin/system",
		"/admin/access-audit",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			f := newFixture(t)

			anonymous := f.do(http.MethodGet, path, "")
			assert.Equal(t, http.StatusFound, anonymous.Code)
			assert.Equal(t, constants.AdminLoginPath, anonymous.Header().Get("Location"))

			viewer := f.do(http.MethodGet, path, "", adminCookie(viewerToken))
			assert.Equal(t, http.StatusFound, viewer.Code)
			assert.Equal(t, constants.ForbiddenPath, viewer.Header().Get("Location"))
		})
	}
}

// # Dashboard

/*
TestDashboard verifies statistics, export links and the viewer block.
*/
func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.backend.stats = &backend.Statistics{
		Users:    backend.UserStats{TotalUsers: 42},
		Findings: backend.FindingStats{TotalFindings: 7},
	}

	recorder := f.do(http.MethodGet, constants.AdminHomePath, "", adminCookie(adminToken))

	require.Equal(t, http.StatusOK, recorder.Code)
	page := decodeData[portal.DashboardPage](t, recorder)
	assert.Equal(t, 42, page.Statistics.Users.TotalUsers)
	assert.Equal(t, "https://api.triup.test/api/statistics/export/pdf", page.Exports["pdf"])
	assert.Len(t, page.Exports, 2)
	assert.Equal(t, "ผู้ดูแล ระบบ", page.Viewer.DisplayName)
	assert.Equal(t, access.RoleAdmin, page.Viewer.RoleID)
	require.Len(t, page.Viewer.Menu, 4)
	assert.True(t, page.Viewer.Menu[1].Active)
}

/*
TestDashboard_BackendFailure verifies a failed series surfaces as a gateway error.
*/
func TestDashboard_BackendFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.statsErr = &backend.Error{Status: http.StatusInternalServerError, Message: "stats offline"}

	recorder := f.do(http.MethodGet, constants.AdminHomePath, "", adminCookie(ceoToken))

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Equal(t, "stats offline", decodeError(t, recorder).Error)
}

// # Users

/*
TestListUsers verifies search, role filter, role counts and paging.
*/
func TestListUsers(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantRows  int
		wantFirst string
	}{
		{"all", "", 13, 10, "ceo.psu"},
		{"second_page", "?page=2", 13, 3, "staff.09"},
		{"by_username", "?q=ADMIN.TRIUP", 1, 1, "admin.triup"},
		{"by_role_label", "?q=" + url.QueryEscape("ผู้ดูแลระบบ"), 1, 1, "admin.triup"},
		{"by_full_name", "?q=" + url.QueryEscape("นักวิจัย 1"), 3, 3, "staff.01"},
		{"by_role", "?role=2000&page=2", 11, 1, "staff.11"},
		{"role_all", "?role=all&q=ceo", 1, 1, "ceo.psu"},
		{"no_match", "?q=nobody", 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedUsers(f)

			recorder := f.do(http.MethodGet, "/admin/users-data"+tt.query, "", adminCookie(adminToken))

			require.Equal(t, http.StatusOK, recorder.Code)
			page := decodeData[portal.UsersPage](t, recorder)
			assert.Equal(t, tt.wantTotal, page.Meta.Total)
			require.Len(t, page.Users, tt.wantRows)
			if tt.wantRows > 0 {
				assert.Equal(t, tt.wantFirst, page.Users[0].Username)
			}

			require.Len(t, page.Roles, len(access.KnownRoles))
			assert.Equal(t, 1, page.Roles[0].Count)
			assert.Equal(t, 11, page.Roles[2].Count)
			assert.Zero(t, page.Roles[6].Count)
		})
	}
}

/*
TestListUsers_InvalidFilters verifies unknown roles and oversized keywords are rejected.
*/
func TestListUsers_InvalidFilters(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantField string
	}{
		{"non_numeric_role", "?role=admins", "role"},
		{"unknown_role", "?role=7000", "role"},
		{"long_keyword", "?q=" + strings.Repeat("a", 101), "q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedUsers(f)

			recorder := f.do(http.MethodGet, "/admin/users-data"+tt.query, "", adminCookie(adminToken))

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, tt.wantField, decodeError(t, recorder).Details[0].Field)
		})
	}
}

/*
TestUserDetail verifies the account, its history and whether it can be edited.
*/
func TestUserDetail(t *testing.T) {
	f := newFixture(t)
	seedUsers(f)
	f.backend.roleLog = []backend.RoleLogEntry{
		{LogID: "9", OldRoleName: "ผู้ชมข้อมูล", NewRoleName: "CEO", ChangedBy: "admin.triup", ChangedAt: "2026-02-01T10:00:00Z"},
	}

	recorder := f.do(http.MethodGet, "/admin/users-data/"+userUUID(1), "", adminCookie(adminToken))

	require.Equal(t, http.StatusOK, recorder.Code)
	page := decodeData[portal.UserDetailPage](t, recorder)
	assert.Equal(t, "ceo.psu", page.User.Username)
	assert.Equal(t, "CEO", page.User.RoleLabel)
	assert.False(t, page.Editable)
	require.Len(t, page.RoleLog, 1)
	assert.Equal(t, "admin.triup", page.RoleLog[0].ChangedBy)
	require.Len(t, page.RoleChoices, 6)
	for _, choice := range page.RoleChoices {
		assert.NotEqual(t, access.RoleCEO, choice.RoleID)
	}

	staff := f.do(http.MethodGet, "/admin/users-data/"+userUUID(11), "", adminCookie(adminToken))
	require.Equal(t, http.StatusOK, staff.Code)
	assert.True(t, decodeData[portal.UserDetailPage](t, staff).Editable)
}

/*
TestUserDetail_Errors verifies malformed and unknown ids.
*/
func TestUserDetail_Errors(t *testing.T) {
	f := newFixture(t)
	seedUsers(f)

	malformed := f.do(http.MethodGet, "/admin/users-data/not-a-uuid", "", adminCookie(adminToken))
	assert.Equal(t, http.StatusBadRequest, malformed.Code)

	unknown := f.do(http.MethodGet, "/admin/users-data/"+userUUID(99), "", adminCookie(adminToken))
	assert.Equal(t, http.StatusNotFound, unknown.Code)
	assert.Equal(t, "User not found", decodeError(t, unknown).Error)
}

/*
TestUpdateRole verifies the role rules and that the change is attributed to the verified admin.
*/
func TestUpdateRole(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
	}{
		{"unknown_role", userUUID(11), `{"roles_id":1234}`, http.StatusBadRequest},
		{"assign_ceo", userUUID(11), `{"roles_id":900}`, http.StatusBadRequest},
		{"non_numeric", userUUID(11), `{"roles_id":"boss"}`, http.StatusBadRequest},
		{"ceo_target", userUUID(1), `{"roles_id":5000}`, http.StatusForbidden},
		{"unknown_user", userUUID(99), `{"roles_id":5000}`, http.StatusNotFound},
		{"malformed_uuid", "abc", `{"roles_id":5000}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seedUsers(f)

			recorder := f.do(http.MethodPut, "/admin/users-data/"+tt.target+"/role", tt.body, adminCookie(adminToken))

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Empty(t, f.backend.updates)
		})
	}

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		seedUsers(f)

		recorder := f.do(http.MethodPut, "/admin/users-data/"+userUUID(11)+"/role",
			`{"roles_id":"5000","changed_by":"mallory"}`, adminCookie(adminToken))

		require.Equal(t, http.StatusOK, recorder.Code)
		change := decodeData[portal.RoleChange](t, recorder)
		assert.Equal(t, access.RoleViewer, change.RoleID)
		assert.Equal(t, "admin.triup", change.ChangedBy)

		require.Len(t, f.backend.updates, 1)
		assert.Equal(t, roleUpdate{UUID: userUUID(11), RolesID: access.RoleViewer, ChangedBy: "admin.triup"}, f.backend.updates[0])
	})
}

// # System

/*
TestSystem verifies the status page and script triggers.
*/
func TestSystem(t *testing.T) {
	f := newFixture(t)

	status := f.do(http.MethodGet, "/admin/system", "", adminCookie(adminToken))
	require.Equal(t, http.StatusOK, status.Code)
	page := decodeData[portal.SystemPage](t, status)
	require.Len(t, page.Scripts, 2)
	assert.True(t, page.Scripts[1].Running)

	run := f.do(http.MethodPost, "/admin/system/scripts/import-server-user", "", adminCookie(adminToken))
	require.Equal(t, http.StatusOK, run.Code)
	result := decodeData[importer.Result](t, run)
	assert.Equal(t, backend.ScriptImportUser, result.Script)
	assert.Equal(t, []string{"admin.triup"}, f.imports.runBy)

	all := f.do(http.MethodPost, "/admin/system/scripts/import-all", "", adminCookie(ceoToken))
	require.Equal(t, http.StatusOK, all.Code)
	results := decodeData[[]importer.Result](t, all)
	require.Len(t, results, 3)
	assert.Equal(t, "ceo.psu", results[0].TriggeredBy)

	unknown := f.do(http.MethodPost, "/admin/system/scripts/drop-tables", "", adminCookie(adminToken))
	assert.Equal(t, http.StatusNotFound, unknown.Code)

	f.imports.conflict = true
	busy := f.do(http.MethodPost, "/admin/system/scripts/fetch-all", "", adminCookie(adminToken))
	assert.Equal(t, http.StatusConflict, busy.Code)
}

// # Access Audit

/*
TestAccessAudit verifies paging over the audit log.
*/
func TestAccessAudit(t *testing.T) {
	f := newFixture(t)
	f.audit.entries = []audit.Entry{{
		ID:        "0190a5d2-0000-7000-8000-000000000001",
		Area:      "admin",
		Path:      "/admin/system",
		Outcome:   "redirected-forbidden",
		Username:  "viewer.v",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}}

	recorder := f.do(http.MethodGet, "/admin/access-audit?page=3", "", adminCookie(adminToken))

	require.Equal(t, http.StatusOK, recorder.Code)
	page := decodeData[portal.AuditPage](t, recorder)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "viewer.v", page.Entries[0].Username)
	assert.Equal(t, 45, page.Meta.Total)
	assert.Equal(t, 3, page.Meta.TotalPages)
	assert.Equal(t, []int{1, 2, 3}, page.Pages)
	assert.Equal(t, 20, f.audit.limit)
	assert.Equal(t, 40, f.audit.offset)
}

/*
TestAccessAudit_Disabled verifies the page reports a missing audit database.
*/
func TestAccessAudit_Disabled(t *testing.T) {
	f := newFixture(t, func(options *portal.Options) {
		options.Audit = nil
	})

	recorder := f.do(http.MethodGet, "/admin/access-audit", "", adminCookie(adminToken))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}
