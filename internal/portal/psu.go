// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package portal

import (
	"net/http"
	"slices"
	"strings"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/platform/apperr"
	"github.com/psu-triup/portal/internal/platform/constants"
	requestutil "github.com/psu-triup/portal/internal/platform/request"
	"github.com/psu-triup/portal/internal/platform/respond"
	"github.com/psu-triup/portal/internal/platform/validate"
	"github.com/psu-triup/portal/pkg/pagination"
	"github.com/psu-triup/portal/pkg/slice"
	"github.com/psu-triup/portal/pkg/textmatch"
)

const findingsPageSize = 15

// FindingTabs are the detail tabs in display order.
var FindingTabs = []string{"owner", "plan", "utilization", "extend"}

// Status tones drive the badge colour of a finding.
const (
	ToneConfirmed = "confirmed"
	TonePending   = "pending"
	ToneNeutral   = "neutral"
)

// # Page Models

// FindingRow is one finding in the list.
type FindingRow struct {
	FormNewID  string `json:"form_new_id"`
	ReportCode string `json:"report_code"`
	TitleTH    string `json:"report_title_th"`
	TitleEN    string `json:"report_title_en"`
	Status     string `json:"status"`
	Tone       string `json:"tone"`
}

// FindingsPage is the searchable findings list.
type FindingsPage struct {
	Viewer   Viewer          `json:"viewer"`
	Query    string          `json:"q"`
	Status   string          `json:"status"`
	Statuses []string        `json:"statuses"`
	Findings []FindingRow    `json:"findings"`
	Meta     pagination.Meta `json:"meta"`
	Pages    []int           `json:"pages"`
}

// FindingTabPage is one tab of a finding.
type FindingTabPage struct {
	Viewer    Viewer          `json:"viewer"`
	FormNewID string          `json:"form_new_id"`
	Tab       string          `json:"tab"`
	Tabs      []string        `json:"tabs"`
	Records   backend.Section `json:"records"`
}

// ProfilePage shows the directory profile of the signed-in user.
type ProfilePage struct {
	Viewer  Viewer         `json:"viewer"`
	Profile access.Profile `json:"profile"`
}

// statusTone classifies a backend status text.
func statusTone(status string) string {
	switch {
	case strings.Contains(status, "ยืนยัน"):
		return ToneConfirmed
	case strings.Contains(status, "รอตรวจ"):
		return TonePending
	default:
		return ToneNeutral
	}
}

func newFindingRow(finding backend.Finding) FindingRow {
	return FindingRow{
		FormNewID:  string(finding.FormNewID),
		ReportCode: finding.ReportCode,
		TitleTH:    finding.TitleTH,
		TitleEN:    finding.TitleEN,
		Status:     finding.Status,
		Tone:       statusTone(finding.Status),
	}
}

// # Findings

// filterFindings applies the keyword and status filters of the list page.
func filterFindings(findings []backend.Finding, keyword, status string) []backend.Finding {
	return slice.Filter(findings, func(finding backend.Finding) bool {
		if status != filterAll && finding.Status != status {
			return false
		}
		return textmatch.Contains(keyword, finding.SearchText()...)
	})
}

/*
findings serves the findings list.

Description: The keyword is folded for case and width and matched over
report code, Thai title, English title and status. The status selector
lists every distinct status in first-seen order, before any filter.
*/
func (handler *Handler) findings(writer http.ResponseWriter, request *http.Request) {
	result := handler.psu.Guard(writer, request)
	if !result.OK {
		return
	}

	keyword, status := findingFilters(request)
	if err := (&validate.Validator{}).MaxLen("q", keyword, maxKeyword).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	findings, err := handler.backend.ListFindings(request.Context())
	if err != nil {
		respond.Error(writer, request, upstream(err, "Findings are unavailable"))
		return
	}

	matched := filterFindings(findings, keyword, status)
	pageRows, meta := pagination.Window(matched, pagination.FromRequest(request, findingsPageSize))

	respond.OK(writer, FindingsPage{
		Viewer:   NewViewer(result.Identity, request.URL.Path),
		Query:    keyword,
		Status:   status,
		Statuses: slice.Distinct(findings, func(finding backend.Finding) string { return finding.Status }),
		Findings: slice.Map(pageRows, newFindingRow),
		Meta:     meta,
		Pages:    pagination.Links(meta),
	})
}

func findingFilters(request *http.Request) (keyword, status string) {
	keyword = requestutil.Query(request, "q")
	status = requestutil.Query(request, "status")
	if status == "" {
		status = filterAll
	}
	return keyword, status
}

// findingDetail serves one tab of a finding; without a tab it opens the first.
func (handler *Handler) findingDetail(writer http.ResponseWriter, request *http.Request) {
	result := handler.psu.Guard(writer, request)
	if !result.OK {
		return
	}

	formNewID := requestutil.Param(request, "formNewID")
	tab := requestutil.Param(request, "tab")
	if tab == "" {
		http.Redirect(writer, request, request.URL.Path+"/"+FindingTabs[0], http.StatusFound)
		return
	}
	if !slices.Contains(FindingTabs, tab) {
		respond.Error(writer, request, apperr.NotFound("Tab"))
		return
	}

	detail, err := handler.backend.GetFinding(request.Context(), formNewID)
	if err != nil {
		respond.Error(writer, request, upstream(err, "Finding is unavailable"))
		return
	}
	records, _ := detail.Tab(tab)

	respond.OK(writer, FindingTabPage{
		Viewer:    NewViewer(result.Identity, constants.PSUHomePath),
		FormNewID: formNewID,
		Tab:       tab,
		Tabs:      FindingTabs,
		Records:   records,
	})
}

// # Profile

func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	result := handler.psu.Guard(writer, request)
	if !result.OK {
		return
	}

	profile := result.Identity.Profile
	if profile.Username == "" {
		profile.Username = result.Identity.Username()
	}

	respond.OK(writer, ProfilePage{
		Viewer:  NewViewer(result.Identity, request.URL.Path),
		Profile: profile,
	})
}
