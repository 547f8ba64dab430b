// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	endpointFindings      = "/api/master/form-new-findings"
	endpointFindingDetail = "/api/master/form-new-findings/{id}"
)

// ID is a backend identifier that may arrive as a JSON number or string.
type ID string

// UnmarshalJSON accepts 42, "42" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(text))
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("backend: invalid id %s", trimmed)
	}
	*id = ID(number.String())
	return nil
}

// Finding is one row of the research findings list.
type Finding struct {
	FormNewID  ID     `json:"form_new_id"`
	ReportCode string `json:"report_code"`
	TitleTH    string `json:"report_title_th"`
	TitleEN    string `json:"report_title_en"`
	Status     string `json:"status"`
}

// SearchText returns the fields a free-text search runs over.
func (finding Finding) SearchText() []string {
	return []string{finding.ReportCode, finding.TitleTH, finding.TitleEN, finding.Status}
}

// ListFindings returns every finding known to the backend.
func (client *Client) ListFindings(ctx context.Context) ([]Finding, error) {
	body, err := client.do(ctx, call{
		method:   http.MethodGet,
		endpoint: endpointFindings,
		segments: []string{endpointFindings},
	})
	if err != nil {
		return nil, err
	}

	findings, err := decodeData[[]Finding](endpointFindings, body)
	if err != nil {
		return nil, err
	}
	if findings == nil {
		findings = []Finding{}
	}

	return findings, nil
}

// # Detail

// Record is one free-form row of a finding section.
type Record map[string]any

// Section is a list of records that tolerates a single object on the wire.
type Section []Record

// UnmarshalJSON accepts an array, a single object or null.
func (section *Section) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*section = Section{}
		return nil
	case trimmed[0] == '{':
		var record Record
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return err
		}
		*section = Section{record.expand()}
		return nil
	}

	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return err
	}
	for i := range records {
		records[i] = records[i].expand()
	}
	*section = records
	return nil
}

// embeddedJSONFields hold JSON documents serialised into strings.
var embeddedJSONFields = []string{"objective", "period"}

// expand decodes embedded JSON fields in place.
//
// A field that cannot be decoded becomes an empty list.
func (record Record) expand() Record {
	if record == nil {
		return Record{}
	}

	for _, field := range embeddedJSONFields {
		raw, ok := record[field].(string)
		if !ok {
			continue
		}

		var decoded any
		if strings.TrimSpace(raw) == "" || json.Unmarshal([]byte(raw), &decoded) != nil || decoded == nil {
			record[field] = []any{}
			continue
		}
		record[field] = decoded
	}

	return record
}

// FindingDetail groups the tabs of a finding.
type FindingDetail struct {
	Owner       Section `json:"owner"`
	Plan        Section `json:"plan"`
	Utilization Section `json:"utilization"`
	Extend      Section `json:"extend"`
}

// Tab returns the section behind a tab name.
func (detail *FindingDetail) Tab(name string) (Section, bool) {
	var section Section
	switch name {
	case "owner":
		section = detail.Owner
	case "plan":
		section = detail.Plan
	case "utilization":
		section = detail.Utilization
	case "extend":
		section = detail.Extend
	default:
		return nil, false
	}

	if section == nil {
		section = Section{}
	}
	return section, true
}

// GetFinding returns the detail of one finding.
func (client *Client) GetFinding(ctx context.Context, id string) (*FindingDetail, error) {
	body, err := client.do(ctx, call{
		method:   http.MethodGet,
		endpoint: endpointFindingDetail,
		segments: []string{endpointFindings, url.PathEscape(id)},
	})
	if err != nil {
		return nil, err
	}

	detail, err := decodeData[*FindingDetail](endpointFindingDetail, body)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		detail = &FindingDetail{}
	}

	return detail, nil
}
