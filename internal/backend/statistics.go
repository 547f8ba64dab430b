// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

const (
	endpointStatsUsers      = "/api/statistics/users"
	endpointStatsFindings   = "/api/statistics/findings"
	endpointStatsMonthly    = "/api/statistics/findings/monthly"
	endpointStatsYearly     = "/api/statistics/findings/yearly"
	endpointStatsBudget     = "/api/statistics/budget/year"
	endpointStatsDepartment = "/api/statistics/department"
	endpointStatsExport     = "/api/statistics/export"
)

// UserStats is the user summary card.
type UserStats struct {
	TotalUsers int `json:"total_users"`
}

// StatusCount is the number of findings in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  struct {
		Status int `json:"status"`
	} `json:"_count"`
}

// FindingStats is the findings summary card.
type FindingStats struct {
	TotalFindings    int           `json:"total_findings"`
	FindingsByStatus []StatusCount `json:"findings_by_status"`
}

// Statistics is everything the dashboard shows.
//
// Chart series are passed through untouched; their rendering is not ours.
type Statistics struct {
	Users      UserStats       `json:"users"`
	Findings   FindingStats    `json:"findings"`
	Monthly    json.RawMessage `json:"monthly"`
	Yearly     json.RawMessage `json:"yearly"`
	Budget     json.RawMessage `json:"budget"`
	Department json.RawMessage `json:"department"`
}

/*
Statistics loads every dashboard series concurrently.

Description: The six endpoints are independent, so they are fetched in
parallel. The first failure cancels the rest and is returned.

Parameters:
  - ctx: context.Context

Returns:
  - *Statistics
  - error
*/
func (client *Client) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	group, groupCtx := errgroup.WithContext(ctx)

	fetch := func(endpoint string, target any) {
		group.Go(func() error {
			body, err := client.do(groupCtx, call{
				method:   http.MethodGet,
				endpoint: endpoint,
				segments: []string{endpoint},
			})
			if err != nil {
				return err
			}

			var decoded struct {
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(body, &decoded); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrMalformed, endpoint, err)
			}
			if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
				return nil
			}

			if raw, ok := target.(*json.RawMessage); ok {
				*raw = decoded.Data
				return nil
			}
			if err := json.Unmarshal(decoded.Data, target); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrMalformed, endpoint, err)
			}
			return nil
		})
	}

	fetch(endpointStatsUsers, &stats.Users)
	fetch(endpointStatsFindings, &stats.Findings)
	fetch(endpointStatsMonthly, &stats.Monthly)
	fetch(endpointStatsYearly, &stats.Yearly)
	fetch(endpointStatsBudget, &stats.Budget)
	fetch(endpointStatsDepartment, &stats.Department)

	if err := group.Wait(); err != nil {
		return nil, err
	}

	for _, series := range []*json.RawMessage{&stats.Monthly, &stats.Yearly, &stats.Budget, &stats.Department} {
		if len(*series) == 0 {
			*series = json.RawMessage("[]")
		}
	}

	return &stats, nil
}

// ExportURL returns the backend download link for "excel" or "pdf".
func (client *Client) ExportURL(format string) (string, bool) {
	switch format {
	case "excel", "pdf":
		return client.URL(endpointStatsExport, format), true
	default:
		return "", false
	}
}
