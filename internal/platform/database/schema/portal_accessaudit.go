// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package schema names the tables and columns owned by the portal.
package schema

// PortalAccessAuditTable represents the 'portal.access_audit' table
type PortalAccessAuditTable struct {
	Table     string
	ID        string
	Area      string
	Path      string
	Outcome   string
	Location  string
	Username  string
	RoleID    string
	RequestID string
	IPAddress string
	CreatedAt string
}

var PortalAccessAudit = PortalAccessAuditTable{
	Table:     "portal.access_audit",
	ID:        "id",
	Area:      "area",
	Path:      "path",
	Outcome:   "outcome",
	Location:  "location",
	Username:  "username",
	RoleID:    "roleid",
	RequestID: "requestid",
	IPAddress: "ipaddress",
	CreatedAt: "createdat",
}
