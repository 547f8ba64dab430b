// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package access

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// # Role Codes

// RoleID is the numeric privilege tier assigned by the backend.
//
// The portal never changes a role on its own; it only reads the id to decide
// where a visitor may go and which menu entries to show.
type RoleID int

const (
	RoleCEO                RoleID = 900
	RoleAdmin              RoleID = 1000
	RoleResearchStaff      RoleID = 2000
	RoleGeneralUser        RoleID = 3000
	RoleExternalResearcher RoleID = 4000
	RoleViewer             RoleID = 5000
	RoleOther              RoleID = 6000

	roleNone RoleID = 0
)

const (
	unknownRoleLabel = "ไม่พบสิทธิ์"
	unknownRoleName  = "Unknown"
)

var roleNames = map[RoleID]string{
	RoleCEO:                "CEO",
	RoleAdmin:              "Administrator",
	RoleResearchStaff:      "Research Staff",
	RoleGeneralUser:        "General User",
	RoleExternalResearcher: "External Co-researcher",
	RoleViewer:             "Viewer",
	RoleOther:              "Other",
}

var roleLabels = map[RoleID]string{
	RoleCEO:                "CEO",
	RoleAdmin:              "ผู้ดูแลระบบ",
	RoleResearchStaff:      "เจ้าหน้าที่วิจัย",
	RoleGeneralUser:        "ผู้ใช้งานทั่วไป",
	RoleExternalResearcher: "ผู้ร่วมวิจัยภายนอก",
	RoleViewer:             "ผู้ชมข้อมูล",
	RoleOther:              "อื่นๆ",
}

// KnownRoles lists every role in ascending code order.
var KnownRoles = []RoleID{
	RoleCEO, RoleAdmin, RoleResearchStaff, RoleGeneralUser,
	RoleExternalResearcher, RoleViewer, RoleOther,
}

// Known reports whether the id is one of the seven defined tiers.
func (r RoleID) Known() bool {
	_, ok := roleNames[r]
	return ok
}

// Name returns the English role name.
func (r RoleID) Name() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return unknownRoleName
}

// Label returns the Thai display label shown in the portal.
func (r RoleID) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return unknownRoleLabel
}

func (r RoleID) String() string {
	return fmt.Sprintf("%d (%s)", int(r), r.Name())
}

// UnmarshalJSON accepts both 1000 and "1000"; the backend is not consistent.
func (r *RoleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = roleNone
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var quoted string
		if err := json.Unmarshal(data, &quoted); err != nil {
			return fmt.Errorf("access: invalid role id %s: %w", raw, err)
		}
		raw = strings.TrimSpace(quoted)
		if raw == "" {
			*r = roleNone
			return nil
		}
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("access: invalid role id %s: %w", raw, err)
	}
	*r = RoleID(value)
	return nil
}

// # Role Predicates

func (r RoleID) IsCEO() bool                { return r == RoleCEO }
func (r RoleID) IsAdmin() bool              { return r == RoleAdmin }
func (r RoleID) IsAdminOrCEO() bool         { return r == RoleAdmin || r == RoleCEO }
func (r RoleID) IsResearchStaff() bool      { return r == RoleResearchStaff }
func (r RoleID) IsGeneralUser() bool        { return r == RoleGeneralUser }
func (r RoleID) IsExternalResearcher() bool { return r == RoleExternalResearcher }
func (r RoleID) IsViewer() bool             { return r == RoleViewer }

// IsNormalUser reports a present role that is neither admin nor CEO.
func (r RoleID) IsNormalUser() bool {
	return r != roleNone && !r.IsAdminOrCEO()
}

// # Allow-sets

// RoleSet is the allow-set of a protected area.
//
// The empty set admits any authenticated identity.
type RoleSet []RoleID

// AdminRoles is the allow-set of the administrative area.
var AdminRoles = RoleSet{RoleAdmin, RoleCEO}

// AnyRole admits every authenticated identity.
var AnyRole = RoleSet{}

// Allows reports whether the role passes this allow-set.
func (s RoleSet) Allows(role RoleID) bool {
	if len(s) == 0 {
		return true
	}
	for _, allowed := range s {
		if allowed == role {
			return true
		}
	}
	return false
}
