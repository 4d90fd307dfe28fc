package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a role string from the registration
// database does not map to any Role.
var ErrUnknownRole = errors.New("unknown role")

// Role is the category of event participation. It selects the row of the
// tariff table a participant pays by.
type Role int

const (
	RoleUnknown Role = iota
	RoleParticipant
	RoleUnitLead
	RoleStaff
	RoleContingentTeam
)

type roleInfo struct {
	// DBName is the value stored in people.role_wish.
	DBName string
	// Code is the short name used in configuration and reports.
	Code string
	// Letter identifies the role in remittance text.
	Letter string
}

var roles = map[Role]roleInfo{
	RoleParticipant:    {DBName: "Teilnehmende*r", Code: "Participant", Letter: "T"},
	RoleUnitLead:       {DBName: "Unit Leitung", Code: "UnitLead", Letter: "U"},
	RoleStaff:          {DBName: "IST", Code: "Staff", Letter: "I"},
	RoleContingentTeam: {DBName: "Kontingentsteam", Code: "ContingentTeam", Letter: "K"},
}

// AllRoles lists every known role in tariff order.
func AllRoles() []Role {
	return []Role{RoleParticipant, RoleUnitLead, RoleStaff, RoleContingentTeam}
}

// ParseRole resolves either the database name or the short code of a role.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for r, info := range roles {
		if s == info.DBName || strings.EqualFold(s, info.Code) {
			return r, nil
		}
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// String returns the short code, e.g. "UnitLead".
func (r Role) String() string {
	if info, ok := roles[r]; ok {
		return info.Code
	}
	return "Unknown"
}

// DBName returns the value stored in the registration database.
func (r Role) DBName() string {
	return roles[r].DBName
}

// Letter returns the single-letter code used in remittance text.
func (r Role) Letter() string {
	return roles[r].Letter
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roles[r]
	return ok
}
