// Package auth holds the role capability contract, password hashing and
// token issuing. Pipelines receive an explicit Caller instead of reading a
// session.
package auth

import (
	"fmt"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/pkg/models"
)

// Capability is a single permitted action.
type Capability string

const (
	CapImportCandidates   Capability = "import_candidates"
	CapViewCandidates     Capability = "view_candidates"
	CapScheduleInterviews Capability = "schedule_interviews"
	CapDecideInterviews   Capability = "decide_interviews"
	CapExportData         Capability = "export_data"
	CapEditCandidates     Capability = "edit_candidates"
	CapDeleteCandidates   Capability = "delete_candidates"
	CapHireCandidates     Capability = "hire_candidates"
	CapViewOwnStatus      Capability = "view_own_status"
)

var staffCaps = []Capability{
	CapImportCandidates, CapViewCandidates, CapScheduleInterviews,
	CapDecideInterviews, CapExportData,
}

var roleCaps = map[models.Role]map[Capability]bool{
	models.RoleAdmin: set(append(staffCaps,
		CapEditCandidates, CapDeleteCandidates, CapHireCandidates)...),
	models.RoleStaff:     set(staffCaps...),
	models.RoleCandidate: set(CapViewOwnStatus),
}

func set(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Can reports whether role holds capability.
func Can(role models.Role, c Capability) bool {
	return roleCaps[role][c]
}

// Caller identifies who invokes a pipeline operation.
type Caller struct {
	AccountID int64
	Role      models.Role
}

// System is used by operational commands that run outside a request.
var System = Caller{Role: models.RoleAdmin}

// Require returns apperr.ErrForbidden unless the caller holds want.
func (c Caller) Require(want Capability) error {
	if !Can(c.Role, want) {
		return fmt.Errorf("%s lacks %s: %w", c.Role, want, apperr.ErrForbidden)
	}
	return nil
}
