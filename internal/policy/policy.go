// Package policy holds the single permission matrix for video resources.
// Every handler asks Evaluate instead of comparing roles itself.
package policy

import "pulsegen/internal/domain"

type Action string

const (
	ActionVideoList    Action = "video:list"
	ActionVideoListAll Action = "video:list_all"
	ActionVideoRead    Action = "video:read"
	ActionVideoStream  Action = "video:stream"
	ActionVideoUpload  Action = "video:upload"
	ActionVideoDelete  Action = "video:delete"
	ActionVideoAnalyze Action = "video:analyze"
)

// roleWeight orders roles by privilege.
var roleWeight = map[domain.UserRole]int{
	domain.RoleViewer: 1,
	domain.RoleEditor: 2,
	domain.RoleAdmin:  3,
}

type rule struct {
	minRole domain.UserRole
	// ownerOnly rules apply to a single resource; only its owner or an
	// admin passes.
	ownerOnly bool
}

var rules = map[Action]rule{
	ActionVideoList:    {minRole: domain.RoleViewer},
	ActionVideoListAll: {minRole: domain.RoleAdmin},
	ActionVideoRead:    {minRole: domain.RoleViewer, ownerOnly: true},
	ActionVideoStream:  {minRole: domain.RoleViewer, ownerOnly: true},
	ActionVideoUpload:  {minRole: domain.RoleEditor},
	ActionVideoDelete:  {minRole: domain.RoleEditor, ownerOnly: true},
	ActionVideoAnalyze: {minRole: domain.RoleEditor, ownerOnly: true},
}

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) Allowed() bool { return d == Allow }

// Evaluate decides whether a caller may perform action. ownerID is the owner
// of the target resource, or 0 for collection-level actions.
func Evaluate(role domain.UserRole, action Action, callerID, ownerID int64) Decision {
	r, ok := rules[action]
	if !ok {
		return Deny
	}
	w, ok := roleWeight[role]
	if !ok || w < roleWeight[r.minRole] {
		return Deny
	}
	if r.ownerOnly && role != domain.RoleAdmin {
		if ownerID == 0 || callerID != ownerID {
			return Deny
		}
	}
	return Allow
}

// CanListAll reports whether the role sees every user's videos.
func CanListAll(role domain.UserRole) bool {
	return Evaluate(role, ActionVideoListAll, 0, 0).Allowed()
}
