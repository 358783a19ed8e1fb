package policy

import (
	"testing"

	"pulsegen/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_Matrix(t *testing.T) {
	const me, other = int64(1), int64(2)

	cases := []struct {
		role   domain.UserRole
		action Action
		owner  int64
		want   Decision
	}{
		{domain.RoleViewer, ActionVideoList, 0, Allow},
		{domain.RoleViewer, ActionVideoListAll, 0, Deny},
		{domain.RoleViewer, ActionVideoRead, me, Allow},
		{domain.RoleViewer, ActionVideoRead, other, Deny},
		{domain.RoleViewer, ActionVideoStream, me, Allow},
		{domain.RoleViewer, ActionVideoStream, other, Deny},
		{domain.RoleViewer, ActionVideoUpload, 0, Deny},
		{domain.RoleViewer, ActionVideoDelete, me, Deny},
		{domain.RoleViewer, ActionVideoAnalyze, me, Deny},

		{domain.RoleEditor, ActionVideoUpload, 0, Allow},
		{domain.RoleEditor, ActionVideoListAll, 0, Deny},
		{domain.RoleEditor, ActionVideoDelete, me, Allow},
		{domain.RoleEditor, ActionVideoDelete, other, Deny},
		{domain.RoleEditor, ActionVideoAnalyze, me, Allow},
		{domain.RoleEditor, ActionVideoStream, other, Deny},

		{domain.RoleAdmin, ActionVideoListAll, 0, Allow},
		{domain.RoleAdmin, ActionVideoUpload, 0, Allow},
		{domain.RoleAdmin, ActionVideoRead, other, Allow},
		{domain.RoleAdmin, ActionVideoStream, other, Allow},
		{domain.RoleAdmin, ActionVideoDelete, other, Allow},
		{domain.RoleAdmin, ActionVideoAnalyze, other, Allow},
	}

	for _, tc := range cases {
		got := Evaluate(tc.role, tc.action, me, tc.owner)
		assert.Equal(t, tc.want, got, "%s %s owner=%d", tc.role, tc.action, tc.owner)
	}
}

func TestEvaluate_UnknownInputs(t *testing.T) {
	assert.Equal(t, Deny, Evaluate("guest", ActionVideoList, 1, 0))
	assert.Equal(t, Deny, Evaluate(domain.RoleAdmin, Action("video:burn"), 1, 0))
	// a resource action without a known owner never passes for non-admins
	assert.Equal(t, Deny, Evaluate(domain.RoleEditor, ActionVideoRead, 1, 0))
}

func TestCanListAll(t *testing.T) {
	assert.True(t, CanListAll(domain.RoleAdmin))
	assert.False(t, CanListAll(domain.RoleEditor))
}
