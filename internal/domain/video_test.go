package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]VideoStatus{
		{VideoPending, VideoProcessing},
		{VideoProcessing, VideoSafe},
		{VideoProcessing, VideoFlagged},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]VideoStatus{
		{VideoPending, VideoSafe},
		{VideoPending, VideoFlagged},
		{VideoProcessing, VideoPending},
		{VideoSafe, VideoProcessing},
		{VideoFlagged, VideoSafe},
		{VideoSafe, VideoPending},
		{VideoProcessing, VideoProcessing},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestVideoStatus_IsTerminal(t *testing.T) {
	assert.False(t, VideoPending.IsTerminal())
	assert.False(t, VideoProcessing.IsTerminal())
	assert.True(t, VideoSafe.IsTerminal())
	assert.True(t, VideoFlagged.IsTerminal())
	assert.False(t, VideoStatus("deleted").Valid())
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Editor ")
	assert.True(t, ok)
	assert.Equal(t, RoleEditor, r)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
}
