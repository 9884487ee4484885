package Models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatRoomIDIsSymmetric(t *testing.T) {
	assert.Equal(t, ChatRoomID("bob", "alice"), ChatRoomID("alice", "bob"))
	a, b, ok := ChatRoomMembers(ChatRoomID("bob", "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	_, _, ok = ChatRoomMembers("solo")
	assert.False(t, ok)
}

func TestChatRoomMembersRejectsAmbiguousIDs(t *testing.T) {
	for _, id := range []string{
		ChatRoomID("a_b", "c"),
		ChatRoomID("a", "b_c"),
		"bob_alice",
		"_alice",
		"alice_",
	} {
		_, _, ok := ChatRoomMembers(id)
		assert.False(t, ok, id)
	}
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("abc-123"))
	for _, bad := range []string{"", "a/b", "a.b", "a#", "$x", "[0]"} {
		assert.False(t, ValidKey(bad), bad)
	}
}

func TestPathsOverlap(t *testing.T) {
	assert.True(t, PathsOverlap("prescriptions/p1", "prescriptions/p1/messages/k"))
	assert.True(t, PathsOverlap("/reports/", "reports"))
	assert.True(t, PathsOverlap("", "bookings"))
	assert.False(t, PathsOverlap("reports", "reportsArchive"))
	assert.False(t, PathsOverlap("chats/a_b", "chats/a_c"))
}
