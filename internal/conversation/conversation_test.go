package conversation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var testSeed = Seed{Instructions: "be nice", Knowledge: "robots"}

func TestNew_Seeded(t *testing.T) {
	tr := New(testSeed)
	require.Len(t, tr, 2)
	require.Equal(t, Message{Role: RoleSystem, Content: "be nice"}, tr[0])
	require.Equal(t, Message{Role: RoleSystem, Content: "Preloaded Knowledge: robots"}, tr[1])
	require.Empty(t, tr.Turns())
}

func TestAppend_UserThenReply(t *testing.T) {
	tr := New(testSeed).
		AppendUser("What robots do you sell?").
		AppendReply(Ok("Cobots."))

	require.Len(t, tr, 4)
	require.Equal(t, Message{Role: RoleUser, Content: "What robots do you sell?"}, tr[2])
	require.Equal(t, Message{Role: RoleAssistant, Content: "Cobots."}, tr[3])
	require.Len(t, tr.Turns(), 2)
}

func TestAppendUser_AcceptsEmpty(t *testing.T) {
	tr := New(testSeed).AppendUser("")
	require.Equal(t, RoleUser, tr[2].Role)
	require.Empty(t, tr[2].Content)
}

func TestReply_FailedIsTagged(t *testing.T) {
	msg := Failed(errors.New("401 unauthorized")).Message()
	require.True(t, msg.Failed())
	require.Equal(t, RoleAssistant, msg.Role)
	require.Empty(t, msg.Content)
	require.Equal(t, "An error occurred: 401 unauthorized", msg.Display())
	require.True(t, strings.HasPrefix(msg.Display(), ErrorPrefix))

	require.True(t, Failed(nil).Message().Failed())
	require.False(t, Ok("").Message().Failed())
}

func TestTrim_KeepsSeedAndNewestTurns(t *testing.T) {
	tr := New(testSeed)
	for i := 0; i < 5; i++ {
		tr = tr.AppendUser(fmt.Sprintf("q%d", i)).AppendReply(Ok(fmt.Sprintf("a%d", i)))
	}

	trimmed := tr.Trim(2)
	require.Len(t, trimmed, 6)
	require.Equal(t, tr[:2], trimmed[:2])
	require.Equal(t, "q3", trimmed[2].Content)
	require.Equal(t, "a4", trimmed[5].Content)

	// the source transcript is left alone
	require.Len(t, tr, 12)

	require.Equal(t, tr, tr.Trim(0))
	require.Equal(t, tr, tr.Trim(10))
}
