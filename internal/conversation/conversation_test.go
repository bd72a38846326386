package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendKeepsChronologicalOrder(t *testing.T) {
	tr := NewTranscript()

	user := tr.Append(RoleUser, "what is the weather")
	assistant := tr.Append(RoleAssistant, "Sunny.")

	entries := tr.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, user, entries[0])
	require.Equal(t, assistant, entries[1])
	require.NotEqual(t, user.ID, assistant.ID)
	require.False(t, entries[1].CreatedAt.Before(entries[0].CreatedAt))
}

func TestEntriesReturnsCopy(t *testing.T) {
	tr := NewTranscript()
	tr.Append(RoleUser, "hello")

	entries := tr.Entries()
	entries[0].Content = "mutated"

	require.Equal(t, "hello", tr.Entries()[0].Content)
}

func TestLastAndCount(t *testing.T) {
	tr := NewTranscript()
	_, ok := tr.Last()
	require.False(t, ok)
	require.Zero(t, tr.Len())

	tr.now = func() time.Time { return time.Unix(1700000000, 0) }
	tr.Append(RoleUser, "one")
	tr.Append(RoleAssistant, "two")
	tr.Append(RoleUser, "three")

	last, ok := tr.Last()
	require.True(t, ok)
	require.Equal(t, "three", last.Content)
	require.Equal(t, time.Unix(1700000000, 0), last.CreatedAt)
	require.Equal(t, 2, tr.Count(RoleUser))
	require.Equal(t, 1, tr.Count(RoleAssistant))
	require.Equal(t, 3, tr.Len())
}

func TestAppendConcurrentSafe(t *testing.T) {
	tr := NewTranscript()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Append(RoleUser, "x")
		}()
	}
	wg.Wait()
	require.Equal(t, 50, tr.Len())
}
