package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	events []Event
	err    error
}

func (s *recordingStore) Append(_ context.Context, e Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func TestFanout_AppendsToEveryStore(t *testing.T) {
	failing := &recordingStore{err: errors.New("sink down")}
	ok := &recordingStore{}

	err := Fanout{failing, ok}.Append(context.Background(), Event{Action: string(EventLocationResolved)})

	require.Error(t, err)
	assert.ErrorIs(t, err, failing.err)
	require.Len(t, ok.events, 1, "a failing sink must not starve the others")
}

func TestAuditEvent_Category(t *testing.T) {
	assert.Equal(t, CategorySubmission, EventSubmissionRejected.Category())
	assert.Equal(t, CategoryOperations, EventLocationResolved.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("unknown").Category())
}
