package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d)

	// The calendar day is taken as written, not shifted to UTC.
	d, err = ParseDate("2024-03-01T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.String())

	for _, bad := range []string{"", "2023-02-29", "03/01/2024", "2024-3-1"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateBefore(t *testing.T) {
	a := Date{Year: 2024, Month: time.January, Day: 31}
	b := Date{Year: 2024, Month: time.February, Day: 1}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
}

func TestTaskPatch_TellsAbsentFromNull(t *testing.T) {
	var patch TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"status":"done","dueDate":null}`), &patch))

	assert.True(t, patch.Status.Set)
	assert.Equal(t, "done", patch.Status.Value)
	assert.True(t, patch.DueDate.Set)
	assert.True(t, patch.DueDate.Null)
	assert.False(t, patch.Title.Set)
	assert.False(t, patch.Priority.Set)
	assert.False(t, patch.Empty())

	var empty TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"unknown":1}`), &empty))
	assert.True(t, empty.Empty())

	assert.Error(t, json.Unmarshal([]byte(`{"title":42}`), &empty))
}

func TestTaskJSON(t *testing.T) {
	due := Date{Year: 2024, Month: time.May, Day: 1}
	raw, err := json.Marshal(Task{ID: "t1", DueDate: &due})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dueDate":"2024-05-01"`)

	raw, err = json.Marshal(Task{ID: "t1"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dueDate":null`)
}
