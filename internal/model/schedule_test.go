package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdaysJSONB(t *testing.T) {
	v, err := Weekdays{1, 3, 5}.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[1,3,5]"), v)

	v, err = Weekdays(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	var w Weekdays
	require.NoError(t, w.Scan([]byte("[0,6]")))
	assert.Equal(t, Weekdays{0, 6}, w)

	require.NoError(t, w.Scan(nil))
	assert.Nil(t, w)

	assert.Error(t, w.Scan(42))
}

func TestTimeSlotsJSONB(t *testing.T) {
	var s TimeSlots
	require.NoError(t, s.Scan(`[{"start":"06:00","end":"09:00"}]`))
	assert.Equal(t, TimeSlots{{Start: "06:00", End: "09:00"}}, s)
}

func TestGroupDatesOf(t *testing.T) {
	e := ScheduleEntry{
		GroupID:   "g",
		StartTime: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, []GroupDate{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), GroupID: "g"},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), GroupID: "g"},
	}, GroupDatesOf(e))
}

func TestScheduleFilterEmpty(t *testing.T) {
	assert.True(t, ScheduleFilter{}.Empty())
	assert.False(t, ScheduleFilter{GroupIDs: []string{"g"}}.Empty())
}
