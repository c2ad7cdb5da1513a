package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

type fakeStore struct {
	inserted  []model.ScheduleEntry
	insertErr error
	toDelete  []model.ScheduleEntry
	filters   []model.ScheduleFilter
}

func (f *fakeStore) InsertSchedules(ctx context.Context, entries []model.ScheduleEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, entries...)
	return nil
}

func (f *fakeStore) DeleteSchedules(ctx context.Context, filter model.ScheduleFilter) ([]model.ScheduleEntry, error) {
	f.filters = append(f.filters, filter)
	return f.toDelete, nil
}

type recordingRecomputer struct {
	pairs [][]model.GroupDate
	err   error
}

func (r *recordingRecomputer) RecomputePairs(ctx context.Context, pairs []model.GroupDate) error {
	r.pairs = append(r.pairs, pairs)
	return r.err
}

type recordingPusher struct {
	groups [][]string
	err    error
}

func (p *recordingPusher) PushToGroups(ctx context.Context, groupIDs []string, placeholder *string) error {
	p.groups = append(p.groups, groupIDs)
	return p.err
}

func newTestService(finder ContentFinder, store Store) (*Service, *recordingRecomputer, *recordingPusher) {
	rec := &recordingRecomputer{}
	push := &recordingPusher{}
	return NewService(newTestExpander(finder), store, rec, push), rec, push
}

func TestExpandAndPersistAdRecomputesAndPushes(t *testing.T) {
	finder := new(MockContentFinder)
	finder.On("FindContent", mock.Anything, "X", model.ContentTypeAd).Return(liveContent("X", model.ContentTypeAd), nil)
	store := &fakeStore{}
	svc, rec, push := newTestService(finder, store)

	req := baseRequest()
	req.GroupIDs = []string{"G2", "G1"}

	entries, err := svc.ExpandAndPersist(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, entries, store.inserted)

	require.Len(t, rec.pairs, 1)
	assert.Equal(t, []model.GroupDate{
		{Date: date(2024, 1, 1), GroupID: "G1"},
		{Date: date(2024, 1, 1), GroupID: "G2"},
		{Date: date(2024, 1, 2), GroupID: "G1"},
		{Date: date(2024, 1, 2), GroupID: "G2"},
	}, rec.pairs[0])

	require.Len(t, push.groups, 1)
	assert.Equal(t, []string{"G1", "G2"}, push.groups[0])
}

func TestExpandAndPersistNonAdSkipsRecompute(t *testing.T) {
	finder := new(MockContentFinder)
	finder.On("FindContent", mock.Anything, "X", model.ContentTypeCarousel).Return(liveContent("X", model.ContentTypeCarousel), nil)
	svc, rec, push := newTestService(finder, &fakeStore{})

	req := baseRequest()
	req.ContentType = model.ContentTypeCarousel

	_, err := svc.ExpandAndPersist(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, rec.pairs)
	assert.Equal(t, [][]string{{"G1"}}, push.groups)
}

func TestExpandAndPersistSideEffectFailuresAreNotSurfaced(t *testing.T) {
	finder := new(MockContentFinder)
	finder.On("FindContent", mock.Anything, "X", model.ContentTypeAd).Return(liveContent("X", model.ContentTypeAd), nil)
	svc, rec, push := newTestService(finder, &fakeStore{})
	rec.err = errors.New("recompute failed")
	push.err = errors.New("broker down")

	entries, err := svc.ExpandAndPersist(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestExpandAndPersistStoreFailure(t *testing.T) {
	finder := new(MockContentFinder)
	finder.On("FindContent", mock.Anything, "X", model.ContentTypeAd).Return(liveContent("X", model.ContentTypeAd), nil)
	svc, rec, push := newTestService(finder, &fakeStore{insertErr: errors.New("unique violation")})

	_, err := svc.ExpandAndPersist(context.Background(), baseRequest())
	require.Error(t, err)
	assert.False(t, IsClientError(err))
	assert.Empty(t, rec.pairs)
	assert.Empty(t, push.groups)
}

func TestExpandAndPersistValidationError(t *testing.T) {
	finder := new(MockContentFinder)
	finder.On("FindContent", mock.Anything, "X", model.ContentTypeAd).Return(liveContent("X", model.ContentTypeAd), nil)
	store := &fakeStore{}
	svc, _, _ := newTestService(finder, store)

	req := baseRequest()
	req.Weekdays = []int{9}
	_, err := svc.ExpandAndPersist(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidWeekday)
	assert.Empty(t, store.inserted)
}

func TestDeleteSchedulesRejectsEmptyFilter(t *testing.T) {
	store := &fakeStore{}
	svc, _, _ := newTestService(new(MockContentFinder), store)

	_, _, err := svc.DeleteSchedules(context.Background(), model.ScheduleFilter{})
	assert.ErrorIs(t, err, ErrMissingParameter)
	assert.Empty(t, store.filters)
}

func TestDeleteSchedulesReturnsPairs(t *testing.T) {
	store := &fakeStore{toDelete: []model.ScheduleEntry{
		{
			ScheduleID: "a", ContentID: "X", ContentType: model.ContentTypeAd, GroupID: "G1",
			StartTime: time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC), EndTime: time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC),
		},
		{
			ScheduleID: "b", ContentID: "L", ContentType: model.ContentTypeLiveContent, GroupID: "G2",
			StartTime: time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC), EndTime: time.Date(2024, 1, 2, 22, 0, 0, 0, time.UTC),
		},
	}}
	svc, rec, push := newTestService(new(MockContentFinder), store)

	n, pairs, err := svc.DeleteSchedules(context.Background(), model.ScheduleFilter{ContentID: "X"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []model.GroupDate{
		{Date: date(2024, 1, 1), GroupID: "G1"},
		{Date: date(2024, 1, 2), GroupID: "G2"},
	}, pairs)

	require.Len(t, rec.pairs, 1)
	assert.Equal(t, []model.GroupDate{{Date: date(2024, 1, 1), GroupID: "G1"}}, rec.pairs[0])
	assert.Equal(t, [][]string{{"G1", "G2"}}, push.groups)
}

func TestDeleteSchedulesNothingMatched(t *testing.T) {
	store := &fakeStore{}
	svc, rec, push := newTestService(new(MockContentFinder), store)

	n, pairs, err := svc.DeleteSchedules(context.Background(), model.ScheduleFilter{GroupIDs: []string{"G9"}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pairs)
	assert.Empty(t, rec.pairs)
	assert.Empty(t, push.groups)
}
