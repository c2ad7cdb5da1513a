package playlist

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
	"github.com/Nixie-Tech-LLC/adcast/internal/storage"
)

type fakeStore struct {
	groups map[string]*model.DeviceGroup
	rows   []model.ActiveContent
	from   time.Time
	to     time.Time
}

func (f *fakeStore) GetGroup(ctx context.Context, groupID string) (*model.DeviceGroup, error) {
	g, ok := f.groups[groupID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return g, nil
}

func (f *fakeStore) ActiveContentForGroup(ctx context.Context, groupID string, from, to time.Time) ([]model.ActiveContent, error) {
	f.from, f.to = from, to
	return f.rows, nil
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolvePlayableURL(ctx context.Context, storageKey string) (string, time.Time, error) {
	args := m.Called(ctx, storageKey)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type staticTicker struct {
	text string
	err  error
}

func (s staticTicker) TickerText(ctx context.Context, groupID string) (string, error) {
	return s.text, s.err
}

var (
	now    = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	expiry = now.Add(6 * time.Hour)
)

func hour(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC) }

func strPtr(s string) *string { return &s }

func newTestAssembler(store Store, resolver storage.URLResolver, ticker TickerSource) *Assembler {
	a := NewAssembler(store, resolver, ticker, Config{DefaultMessage: "Welcome!", PlaceholderDuration: 10, ResolveTimeout: time.Second})
	a.now = func() time.Time { return now }
	return a
}

func TestAssembleBuildsOrderedPlaylist(t *testing.T) {
	store := &fakeStore{
		groups: map[string]*model.DeviceGroup{"g1": {ID: "g1", Name: "Lobby"}},
		rows: []model.ActiveContent{
			{ContentID: "low", ContentType: model.ContentTypeAd, Priority: 1, StartTime: hour(6), EndTime: hour(22), Name: "Low", StorageKey: "uploads/low.mp4", Duration: 20},
			{ContentID: "high", ContentType: model.ContentTypeAd, Priority: 5, StartTime: hour(8), EndTime: hour(9), Name: "High", StorageKey: "uploads/high.mp4", Duration: 30},
			{ContentID: "high", ContentType: model.ContentTypeAd, Priority: 5, StartTime: hour(12), EndTime: hour(13), Name: "High", StorageKey: "uploads/high.mp4", Duration: 30},
			{ContentID: "live", ContentType: model.ContentTypeLiveContent, Priority: 1, StartTime: hour(4), EndTime: hour(7), Name: "Live", StorageKey: "uploads/live.m3u8", Duration: 10},
		},
	}
	resolver := new(MockResolver)
	resolver.On("ResolvePlayableURL", mock.Anything, "uploads/low.mp4").Return("https://cdn/low.mp4", expiry, nil)
	resolver.On("ResolvePlayableURL", mock.Anything, "uploads/high.mp4").Return("https://cdn/high.mp4", expiry, nil).Once()
	resolver.On("ResolvePlayableURL", mock.Anything, "uploads/live.m3u8").Return("https://cdn/live.m3u8", expiry, nil)

	pl, err := newTestAssembler(store, resolver, nil).Assemble(context.Background(), "g1", strPtr("https://cdn/placeholder.png"))
	require.NoError(t, err)

	assert.Equal(t, hour(6), store.from)
	assert.Equal(t, hour(22), store.to)

	require.Len(t, pl.Ads, 3)
	assert.Equal(t, "high", pl.Ads[0].ContentID)
	assert.Equal(t, "live", pl.Ads[1].ContentID) // same priority as low, earlier start
	assert.Equal(t, "low", pl.Ads[2].ContentID)

	// loop = 30 + 20 + 10 + placeholder 10 = 70s
	assert.Equal(t, 2*3600/70, pl.Ads[0].TotalPlays)
	assert.Equal(t, 1*3600/70, pl.Ads[1].TotalPlays)
	assert.Equal(t, 16*3600/70, pl.Ads[2].TotalPlays)
	assert.Equal(t, "https://cdn/high.mp4", pl.Ads[0].URL)
	assert.Equal(t, expiry, pl.Ads[0].URLExpiry)
	assert.Equal(t, hour(8), pl.Ads[0].StartTime)

	require.NotNil(t, pl.Placeholder)
	assert.Equal(t, "https://cdn/placeholder.png", *pl.Placeholder)
	assert.Equal(t, "Welcome!", pl.Message)
	assert.Equal(t, now, pl.GeneratedAt)
	resolver.AssertExpectations(t)
}

func TestAssembleDropsUnresolvableItems(t *testing.T) {
	store := &fakeStore{
		groups: map[string]*model.DeviceGroup{"g1": {ID: "g1"}},
		rows: []model.ActiveContent{
			{ContentID: "ok", ContentType: model.ContentTypeAd, Priority: 1, StartTime: hour(6), EndTime: hour(22), StorageKey: "ok.mp4", Duration: 30},
			{ContentID: "broken", ContentType: model.ContentTypeAd, Priority: 9, StartTime: hour(6), EndTime: hour(22), StorageKey: "broken.mp4", Duration: 30},
		},
	}
	resolver := new(MockResolver)
	resolver.On("ResolvePlayableURL", mock.Anything, "ok.mp4").Return("https://cdn/ok.mp4", expiry, nil)
	resolver.On("ResolvePlayableURL", mock.Anything, "broken.mp4").Return("", time.Time{}, storage.ErrURLResolutionFailed)

	pl, err := newTestAssembler(store, resolver, nil).Assemble(context.Background(), "g1", nil)
	require.NoError(t, err)

	require.Len(t, pl.Ads, 1)
	assert.Equal(t, "ok", pl.Ads[0].ContentID)
	// no placeholder: loop is only the surviving item
	assert.Equal(t, 16*3600/30, pl.Ads[0].TotalPlays)
	assert.Nil(t, pl.Placeholder)
}

func TestAssembleMessageAndTicker(t *testing.T) {
	store := &fakeStore{groups: map[string]*model.DeviceGroup{
		"custom": {ID: "custom", ScrollingMessage: strPtr(" Happy hour 5-7pm ")},
		"plain":  {ID: "plain"},
	}}
	resolver := new(MockResolver)

	a := newTestAssembler(store, resolver, staticTicker{text: "FT: Rovers 2-1 United"})
	pl, err := a.Assemble(context.Background(), "custom", nil)
	require.NoError(t, err)
	assert.Equal(t, "Happy hour 5-7pm"+tickerSeparator+"FT: Rovers 2-1 United", pl.Message)
	assert.NotNil(t, pl.Ads)
	assert.Empty(t, pl.Ads)

	a = newTestAssembler(store, resolver, staticTicker{err: errors.New("redis down")})
	pl, err = a.Assemble(context.Background(), "plain", nil)
	require.NoError(t, err)
	assert.Equal(t, "Welcome!", pl.Message)
}

func TestAssembleUnknownGroup(t *testing.T) {
	store := &fakeStore{groups: map[string]*model.DeviceGroup{}}
	_, err := newTestAssembler(store, new(MockResolver), nil).Assemble(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPlaylistIsSelfContained(t *testing.T) {
	msg := "Original"
	group := &model.DeviceGroup{ID: "g1", ScrollingMessage: &msg}
	store := &fakeStore{groups: map[string]*model.DeviceGroup{"g1": group}}
	placeholder := "https://cdn/a.png"

	pl, err := newTestAssembler(store, new(MockResolver), nil).Assemble(context.Background(), "g1", &placeholder)
	require.NoError(t, err)

	msg = "Changed"
	placeholder = "https://cdn/b.png"

	raw, err := json.Marshal(pl)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"Original"`)
	assert.Contains(t, string(raw), `"placeholder":"https://cdn/a.png"`)
	assert.Contains(t, string(raw), `"ads":[]`)
}

func TestWindow(t *testing.T) {
	from, to := Window(time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 5, 10, 22, 0, 0, 0, time.UTC), to)
}
