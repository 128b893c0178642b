package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexInt_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    FlexInt
		wantErr bool
	}{
		{name: "number", in: `39`, want: 39},
		{name: "numeric string", in: `"39"`, want: 39},
		{name: "empty string", in: `""`, want: 0},
		{name: "null", in: `null`, want: 0},
		{name: "integral float", in: `39.0`, want: 39},
		{name: "fractional float", in: `39.5`, wantErr: true},
		{name: "garbage string", in: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got FlexInt
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want FlexString
	}{
		{in: `583`, want: "583"},
		{in: `"583"`, want: "583"},
		{in: `null`, want: ""},
	}
	for _, tt := range tests {
		var got FlexString
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	var bad FlexString
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestLogEvent_Decode(t *testing.T) {
	t.Parallel()

	line := `{"artist":null,"auth":"Logged In","firstName":"Walter","gender":"M","itemInSession":0,` +
		`"lastName":"Frye","length":null,"level":"free","location":"San Francisco-Oakland-Hayward, CA",` +
		`"method":"GET","page":"Home","registration":1540919166796.0,"sessionId":38,"song":null,` +
		`"status":200,"ts":1541105830796,"userAgent":"Mozilla\/5.0","userId":"39"}`

	var ev LogEvent
	require.NoError(t, json.Unmarshal([]byte(line), &ev))

	assert.Equal(t, "", ev.Artist)
	assert.Nil(t, ev.Length)
	assert.Equal(t, FlexInt(39), ev.UserID)
	assert.Equal(t, FlexString("38"), ev.SessionID)
	assert.Equal(t, int64(1541105830796), ev.Ts)
	assert.Equal(t, "Mozilla/5.0", ev.UserAgent)
}

func TestClockTime(t *testing.T) {
	t.Parallel()

	ts := time.UnixMilli(1541121934796).UTC()
	c := NewClockTime(ts)

	assert.Equal(t, "01:25:34.796000", c.String())

	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, "01:25:34.796000", v)

	h, m, s := c.Time().Clock()
	assert.Equal(t, []int{1, 25, 34}, []int{h, m, s})
	assert.Equal(t, 1900, c.Time().Year())
}

func TestSongMetadata_Projections(t *testing.T) {
	t.Parallel()

	lat := 35.14968
	m := SongMetadata{
		NumSongs:       1,
		ArtistID:       "ARD7TVE1187B99BFB1",
		ArtistLatitude: &lat,
		ArtistLocation: "California - LA",
		ArtistName:     "Casual",
		SongID:         "SOMZWCG12A8C13C480",
		Title:          "I Didn't Mean To",
		Duration:       218.93179,
		Year:           0,
	}

	assert.Equal(t, Song{
		SongID:   "SOMZWCG12A8C13C480",
		Title:    "I Didn't Mean To",
		ArtistID: "ARD7TVE1187B99BFB1",
		Duration: 218.93179,
	}, m.Song())

	a := m.Artist()
	assert.Equal(t, "Casual", a.Name)
	require.NotNil(t, a.Latitude)
	assert.InDelta(t, 35.14968, *a.Latitude, 1e-9)
	assert.Nil(t, a.Longitude)
}

func TestRowValues_ColumnOrder(t *testing.T) {
	t.Parallel()

	song, artist := "S1", "A1"
	p := SongPlay{
		StartTime: 1, UserID: 2, Level: "paid", SongID: &song, ArtistID: &artist,
		SessionID: "3", Location: "loc", UserAgent: "ua",
	}
	assert.Equal(t, []any{int64(1), int64(2), "paid", &song, &artist, "3", "loc", "ua"}, p.Values())

	e := TimeEntry{StartTime: ClockTime(time.Hour), Hour: 1, Day: 2, Week: 44, Month: 11, Year: 2018, Weekday: 4}
	assert.Equal(t, []any{ClockTime(time.Hour), 1, 2, 44, 11, 2018, 4}, e.Values())
}
