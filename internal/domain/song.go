package domain

// SongMetadata is the business object for one song_data file: a single JSON
// object describing one song and the artist who recorded it.
type SongMetadata struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`
}

// Song is one row of the songs table.
type Song struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Artist is one row of the artists table. Coordinates are unknown for many
// artists and stay NULL.
type Artist struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// SongRef is the (song_id, artist_id) pair resolved for a songplay.
type SongRef struct {
	SongID   string
	ArtistID string
}

// Song projects the songs row.
func (m SongMetadata) Song() Song {
	return Song{
		SongID:   m.SongID,
		Title:    m.Title,
		ArtistID: m.ArtistID,
		Year:     m.Year,
		Duration: m.Duration,
	}
}

// Artist projects the artists row.
func (m SongMetadata) Artist() Artist {
	return Artist{
		ArtistID:  m.ArtistID,
		Name:      m.ArtistName,
		Location:  m.ArtistLocation,
		Latitude:  m.ArtistLatitude,
		Longitude: m.ArtistLongitude,
	}
}
