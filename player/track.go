package player

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Track is a playable song.
type Track struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Artists  []string      `json:"artists"`
	Duration time.Duration `json:"duration"`
}

// Title renders "Artist - Name".
func (t *Track) Title() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return strings.Join(t.Artists, ", ") + " - " + t.Name
}

// Playback is what the device is doing right now.
type Playback struct {
	Track    *Track        `json:"track"`
	Progress time.Duration `json:"progress"`
	Playing  bool          `json:"playing"`
}

// Remaining is the time left of the current track.
func (p *Playback) Remaining() time.Duration {
	if p == nil || p.Track == nil {
		return 0
	}
	if r := p.Track.Duration - p.Progress; r > 0 {
		return r
	}
	return 0
}

// Item is a queued song request.
type Item struct {
	Track   *Track    `json:"track"`
	User    string    `json:"user"`
	AddedAt time.Time `json:"added_at"`
}

// ParseTrackID accepts a bare track id, a spotify:track: URI or an
// open.spotify.com track URL.
func ParseTrackID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "spotify:track:"):
		ref = strings.TrimPrefix(ref, "spotify:track:")
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("bad track url: %w", err)
		}
		if u.Host != "open.spotify.com" {
			return "", fmt.Errorf("not a spotify url: %s", u.Host)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 || parts[len(parts)-2] != "track" {
			return "", fmt.Errorf("not a track url: %s", u.Path)
		}
		ref = parts[len(parts)-1]
	}
	if !validID(ref) {
		return "", fmt.Errorf("invalid track id %q", ref)
	}
	return ref, nil
}

// validID checks for a 22 character base62 id.
func validID(id string) bool {
	if len(id) != 22 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
