// Package capture defines the session manager's boundary to the screen
// capture collaborator: source enumeration, the selection policy, and the
// Recorder contract that yields the raw video byte stream.
package capture

import (
	"context"
	"errors"
	"strings"
)

// ErrNoSource is returned when no capturable window or screen exists at all.
var ErrNoSource = errors.New("no capturable source found")

// Source describes one capturable window or screen.
type Source struct {
	ID         string
	Title      string
	Fullscreen bool
}

// SourceLister enumerates capturable windows and screens.
type SourceLister interface {
	Sources(ctx context.Context) ([]Source, error)
}

// Select applies the capture-source policy: prefer a window whose title
// contains the game's name but not "client" or "riot" (those are the
// launcher, not the game), else the first fullscreen source, else any
// source.
func Select(sources []Source, gameName string) (Source, error) {
	if len(sources) == 0 {
		return Source{}, ErrNoSource
	}

	game := strings.ToLower(gameName)
	for _, s := range sources {
		title := strings.ToLower(s.Title)
		if strings.Contains(title, game) &&
			!strings.Contains(title, "client") &&
			!strings.Contains(title, "riot") {
			return s, nil
		}
	}

	for _, s := range sources {
		if s.Fullscreen {
			return s, nil
		}
	}

	return sources[0], nil
}

// ScreenLister reports the primary display as the only capturable source.
// Window enumeration would need platform APIs the recorder does not link;
// the grab input records the whole desktop for fullscreen sources anyway.
type ScreenLister struct{}

func (ScreenLister) Sources(ctx context.Context) ([]Source, error) {
	return []Source{{ID: "screen:0", Title: "Primary display", Fullscreen: true}}, nil
}
