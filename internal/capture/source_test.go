package capture

import (
	"errors"
	"testing"
)

func TestSelect_Policy(t *testing.T) {
	game := Source{ID: "w1", Title: "League of Legends (TM) Client Game"}
	launcher := Source{ID: "w2", Title: "League of Legends Client"}
	riot := Source{ID: "w3", Title: "Riot Client"}
	screen := Source{ID: "s1", Title: "Screen 1", Fullscreen: true}
	other := Source{ID: "w4", Title: "Discord"}

	tests := []struct {
		name    string
		sources []Source
		wantID  string
	}{
		// "Client" in the title excludes a window even when the game name matches.
		{"launcher excluded, fullscreen wins", []Source{launcher, riot, screen}, "s1"},
		{"riot client excluded", []Source{riot, other, screen}, "s1"},
		{"no fullscreen falls back to any", []Source{launcher, other}, "w2"},
		{"fullscreen preferred over unrelated window", []Source{other, screen}, "s1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.sources, "League of Legends")
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("Select() = %q, want %q", got.ID, tt.wantID)
			}
		})
	}

	t.Run("title match beats fullscreen", func(t *testing.T) {
		got, err := Select([]Source{screen, game}, "League of Legends")
		if err != nil {
			t.Fatal(err)
		}
		// Contains "client" → excluded, so the screen wins here too.
		if got.ID != "s1" {
			t.Errorf("Select() = %q, want s1", got.ID)
		}
	})

	t.Run("clean game window wins over fullscreen", func(t *testing.T) {
		clean := Source{ID: "w9", Title: "League of Legends (Game)"}
		got, err := Select([]Source{screen, clean}, "League of Legends")
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != "w9" {
			t.Errorf("Select() = %q, want w9", got.ID)
		}
	})
}

func TestSelect_NoSources(t *testing.T) {
	_, err := Select(nil, "League of Legends")
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("Select(nil) error = %v, want ErrNoSource", err)
	}
}
