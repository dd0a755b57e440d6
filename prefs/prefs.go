package prefs

import (
	"encoding/json"
	"fmt"

	"github.com/quasilyte/gdata"
	"github.com/rs/zerolog"
)

const (
	appName = "sumo-bumper"
	itemKey = "prefs"
)

// Store is the slice of gdata.Manager the preferences need.
type Store interface {
	LoadItem(key string) ([]byte, error)
	SaveItem(key string, data []byte) error
}

// Saved is what the participant remembers between runs.
type Saved struct {
	PlayerName   string `json:"playerName"`
	LastJoinCode string `json:"lastJoinCode"`
	LastAddress  string `json:"lastAddress"`
}

// Prefs loads and saves Saved. A Prefs without a store (persistence
// unavailable) loads empty values and silently drops saves.
type Prefs struct {
	store Store
	log   zerolog.Logger
}

// Open initializes the platform data directory for the app.
func Open(log zerolog.Logger) (*Prefs, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not initialize persistence")
		return &Prefs{log: log}, err
	}
	return New(m, log), nil
}

func New(store Store, log zerolog.Logger) *Prefs {
	return &Prefs{store: store, log: log}
}

// Load returns the saved preferences, or zero values when nothing was saved
// yet or the data is unreadable.
func (p *Prefs) Load() Saved {
	if p.store == nil {
		return Saved{}
	}

	data, err := p.store.LoadItem(itemKey)
	if err != nil {
		p.log.Warn().Err(err).Msg("could not load preferences")
		return Saved{}
	}
	if len(data) == 0 {
		return Saved{}
	}

	var s Saved
	if err := json.Unmarshal(data, &s); err != nil {
		p.log.Warn().Err(err).Msg("could not parse saved preferences")
		return Saved{}
	}
	return s
}

// Save writes s to disk.
func (p *Prefs) Save(s Saved) error {
	if p.store == nil {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := p.store.SaveItem(itemKey, data); err != nil {
		p.log.Warn().Err(err).Msg("could not save preferences")
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Update loads, applies fn, and saves.
func (p *Prefs) Update(fn func(*Saved)) error {
	s := p.Load()
	fn(&s)
	return p.Save(s)
}
