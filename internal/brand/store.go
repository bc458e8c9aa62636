package brand

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Store resolves brand identifiers to timing profiles.
//
// Profiles are loaded from the brand_profiles table once at startup and
// treated as immutable for the duration of a dispatch. Lookups are
// case-insensitive. Unknown brands resolve to the Generic profile: the
// absence of brand-specific tuning degrades to safe generic timing,
// never to an error that blocks control.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	profiles map[string]*Profile // keyed by lowercased brand
	mu       sync.RWMutex
}

// NewStore creates an empty store holding only the built-in Generic profile.
func NewStore() *Store {
	s := &Store{
		profiles: make(map[string]*Profile),
	}
	s.profiles[strings.ToLower(GenericBrand)] = genericProfile()
	return s
}

// Load reads all profiles from the database, replacing any previously
// loaded set. The built-in Generic profile remains available even when
// the table carries no Generic row.
func (s *Store) Load(ctx context.Context, db *sql.DB) error {
	query := `
		SELECT brand, power_on_delay_ms, power_off_delay_ms,
			volume_step_delay_ms, input_switch_delay_ms,
			supports_cec_wake, supports_cec_volume,
			preferred_method, quirks
		FROM brand_profiles`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying brand profiles: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string]*Profile)
	loaded[strings.ToLower(GenericBrand)] = genericProfile()

	for rows.Next() {
		var (
			p      Profile
			method string
			quirks string
		)
		err := rows.Scan(
			&p.Brand, &p.PowerOnDelayMs, &p.PowerOffDelayMs,
			&p.VolumeStepDelayMs, &p.InputSwitchDelayMs,
			&p.SupportsCECWake, &p.SupportsCECVolume,
			&method, &quirks,
		)
		if err != nil {
			return fmt.Errorf("scanning brand profile: %w", err)
		}

		p.PreferredMethod = Method(method)
		if err := json.Unmarshal([]byte(quirks), &p.Quirks); err != nil {
			// Quirks are informational; a malformed list must not
			// block control timing from loading.
			p.Quirks = []string{}
		}

		loaded[strings.ToLower(p.Brand)] = &p
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating brand profiles: %w", err)
	}

	s.mu.Lock()
	s.profiles = loaded
	s.mu.Unlock()

	return nil
}

// Resolve returns the profile for a brand identifier.
// Always returns a profile; unknown or empty identifiers resolve to Generic.
// The returned profile is a copy and safe to retain across a dispatch.
func (s *Store) Resolve(brandID string) *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.profiles[strings.ToLower(brandID)]; ok {
		return copyProfile(p)
	}
	return copyProfile(s.profiles[strings.ToLower(GenericBrand)])
}

// Brands returns every loaded brand identifier, Generic included.
func (s *Store) Brands() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brands := make([]string, 0, len(s.profiles))
	for _, p := range s.profiles {
		brands = append(brands, p.Brand)
	}
	return brands
}

// Put inserts or replaces a profile in the in-memory set.
// Intended for tests and out-of-band configuration reloads.
func (s *Store) Put(p *Profile) {
	s.mu.Lock()
	s.profiles[strings.ToLower(p.Brand)] = copyProfile(p)
	s.mu.Unlock()
}

func copyProfile(p *Profile) *Profile {
	cpy := *p
	if p.Quirks != nil {
		cpy.Quirks = make([]string, len(p.Quirks))
		copy(cpy.Quirks, p.Quirks)
	}
	return &cpy
}
