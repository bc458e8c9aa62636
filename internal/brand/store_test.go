package brand

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupProfileDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE brand_profiles (
			brand TEXT PRIMARY KEY,
			power_on_delay_ms INTEGER NOT NULL DEFAULT 3000,
			power_off_delay_ms INTEGER NOT NULL DEFAULT 1500,
			volume_step_delay_ms INTEGER NOT NULL DEFAULT 150,
			input_switch_delay_ms INTEGER NOT NULL DEFAULT 2000,
			supports_cec_wake INTEGER NOT NULL DEFAULT 1,
			supports_cec_volume INTEGER NOT NULL DEFAULT 1,
			preferred_method TEXT NOT NULL DEFAULT 'hybrid',
			quirks TEXT NOT NULL DEFAULT '[]'
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestStore_ResolveKnownBrand(t *testing.T) {
	db := setupProfileDB(t)
	_, err := db.Exec(`
		INSERT INTO brand_profiles (brand, power_on_delay_ms, supports_cec_volume, preferred_method, quirks)
		VALUES ('Vizio', 5000, 0, 'ir', '["SmartCast ignores CEC wake"]')`)
	if err != nil {
		t.Fatalf("seeding profile: %v", err)
	}

	store := NewStore()
	if err := store.Load(context.Background(), db); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	p := store.Resolve("Vizio")
	if p.PowerOnDelay() != 5*time.Second {
		t.Errorf("PowerOnDelay() = %v, want 5s", p.PowerOnDelay())
	}
	if p.SupportsCECVolume {
		t.Error("SupportsCECVolume = true, want false")
	}
	if p.PreferredMethod != MethodIR {
		t.Errorf("PreferredMethod = %q, want %q", p.PreferredMethod, MethodIR)
	}
	if len(p.Quirks) != 1 {
		t.Errorf("len(Quirks) = %d, want 1", len(p.Quirks))
	}
}

func TestStore_ResolveIsCaseInsensitive(t *testing.T) {
	store := NewStore()
	store.Put(&Profile{Brand: "Samsung", PreferredMethod: MethodCEC})

	for _, id := range []string{"samsung", "SAMSUNG", "Samsung"} {
		if p := store.Resolve(id); p.Brand != "Samsung" {
			t.Errorf("Resolve(%q).Brand = %q, want Samsung", id, p.Brand)
		}
	}
}

func TestStore_UnknownBrandResolvesToGeneric(t *testing.T) {
	store := NewStore()

	p := store.Resolve("NoSuchBrand")
	if p.Brand != GenericBrand {
		t.Errorf("Resolve() brand = %q, want %q", p.Brand, GenericBrand)
	}
	if p.PreferredMethod != MethodHybrid {
		t.Errorf("Generic PreferredMethod = %q, want %q", p.PreferredMethod, MethodHybrid)
	}

	// Empty identifier behaves the same way.
	if p := store.Resolve(""); p.Brand != GenericBrand {
		t.Errorf("Resolve(\"\") brand = %q, want %q", p.Brand, GenericBrand)
	}
}

func TestStore_GenericSurvivesLoad(t *testing.T) {
	// The table has no Generic row; the built-in must still resolve.
	store := NewStore()
	if err := store.Load(context.Background(), setupProfileDB(t)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	p := store.Resolve("Generic")
	if p.Brand != GenericBrand {
		t.Errorf("Resolve(Generic).Brand = %q, want %q", p.Brand, GenericBrand)
	}
	if p.PowerOnDelay() != 3*time.Second {
		t.Errorf("Generic PowerOnDelay() = %v, want 3s", p.PowerOnDelay())
	}
}

func TestStore_MalformedQuirksDoesNotBlockLoad(t *testing.T) {
	db := setupProfileDB(t)
	if _, err := db.Exec(`
		INSERT INTO brand_profiles (brand, quirks) VALUES ('Broken', 'not json')`); err != nil {
		t.Fatalf("seeding profile: %v", err)
	}

	store := NewStore()
	if err := store.Load(context.Background(), db); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	p := store.Resolve("Broken")
	if p.Brand != "Broken" {
		t.Errorf("Resolve(Broken).Brand = %q, want Broken", p.Brand)
	}
	if len(p.Quirks) != 0 {
		t.Errorf("Quirks = %v, want empty on malformed input", p.Quirks)
	}
}

func TestStore_ResolveReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Put(&Profile{Brand: "LG", Quirks: []string{"a"}})

	p := store.Resolve("LG")
	p.PowerOnDelayMs = 99999
	p.Quirks[0] = "mutated"

	fresh := store.Resolve("LG")
	if fresh.PowerOnDelayMs == 99999 {
		t.Error("stored profile mutated through returned copy")
	}
	if fresh.Quirks[0] == "mutated" {
		t.Error("stored quirks mutated through returned copy")
	}
}
