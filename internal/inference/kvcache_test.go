package inference

import "testing"

func TestPromptCacheHitRate(t *testing.T) {
	c := NewPromptCache()
	const prompt = "you are an accounting assistant"

	if _, ok := c.Get(prompt); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put(prompt, []byte("kv-state"))
	if _, ok := c.Get(prompt); !ok {
		t.Fatal("expected hit after Put")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Fatalf("expected hit rate 0.5, got %f", stats.HitRate)
	}
}

func TestPromptCacheKeyStable(t *testing.T) {
	if Key("a") != Key("a") {
		t.Fatal("same input must yield same key")
	}
	if Key("a") == Key("b") {
		t.Fatal("distinct inputs collided")
	}
}

func TestLoRAManagerSingleActive(t *testing.T) {
	m := NewLoRAManager()
	if m.Active() != "" {
		t.Fatal("expected no active adapter initially")
	}
	if err := m.Load("/data/adapters/a1"); err != nil {
		t.Fatal(err)
	}
	if m.Active() != "/data/adapters/a1" {
		t.Fatal("expected a1 active")
	}
	if err := m.Load("/data/adapters/a2"); err != nil {
		t.Fatal(err)
	}
	if m.Active() != "/data/adapters/a2" {
		t.Fatal("loading a2 should replace a1, not add a second active adapter")
	}
	m.Unload()
	if m.Active() != "" {
		t.Fatal("expected no active adapter after Unload")
	}
}
