package logging

import "testing"

func TestGetReturnsSameLoggerPerCategory(t *testing.T) {
	if err := Initialize(false); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	a := Get(CategoryResolve)
	b := Get(CategoryResolve)
	if a != b {
		t.Error("expected cached logger for repeated Get of same category")
	}
	if Get(CategoryParse) == nil {
		t.Error("expected non-nil logger for parse category")
	}
}

func TestInitializeDebugMode(t *testing.T) {
	if err := Initialize(true); err != nil {
		t.Fatalf("Initialize(debug) failed: %v", err)
	}
	// Must not panic when logging through a debug logger.
	ResolveDebug("resolving %s", "./x")
	EngineDebug("run %d", 1)
	Sync()

	// Reset to no-op so other tests stay quiet.
	if err := Initialize(false); err != nil {
		t.Fatalf("Initialize(false) failed: %v", err)
	}
}
