package redis

import "testing"

func TestKeyNamespacing(t *testing.T) {
	if got := Key("ratelimit", "whitelist", "t1"); got != "align:ratelimit:whitelist:t1" {
		t.Fatalf("expected align:ratelimit:whitelist:t1, got %q", got)
	}
	if got := Key("events", "audit"); got != "align:events:audit" {
		t.Fatalf("expected align:events:audit, got %q", got)
	}
}
