package signal

import (
	"testing"
	"time"
)

func TestRateLimiterCapsPerUser(t *testing.T) {
	rl := NewMessageRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("alice") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if rl.Allow("alice") {
		t.Fatalf("fourth attempt inside the window should be denied")
	}
	// Other identities have their own window.
	if !rl.Allow("bob") {
		t.Fatalf("bob should not be affected by alice's limit")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewMessageRateLimiter(2, 30*time.Millisecond)

	if !rl.Allow("alice") || !rl.Allow("alice") {
		t.Fatalf("first two attempts should be allowed")
	}
	if rl.Allow("alice") {
		t.Fatalf("third attempt should be denied")
	}

	time.Sleep(40 * time.Millisecond)
	if !rl.Allow("alice") {
		t.Fatalf("attempt after the window expired should be allowed")
	}
}
