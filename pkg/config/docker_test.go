package config

import (
	"testing"
)

func TestResolveHostForDocker_RemoteHostsPassThrough(t *testing.T) {
	// Non-loopback hosts are never rewritten, containerized or not.
	for _, host := range []string{
		"db.example.com",
		"10.0.12.7",
		"host.docker.internal",
	} {
		if got := ResolveHostForDocker(host); got != host {
			t.Errorf("ResolveHostForDocker(%q) = %q, want unchanged", host, got)
		}
	}
}

func TestResolveHostForDocker_Loopback(t *testing.T) {
	// Loopback rewriting depends on whether the test itself runs in a
	// container, so assert consistency with the detector.
	for _, host := range []string{"localhost", "127.0.0.1"} {
		got := ResolveHostForDocker(host)
		if IsRunningInDocker() {
			if got != "host.docker.internal" {
				t.Errorf("ResolveHostForDocker(%q) = %q, want host.docker.internal", host, got)
			}
		} else if got != host {
			t.Errorf("ResolveHostForDocker(%q) = %q, want unchanged", host, got)
		}
	}
}

func TestIsRunningInDocker_Stable(t *testing.T) {
	// The cached result must not flip between calls.
	first := IsRunningInDocker()
	for i := 0; i < 3; i++ {
		if IsRunningInDocker() != first {
			t.Fatal("IsRunningInDocker() changed between calls")
		}
	}
}
