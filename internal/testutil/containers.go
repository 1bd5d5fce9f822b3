// Package testutil holds shared helpers for integration tests that spin
// up S3-compatible storage in containers.
package testutil

import (
	"os"
	"os/exec"
	"strings"

	"github.com/testcontainers/testcontainers-go"
)

// isPodman checks if the current container engine is Podman.
func isPodman() bool {
	// DOCKER_HOST pointing at a podman socket is the common setup on
	// Fedora/RHEL systems.
	if dockerHost := os.Getenv("DOCKER_HOST"); strings.Contains(dockerHost, "podman") {
		return true
	}

	// Podman's docker-compat layer reports "podman" in socket paths,
	// package names, and version strings.
	cmd := exec.Command("docker", "info")
	output, err := cmd.CombinedOutput()
	if err == nil && strings.Contains(strings.ToLower(string(output)), "podman") {
		return true
	}

	return false
}

// DetectContainerProvider returns the testcontainers provider matching
// the locally available container engine, preferring Podman when its
// compat layer is detected and Docker otherwise.
func DetectContainerProvider() testcontainers.ProviderType {
	if isPodman() {
		return testcontainers.ProviderPodman
	}
	return testcontainers.ProviderDocker
}

// ConfigureRyuk disables the Ryuk reaper when Podman is detected, since
// Ryuk often lacks the permissions it needs under Podman. Call once from
// TestMain before starting containers. Returns true if Ryuk was disabled.
func ConfigureRyuk() bool {
	if isPodman() && os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
		return true
	}
	return false
}
