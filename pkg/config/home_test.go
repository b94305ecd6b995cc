package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("WIZARD_RUNNER_HOME", "/custom/path")

	got := GetHome()
	if got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_FallbackToCwd(t *testing.T) {
	ResetHome()
	t.Setenv("WIZARD_RUNNER_HOME", "")

	got := GetHome()

	// Falls back to cwd unless the test binary happens to live in a bin/ directory
	if got == "" {
		t.Error("GetHome() returned empty string")
	}
	if cwd, _ := os.Getwd(); got != cwd {
		t.Logf("GetHome() = %q (binary-relative), cwd = %q", got, cwd)
	}
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("WIZARD_RUNNER_HOME", "/first")

	first := GetHome()

	// A later env change must not affect the cached value
	t.Setenv("WIZARD_RUNNER_HOME", "/second")
	second := GetHome()

	if first != second {
		t.Errorf("GetHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestGetReportsDir(t *testing.T) {
	ResetHome()
	t.Setenv("WIZARD_RUNNER_HOME", "/test/home")

	got := GetReportsDir()
	want := filepath.Join("/test/home", "reports")
	if got != want {
		t.Errorf("GetReportsDir() = %q, want %q", got, want)
	}
}
