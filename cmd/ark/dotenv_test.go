// ABOUTME: Tests for the .env loader: plain and quoted values, comments, export prefixes, no-clobber, XDG config.env.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempEnv(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDotEnvSetsVariables(t *testing.T) {
	path := writeTempEnv(t, "ARK_TEST_ENV_A=hello\nARK_TEST_ENV_B=world\n")
	t.Setenv("ARK_TEST_ENV_A", "")
	t.Setenv("ARK_TEST_ENV_B", "")
	os.Unsetenv("ARK_TEST_ENV_A")
	os.Unsetenv("ARK_TEST_ENV_B")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_A"); got != "hello" {
		t.Errorf("expected ARK_TEST_ENV_A=hello, got %q", got)
	}
	if got := os.Getenv("ARK_TEST_ENV_B"); got != "world" {
		t.Errorf("expected ARK_TEST_ENV_B=world, got %q", got)
	}
}

func TestLoadDotEnvDoubleQuotedValues(t *testing.T) {
	path := writeTempEnv(t, `ARK_TEST_ENV_Q="quoted value"`)
	t.Setenv("ARK_TEST_ENV_Q", "")
	os.Unsetenv("ARK_TEST_ENV_Q")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_Q"); got != "quoted value" {
		t.Errorf("expected ARK_TEST_ENV_Q='quoted value', got %q", got)
	}
}

func TestLoadDotEnvSingleQuotedValues(t *testing.T) {
	path := writeTempEnv(t, `ARK_TEST_ENV_S='single quoted'`)
	t.Setenv("ARK_TEST_ENV_S", "")
	os.Unsetenv("ARK_TEST_ENV_S")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_S"); got != "single quoted" {
		t.Errorf("expected ARK_TEST_ENV_S='single quoted', got %q", got)
	}
}

func TestLoadDotEnvSkipsComments(t *testing.T) {
	path := writeTempEnv(t, "# this is a comment\nARK_TEST_ENV_C=yes\n# another comment\n")
	t.Setenv("ARK_TEST_ENV_C", "")
	os.Unsetenv("ARK_TEST_ENV_C")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_C"); got != "yes" {
		t.Errorf("expected ARK_TEST_ENV_C=yes, got %q", got)
	}
}

func TestLoadDotEnvSkipsEmptyLines(t *testing.T) {
	path := writeTempEnv(t, "\n\nARK_TEST_ENV_E=present\n\n")
	t.Setenv("ARK_TEST_ENV_E", "")
	os.Unsetenv("ARK_TEST_ENV_E")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_E"); got != "present" {
		t.Errorf("expected ARK_TEST_ENV_E=present, got %q", got)
	}
}

func TestLoadDotEnvDoesNotClobberExisting(t *testing.T) {
	path := writeTempEnv(t, "ARK_TEST_ENV_X=from_file")
	t.Setenv("ARK_TEST_ENV_X", "already_set")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_X"); got != "already_set" {
		t.Errorf("expected existing env var to be preserved, got %q", got)
	}
}

func TestLoadDotEnvMissingFileIsNoOp(t *testing.T) {
	loadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDotEnvSkipsEmptyKey(t *testing.T) {
	path := writeTempEnv(t, "=orphan\nARK_TEST_ENV_K=kept\n")
	t.Setenv("ARK_TEST_ENV_K", "")
	os.Unsetenv("ARK_TEST_ENV_K")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_K"); got != "kept" {
		t.Errorf("expected ARK_TEST_ENV_K=kept, got %q", got)
	}
}

func TestLoadDotEnvExportPrefix(t *testing.T) {
	path := writeTempEnv(t, "export ARK_TEST_ENV_EX=exported\n")
	t.Setenv("ARK_TEST_ENV_EX", "")
	os.Unsetenv("ARK_TEST_ENV_EX")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_EX"); got != "exported" {
		t.Errorf("expected ARK_TEST_ENV_EX=exported, got %q", got)
	}
}

func TestLoadDotEnvValueWithEquals(t *testing.T) {
	path := writeTempEnv(t, "ARK_TEST_ENV_EQ=a=b=c\n")
	t.Setenv("ARK_TEST_ENV_EQ", "")
	os.Unsetenv("ARK_TEST_ENV_EQ")

	loadDotEnv(path)

	if got := os.Getenv("ARK_TEST_ENV_EQ"); got != "a=b=c" {
		t.Errorf("expected ARK_TEST_ENV_EQ=a=b=c, got %q", got)
	}
}

func TestLoadDotEnvAutoLoadsXDGConfig(t *testing.T) {
	configDir := t.TempDir()
	arkDir := filepath.Join(configDir, "ark")
	if err := os.MkdirAll(arkDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(arkDir, "config.env"), []byte("ARK_TEST_XDG_AUTO=from_xdg\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("ARK_TEST_XDG_AUTO", "")
	os.Unsetenv("ARK_TEST_XDG_AUTO")

	loadDotEnvAuto()

	if got := os.Getenv("ARK_TEST_XDG_AUTO"); got != "from_xdg" {
		t.Errorf("expected ARK_TEST_XDG_AUTO=from_xdg, got %q", got)
	}
}
