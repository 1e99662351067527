package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mdtablefix/internal/config"
)

func runCLI(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--color", "off"}, args...))
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	err := cmd.ExecuteContext(context.Background())
	printError(&errBuf, err)
	return outBuf.String(), errBuf.String(), exitCode(err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestFixRewritesTablesAndReports(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	writeFile(t, "a.md", "|a|b|\n|---|---|\n|1|2|\n")
	writeFile(t, "b.md", "# clean\n\n| a | b |\n")
	writeFile(t, "node_modules/x.md", "|a|b|\n")

	stdout, stderr, code := runCLI(t)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if got, want := readFile(t, "a.md"), "| a | b |\n| --- | --- |\n| 1 | 2 |\n"; got != want {
		t.Fatalf("a.md = %q, want %q", got, want)
	}
	if got := readFile(t, "node_modules/x.md"); got != "|a|b|\n" {
		t.Fatalf("node_modules file was modified: %q", got)
	}
	if want := "Updated a.md\nSome files were updated.\n"; stdout != want {
		t.Fatalf("stdout = %q, want %q", stdout, want)
	}

	stdout, _, code = runCLI(t)
	if code != exitOK || stdout != "No changes needed.\n" {
		t.Fatalf("second run: code=%d stdout=%q", code, stdout)
	}
}

func TestFixNoFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, "notes.txt", "|a|b|\n")

	stdout, stderr, code := runCLI(t)
	if code != exitNoFiles {
		t.Fatalf("exit code = %d, want %d", code, exitNoFiles)
	}
	if stdout != "" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	if stderr != "No markdown files found.\n" {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestFixReadErrorExitsWithFailure(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, "a.md", "|a|b|\n")
	writeFile(t, "c.md", "|c|d|\n")
	// dangling link: selected by the walk, fails on read
	if err := os.Symlink(filepath.Join(dir, "missing"), "b.md"); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	stdout, stderr, code := runCLI(t)
	if code != exitFailure {
		t.Fatalf("exit code = %d, want %d (stderr %q)", code, exitFailure, stderr)
	}
	if !strings.HasPrefix(stderr, "Error processing b.md: ") {
		t.Fatalf("stderr = %q", stderr)
	}
	if stdout != "Updated a.md\n" {
		t.Fatalf("stdout = %q, want only the files before the failure", stdout)
	}
	if readFile(t, "c.md") != "|c|d|\n" {
		t.Fatal("files after the failure must not be touched")
	}
}

func TestFixCheckMode(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, "a.md", "|a|b|\n")

	stdout, stderr, code := runCLI(t, "--check")
	if code != exitCheckFailed {
		t.Fatalf("exit code = %d, want %d", code, exitCheckFailed)
	}
	if got := readFile(t, "a.md"); got != "|a|b|\n" {
		t.Fatalf("check mode modified the file: %q", got)
	}
	if stdout != "Would update a.md\n" {
		t.Fatalf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "1 file(s) need table normalization.") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestFixJSONOutput(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, "a.md", "text\n|a|b|\n")

	stdout, _, code := runCLI(t, "--format", "json")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	var report jsonReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid json %q: %v", stdout, err)
	}
	if report.Changed != 1 || len(report.Files) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	f := report.Files[0]
	if f.Path != "a.md" || !f.Changed || f.Rows != 1 || len(f.Changes) != 1 || f.Changes[0].Line != 2 {
		t.Fatalf("unexpected file result: %+v", f)
	}
}

func TestFixConfigExtensions(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, config.FileName, "[files]\nextensions = [\"markdown\"]\n")
	writeFile(t, "a.md", "|a|b|\n")
	writeFile(t, "b.markdown", "|a|b|\n")

	_, stderr, code := runCLI(t)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	if readFile(t, "a.md") != "|a|b|\n" {
		t.Fatal("a.md should be ignored by the configured extensions")
	}
	if readFile(t, "b.markdown") != "| a | b |\n" {
		t.Fatal("b.markdown should be normalized")
	}

	_, _, code = runCLI(t, "--no-config")
	if code != exitOK || readFile(t, "a.md") != "| a | b |\n" {
		t.Fatalf("--no-config should use defaults, code=%d", code)
	}
}

func TestFixRejectsBadFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, "a.md", "|a|b|\n")

	cases := [][]string{
		{"--format", "yaml"},
		{"--jobs", "-1"},
		{"--ui", "sometimes"},
		{"--config", "x.toml", "--no-config"},
	}
	for _, args := range cases {
		_, stderr, code := runCLI(t, args...)
		if code != exitFailure || !strings.Contains(stderr, "error:") {
			t.Fatalf("%v: code=%d stderr=%q", args, code, stderr)
		}
	}
	if readFile(t, "a.md") != "|a|b|\n" {
		t.Fatal("file changed despite invalid flags")
	}
}

func TestInitWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	stdout, _, code := runCLI(t, "init", dir)
	if code != exitOK || !strings.Contains(stdout, config.FileName) {
		t.Fatalf("init: code=%d stdout=%q", code, stdout)
	}
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Files.Extensions[0] != ".md" || cfg.Run.Jobs != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	_, stderr, code := runCLI(t, "init", dir)
	if code != exitFailure || !strings.Contains(stderr, "already exists") {
		t.Fatalf("second init: code=%d stderr=%q", code, stderr)
	}
	if _, _, code = runCLI(t, "init", "--force", dir); code != exitOK {
		t.Fatalf("init --force: code=%d", code)
	}
}

func TestCleanRemovesCache(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cacheHome := filepath.Join(dir, "cache")
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	writeFile(t, "a.md", "| a | b |\n")

	if _, _, code := runCLI(t, "--cache"); code != exitOK {
		t.Fatalf("run with cache: code=%d", code)
	}
	if _, err := os.Stat(filepath.Join(cacheHome, "mdtablefix", "clean")); err != nil {
		t.Fatalf("cache not populated: %v", err)
	}

	stdout, _, code := runCLI(t, "clean")
	if code != exitOK || !strings.HasPrefix(stdout, "removed ") {
		t.Fatalf("clean: code=%d stdout=%q", code, stdout)
	}
	if _, err := os.Stat(filepath.Join(cacheHome, "mdtablefix", "clean")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("cache entries still present: %v", err)
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, code := runCLI(t, "version", "--format", "json", "--full")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("invalid json %q: %v", stdout, err)
	}
	if payload.Tool != "mdtablefix" || payload.Version == "" || payload.GitCommit == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != exitOK {
		t.Fatal("nil error must exit 0")
	}
	if exitCode(errors.New("boom")) != exitFailure {
		t.Fatal("plain error must exit 2")
	}
	wrapped := &exitError{code: exitCheckFailed}
	if exitCode(wrapped) != exitCheckFailed {
		t.Fatal("exitError code not honored")
	}
}

func TestFixConfigCannotUnskipNodeModules(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, config.FileName, "[files]\nexclude = []\n")
	writeFile(t, "a.md", "|a|b|\n")
	writeFile(t, "node_modules/pkg/readme.md", "|a|b|\n")

	if _, stderr, code := runCLI(t); code != exitOK {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	if got := readFile(t, "node_modules/pkg/readme.md"); got != "|a|b|\n" {
		t.Fatalf("node_modules file was modified: %q", got)
	}
}
