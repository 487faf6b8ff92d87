package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/MJE43/partydle/internal/config"
	"github.com/MJE43/partydle/internal/party"
	"github.com/MJE43/partydle/internal/service"
)

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"allowBabies=true", " partySize = 4 "})
	if err != nil {
		t.Fatalf("parsePairs: %v", err)
	}
	want := map[string]string{"allowBabies": "true", "partySize": "4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, bad := range []string{"allowBabies", "=true"} {
		if _, err := parsePairs([]string{bad}); err == nil {
			t.Errorf("parsePairs(%q) should fail", bad)
		}
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Snorlax", []string{"Snorlax"}},
		{"Snorlax, Raichu (Alolan),,Eevee ", []string{"Snorlax", "Raichu (Alolan)", "Eevee"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func testEnv(t *testing.T) config.Env {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	return config.Env{
		Addr:           "127.0.0.1:0",
		DBPath:         filepath.Join(dir, "partydle.db"),
		Dataset:        filepath.Join("..", "..", "data", "dex.csv"),
		KeyringService: "partydle-cli-test",
		MaxDraws:       250000,
	}
}

// run executes one command and returns what it printed.
func run(t *testing.T, env config.Env, name string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	defer func() { stdout = prev }()
	err := commands[name](context.Background(), env, args)
	return buf.String(), err
}

func mustRun(t *testing.T, env config.Env, name string, args ...string) string {
	t.Helper()
	out, err := run(t, env, name, args...)
	if err != nil {
		t.Fatalf("%s %v: %v", name, args, err)
	}
	return out
}

func TestCommandsEndToEnd(t *testing.T) {
	env := testEnv(t)

	if out := mustRun(t, env, "games"); !strings.Contains(out, "Red/Blue") || !strings.Contains(out, "Sword/Shield") {
		t.Errorf("games output:\n%s", out)
	}
	if out := mustRun(t, env, "pool", "-game", "0"); !strings.Contains(out, "15 of 18 entries eligible") {
		t.Errorf("pool output:\n%s", out)
	}

	out := mustRun(t, env, "generate", "-game", "0", "-size", "2", "-client", "cli", "-nonce", "4")
	first, _, _ := strings.Cut(out, "\n")
	id := strings.TrimPrefix(first, "party ")
	if id == first || id == "" {
		t.Fatalf("generate output:\n%s", out)
	}

	if _, err := run(t, env, "generate", "-game", "0", "-size", "2"); !errors.Is(err, service.ErrUnsolvedParty) {
		t.Errorf("second generate error = %v, want ErrUnsolvedParty", err)
	}

	exported := filepath.Join(t.TempDir(), "party.json")
	mustRun(t, env, "export", "-party", id, "-o", exported)
	f, err := os.Open(exported)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	hidden, err := party.Decode(f)
	f.Close()
	if err != nil {
		t.Fatalf("Decode export: %v", err)
	}

	out = mustRun(t, env, "guess", append([]string{"-party", id}, hidden.Keys()...)...)
	if !strings.Contains(out, "solved in 1 guesses") || strings.Count(out, "GREEN") != 2 {
		t.Errorf("guess output:\n%s", out)
	}

	out = mustRun(t, env, "reveal", "-party", id)
	if !strings.Contains(out, "server seed") || !strings.Contains(out, hidden.Members[0].Name) {
		t.Errorf("reveal output:\n%s", out)
	}
	if out := mustRun(t, env, "verify", "-party", id); !strings.Contains(out, "verified") {
		t.Errorf("verify output:\n%s", out)
	}

	if out := mustRun(t, env, "import", exported); !strings.Contains(out, "imported party") {
		t.Errorf("import output:\n%s", out)
	}
	if out := mustRun(t, env, "history", "-guesses"); !strings.Contains(out, "2 of 2 parties") || !strings.Contains(out, id) {
		t.Errorf("history output:\n%s", out)
	}
}

func TestSettingsCommand(t *testing.T) {
	env := testEnv(t)

	if out := mustRun(t, env, "settings", "set", "partySize=3", "allowBabies=true"); !strings.Contains(out, "partySize=3") || !strings.Contains(out, "allowBabies=true") {
		t.Errorf("settings set output:\n%s", out)
	}
	preset := filepath.Join(t.TempDir(), "rules.yaml")
	mustRun(t, env, "settings", "save", preset)
	mustRun(t, env, "settings", "set", "partySize=5")
	if out := mustRun(t, env, "settings", "load", preset); !strings.Contains(out, "partySize=3") {
		t.Errorf("settings load output:\n%s", out)
	}

	if _, err := run(t, env, "settings", "set", "partySize=9"); err == nil {
		t.Error("settings set partySize=9 should fail")
	}
	if _, err := run(t, env, "settings", "bogus"); err == nil {
		t.Error("unknown settings command should fail")
	}
}

func TestServeStopsWithContext(t *testing.T) {
	env := testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runServe(ctx, env, []string{"-addr", "127.0.0.1:0"}); err != nil {
		t.Errorf("serve: %v", err)
	}
}
