package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/idilsaglam/tada/internal/model"
)

type env struct {
	t      *testing.T
	config string
}

func newEnv(t *testing.T, remote bool) *env {
	t.Helper()
	t.Setenv("TADA_USER", "")
	t.Setenv("TADA_TOKEN", "")
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`config_version: 1
data_dir: %s
store:
  backend: file
sync:
  remote: %t
auth:
  dir: %s
log:
  level: error
`, filepath.Join(dir, "data"), remote, filepath.Join(dir, "auth"))
	if err := os.WriteFile(config, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &env{t: t, config: config}
}

func (e *env) run(args ...string) (int, string, string) {
	e.t.Helper()
	return e.runWithInput("", args...)
}

func (e *env) runWithInput(stdin string, args ...string) (int, string, string) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", e.config}, args...)
	code := Execute(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (e *env) list() model.List {
	e.t.Helper()
	code, out, errOut := e.run("ls", "--json")
	if code != 0 {
		e.t.Fatalf("ls --json exited %d: %s", code, errOut)
	}
	var list model.List
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		e.t.Fatalf("decode %q: %v", out, err)
	}
	return list
}

func TestAddListEditRemove(t *testing.T) {
	e := newEnv(t, false)

	if got := e.list(); len(got) != 0 {
		t.Fatalf("expected empty list on first run, got %+v", got)
	}
	code, out, errOut := e.run("add", "buy", "milk")
	if code != 0 {
		t.Fatalf("add exited %d: %s", code, errOut)
	}
	if !strings.Contains(out, "added #1") {
		t.Fatalf("unexpected add output %q", out)
	}
	if code, _, errOut := e.run("add", "walk dog"); code != 0 {
		t.Fatalf("second add exited %d: %s", code, errOut)
	}

	want := model.List{{ID: 1, Text: "buy milk"}, {ID: 2, Text: "walk dog"}}
	if got := e.list(); !got.Equal(want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if code, _, errOut := e.run("edit", "2", "walk", "the", "dog"); code != 0 {
		t.Fatalf("edit exited %d: %s", code, errOut)
	}
	if code, _, errOut := e.run("rm", "1"); code != 0 {
		t.Fatalf("rm exited %d: %s", code, errOut)
	}
	want = model.List{{ID: 2, Text: "walk the dog"}}
	if got := e.list(); !got.Equal(want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	// ids keep increasing past removed and loaded ones
	if code, out, _ := e.run("add", "call mom"); code != 0 || !strings.Contains(out, "added #3") {
		t.Fatalf("expected id 3, got code=%d out=%q", code, out)
	}
}

func TestApplyActionsFromStdin(t *testing.T) {
	e := newEnv(t, false)
	e.run("add", "buy milk")

	input := `{"type":"ADD_TODO","text":"walk dog"}
{"type":"UPDATE_TODO","item":{"id":1,"text":"buy oat milk"}}
{"type":"ADD_TODO","text":"call mom"}
{"type":"REMOVE_TODO","item":{"id":2,"text":"walk dog"}}
`
	code, out, errOut := e.runWithInput(input, "apply")
	if code != 0 {
		t.Fatalf("apply exited %d: %s", code, errOut)
	}
	if !strings.Contains(out, "applied 4 actions") {
		t.Fatalf("unexpected apply output %q", out)
	}
	want := model.List{{ID: 1, Text: "buy oat milk"}, {ID: 3, Text: "call mom"}}
	if got := e.list(); !got.Equal(want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestApplyRejectsBadInputAtomically(t *testing.T) {
	e := newEnv(t, false)
	e.run("add", "buy milk")

	cases := map[string]string{
		"unknown tag":   `{"type":"ADD_TODO","text":"x"}` + "\n" + `{"type":"TOGGLE_TODO"}`,
		"missing item":  `{"type":"REMOVE_TODO"}`,
		"broken json":   `{"type":"ADD_TODO",`,
		"empty":         "",
		"not an object": `[1,2]`,
	}
	for name, input := range cases {
		code, _, errOut := e.runWithInput(input, "apply")
		if code != 2 {
			t.Errorf("%s: expected exit 2, got %d (%s)", name, code, errOut)
		}
	}
	want := model.List{{ID: 1, Text: "buy milk"}}
	if got := e.list(); !got.Equal(want) {
		t.Fatalf("rejected input must not change the list, got %+v", got)
	}
}

func TestListPanelAndFilter(t *testing.T) {
	e := newEnv(t, false)
	e.run("add", "buy milk")
	e.run("add", "walk dog")

	code, out, errOut := e.run("ls")
	if code != 0 {
		t.Fatalf("ls exited %d: %s", code, errOut)
	}
	for _, want := range []string{"Todos", "buy milk", "walk dog", "new item"} {
		if !strings.Contains(out, want) {
			t.Fatalf("ls output missing %q:\n%s", want, out)
		}
	}

	code, out, errOut = e.run("ls", "--json", "--filter", `text contains "milk"`)
	if code != 0 {
		t.Fatalf("filtered ls exited %d: %s", code, errOut)
	}
	var got model.List
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Text != "buy milk" {
		t.Fatalf("unexpected filtered items %+v", got)
	}

	if code, _, _ := e.run("ls", "--filter", "text +"); code != 2 {
		t.Fatalf("bad filter: expected exit 2, got %d", code)
	}
}

func TestUsageErrors(t *testing.T) {
	e := newEnv(t, false)
	cases := [][]string{
		{},
		{"nope"},
		{"add"},
		{"edit", "1"},
		{"rm"},
		{"rm", "abc"},
		{"rm", "7"},
		{"ls", "--bogus"},
		{"auth"},
	}
	for _, args := range cases {
		if code, _, _ := e.run(args...); code != 2 {
			t.Errorf("%v: expected exit 2, got %d", args, code)
		}
	}
}

func TestRemoteModeMissingDocument(t *testing.T) {
	e := newEnv(t, true)

	code, _, errOut := e.run("ls")
	if code != 1 {
		t.Fatalf("expected exit 1 for a missing document, got %d", code)
	}
	if !strings.Contains(errOut, "todo init") {
		t.Fatalf("expected init hint, got %q", errOut)
	}
	if code, _, _ := e.run("add", "x"); code != 1 {
		t.Fatalf("add must fail before the document exists, got %d", code)
	}

	if code, out, _ := e.run("init"); code != 0 || !strings.Contains(out, "initialized") {
		t.Fatalf("init: code=%d out=%q", code, out)
	}
	if code, out, _ := e.run("init"); code != 0 || !strings.Contains(out, "already initialized") {
		t.Fatalf("second init: code=%d out=%q", code, out)
	}
	if code, _, errOut := e.run("add", "buy milk"); code != 0 {
		t.Fatalf("add after init exited %d: %s", code, errOut)
	}
	if got := e.list(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected list %+v", got)
	}
}

func TestAuthCommands(t *testing.T) {
	e := newEnv(t, false)

	code, out, _ := e.run("auth", "status")
	if code != 0 || !strings.Contains(out, "not logged in") {
		t.Fatalf("status before login: code=%d out=%q", code, out)
	}
	if code, _, _ := e.run("auth", "whoami"); code != 2 {
		t.Fatalf("whoami without identity: expected 2, got %d", code)
	}

	if code, out, _ := e.run("auth", "login", "--user", "alice"); code != 0 || !strings.Contains(out, "alice") {
		t.Fatalf("login: code=%d out=%q", code, out)
	}
	code, out, _ = e.run("auth", "whoami")
	if code != 0 || !strings.Contains(out, "user: alice") {
		t.Fatalf("whoami: code=%d out=%q", code, out)
	}

	code, out, _ = e.run("auth", "whoami", "--qr")
	if code != 0 || !strings.ContainsAny(out, "▀▄█") {
		t.Fatalf("whoami --qr: code=%d out=%q", code, out)
	}

	// lists are per user
	e.run("add", "alice item")
	if got := e.list(); len(got) != 1 {
		t.Fatalf("expected alice's list, got %+v", got)
	}

	if code, out, _ := e.run("auth", "logout"); code != 0 || !strings.Contains(out, "logged out") {
		t.Fatalf("logout: code=%d out=%q", code, out)
	}
	if code, out, _ := e.run("auth", "login"); code != 0 || !strings.Contains(out, "signed in as") {
		t.Fatalf("anonymous login: code=%d out=%q", code, out)
	}
	if got := e.list(); len(got) != 0 {
		t.Fatalf("anonymous user must start empty, got %+v", got)
	}
}

func TestAuthEnvOverride(t *testing.T) {
	e := newEnv(t, false)
	t.Setenv("TADA_USER", "bob")

	code, out, _ := e.run("auth", "status")
	if code != 0 || !strings.Contains(out, "source: env") {
		t.Fatalf("status: code=%d out=%q", code, out)
	}
	if code, out, _ := e.run("auth", "logout"); code != 0 || !strings.Contains(out, "nothing to delete") {
		t.Fatalf("logout: code=%d out=%q", code, out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("TADA_USER", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	var stdout, stderr bytes.Buffer

	if code := Execute(context.Background(), []string{"--config", path, "config", "init"}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("config init exited %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if code := Execute(context.Background(), []string{"--config", path, "config", "init"}, nil, &stdout, &stderr); code != 1 {
		t.Fatalf("second init without --force: expected 1, got %d", code)
	}

	stdout.Reset()
	if code := Execute(context.Background(), []string{"--config", path, "config", "show"}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("config show exited %d: %s", code, stderr.String())
	}
	for _, want := range []string{"config_version: 1", "backend: file", "remote: false"} {
		if !strings.Contains(stdout.String(), want) {
			t.Fatalf("config show missing %q:\n%s", want, stdout.String())
		}
	}
}
