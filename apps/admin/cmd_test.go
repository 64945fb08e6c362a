package main

import (
	"database/sql"
	"io"
	"io/fs"
	"log"
	"testing"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/quota"
	dummydb "github.com/krodrigz/matricula/storage/database/dummy"
	testutil "github.com/krodrigz/matricula/tests"
)

func init() {
	logger = log.New(io.Discard, "", 0)
}

func newTestCLI(t *testing.T) *commandLine {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	validate, _ := core.NewValidator()
	quotaSvc := quota.NewService(
		dummydb.NewQuotaRepository(db),
		dummydb.NewApplicationRepository(db),
		"2025-2026",
		validate,
	)
	return &commandLine{conf: testutil.Config(), quotaSvc: quotaSvc}
}

func TestCommandLine_run_help(t *testing.T) {
	cli := newTestCLI(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"admin"}},
		{"unknown command", []string{"admin", "frobnicate"}},
		{"migrate without subcommand", []string{"admin", "migrate"}},
		{"mktoken without user", []string{"admin", "mktoken"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(tt.args); err != errHelp {
				t.Errorf("run(%v) error = %v, want errHelp", tt.args, err)
			}
		})
	}
}

func TestCommandLine_migrate(t *testing.T) {
	type call struct {
		command string
		dir     string
		args    []string
	}
	var got call
	orig := gooseRunFunc
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		got = call{command: command, dir: dir, args: args}
		return nil
	}
	defer func() { gooseRunFunc = orig }()

	cli := newTestCLI(t)
	if err := cli.run([]string{"admin", "migrate", "up"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got.command != "up" || got.dir != "migrations" || len(got.args) != 0 {
		t.Errorf("goose call = %+v", got)
	}

	if err := cli.run([]string{"admin", "migrate", "down-to", "3"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got.command != "down-to" || len(got.args) != 1 || got.args[0] != "3" {
		t.Errorf("goose call = %+v", got)
	}
}

func TestCommandLine_seedQuotas(t *testing.T) {
	cli := newTestCLI(t)
	if err := cli.run([]string{"admin", "seedquotas"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	rows, err := cli.quotaSvc.All(cliActor)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(rows) != 66 {
		t.Errorf("got %d quota rows, want 66", len(rows))
	}

	// idempotent
	if err := cli.run([]string{"admin", "seedquotas"}); err != nil {
		t.Fatalf("run() again error = %v", err)
	}
	if rows, err = cli.quotaSvc.All(cliActor); err != nil || len(rows) != 66 {
		t.Errorf("got %d quota rows after rerun (err %v), want 66", len(rows), err)
	}
}

func TestCommandLine_mkToken(t *testing.T) {
	cli := newTestCLI(t)
	if err := cli.run([]string{"admin", "mktoken", "-user", "u-1", "-roles", "admin, secretaria"}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if err := cli.run([]string{"admin", "mktoken", "-user", "u-1"}); err != nil {
		t.Fatalf("run() without roles error = %v", err)
	}
}
