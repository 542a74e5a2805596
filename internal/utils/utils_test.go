package utils

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"INFO":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"fatal":   logrus.FatalLevel,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Fatalf("expected error for unsupported level")
	}
}

func TestDBLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "watchbuyer.sqlite")
	l, err := NewDBLock(path, "watchbuyer watch add")
	if err != nil {
		t.Fatalf("NewDBLock: %v", err)
	}
	if !strings.HasSuffix(l.path, "watchbuyer.sqlite.lock") {
		t.Fatalf("unexpected lock path %s", l.path)
	}
	if err := l.Lock(context.Background()); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestDBLockWaitHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchbuyer.sqlite")
	holder, err := NewDBLock(path, "watchbuyer watch seed")
	if err != nil {
		t.Fatalf("NewDBLock: %v", err)
	}
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	waiter, err := NewDBLock(path, "watchbuyer evaluate")
	if err != nil {
		t.Fatalf("NewDBLock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()
	if err := waiter.Lock(ctx); err == nil {
		t.Fatalf("second writer acquired a held lock")
	}

	if err := holder.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := waiter.Lock(context.Background()); err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	if err := waiter.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestGetAbsDBPathDefault(t *testing.T) {
	p, err := GetAbsDBPath("")
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if !strings.HasSuffix(p, filepath.Join(".config", "watchbuyer", "watchbuyer.sqlite")) {
		t.Fatalf("unexpected default path %s", p)
	}
}
