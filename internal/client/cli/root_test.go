package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGetStatus_Empty(t *testing.T) {
	a := &App{}
	got := a.getStatus()
	if got != "" {
		t.Fatalf("want empty status, got %q", got)
	}
}

func TestGetStatus_WithUsernameOnly(t *testing.T) {
	a := &App{userName: "alice"}
	got := a.getStatus()
	want := "(alice )"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestGetStatus_WithUsernameAndMode(t *testing.T) {
	a := &App{userName: "alice", Mode: ModeOffline}
	got := a.getStatus()
	want := "(alice offline)"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestRoot_ProbesAndExits(t *testing.T) {
	capturePrintln(t)

	f := &fakeAuth{pingErr: errors.New("down")}
	a, _ := newTestApp(f)
	a.reader = bufio.NewReader(strings.NewReader("help\nquit\n"))

	done := make(chan struct{})
	go func() {
		a.Root(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Root did not return")
	}
	if a.mode() != ModeOffline {
		t.Fatalf("want offline mode after failed ping, got %q", a.mode())
	}
}

func TestRun_ClosesService(t *testing.T) {
	capturePrintln(t)

	f := &fakeAuth{}
	a, _ := newTestApp(f)
	a.reader = bufio.NewReader(strings.NewReader(""))

	a.Run(context.Background())

	if !f.closed {
		t.Fatalf("service must be closed after Run")
	}
	if a.mode() != ModeOnline {
		t.Fatalf("want online mode, got %q", a.mode())
	}
}
