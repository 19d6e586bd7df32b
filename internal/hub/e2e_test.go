package hub

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/filedrop/internal/pusher"
	"github.com/rickgao/filedrop/internal/receiver"
	"github.com/rickgao/filedrop/internal/registry"
	"github.com/rickgao/filedrop/internal/router"
)

func TestEndToEnd_PushReachesReceiver(t *testing.T) {
	reg := registry.New()
	s := New(testConfig(), reg, router.New(reg, nil, nil), nil, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	dir := t.TempDir()
	rcfg := receiver.DefaultConfig()
	rcfg.HubURL = "ws://" + s.Addr() + "/ws"
	rcfg.Identity = "Laptop"
	rcfg.Dir = dir
	rcfg.ReconnectBaseWait = 50 * time.Millisecond
	rcv, err := receiver.New(rcfg, nil)
	if err != nil {
		t.Fatalf("receiver.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rcv.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	waitFor(t, func() bool { return reg.Len() == 1 })

	client := pusher.NewClient("http://"+s.Addr(), pusher.WithRetries(0, 0))

	online, err := client.Clients(context.Background())
	if err != nil || len(online) != 1 || online[0] != "Laptop" {
		t.Fatalf("Clients() = %v, %v, want [Laptop]", online, err)
	}

	if _, err := client.PushBytes(context.Background(), "Laptop", "notes.txt", []byte("hello")); err != nil {
		t.Fatalf("PushBytes() error = %v", err)
	}
	if _, err := client.PushBytes(context.Background(), "Phone", "notes.txt", []byte("hello")); !errors.Is(err, pusher.ErrTargetNotFound) {
		t.Errorf("PushBytes(Phone) error = %v, want ErrTargetNotFound", err)
	}

	waitFor(t, func() bool { return rcv.Stats().FilesSaved == 1 })

	got, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("saved = %q, want hello", got)
	}
}
