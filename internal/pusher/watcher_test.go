package pusher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type uploadLog struct {
	mu    sync.Mutex
	files map[string]string
}

func (l *uploadLog) get(name string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.files[name]
	return v, ok
}

func (l *uploadLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.files)
}

func fakeUploadHub(t *testing.T, status int) (*httptest.Server, *uploadLog) {
	log := &uploadLog{files: make(map[string]string)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)

		if status != http.StatusAccepted {
			w.WriteHeader(status)
			return
		}

		log.mu.Lock()
		log.files[fh.Filename] = string(data)
		log.mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"target":"Laptop","filename":"` + fh.Filename + `"}`))
	}))
	t.Cleanup(server.Close)
	return server, log
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func runWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Error("Run() did not return after cancel")
		}
	})
}

func TestWatcher_PushesAndMovesNewFiles(t *testing.T) {
	server, uploads := fakeUploadHub(t, http.StatusAccepted)

	outbox := t.TempDir()
	sent := filepath.Join(t.TempDir(), "sent")

	// Present before the watcher starts: picked up by the initial sweep.
	os.WriteFile(filepath.Join(outbox, "early.txt"), []byte("early"), 0o644)

	w, err := NewWatcher(WatchConfig{
		Dir:      outbox,
		SentDir:  sent,
		Target:   "Laptop",
		Debounce: 20 * time.Millisecond,
	}, NewClient(server.URL, WithRetries(0, time.Millisecond)), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	runWatcher(t, w)

	// Give fsnotify a moment to arm before writing.
	time.Sleep(50 * time.Millisecond)
	os.WriteFile(filepath.Join(outbox, "photo.png"), []byte("png bytes"), 0o644)
	os.WriteFile(filepath.Join(outbox, ".hidden"), []byte("skip"), 0o644)
	os.WriteFile(filepath.Join(outbox, "big.iso.part"), []byte("skip"), 0o644)

	waitFor(t, func() bool { return w.Stats().Moved == 2 })

	if got, _ := uploads.get("photo.png"); got != "png bytes" {
		t.Errorf("uploaded photo.png = %q", got)
	}
	if got, _ := uploads.get("early.txt"); got != "early" {
		t.Errorf("uploaded early.txt = %q", got)
	}
	if uploads.len() != 2 {
		t.Errorf("uploads = %d, want 2", uploads.len())
	}

	if _, err := os.Stat(filepath.Join(sent, "photo.png")); err != nil {
		t.Errorf("photo.png not in sent dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outbox, "photo.png")); !os.IsNotExist(err) {
		t.Errorf("photo.png still in outbox")
	}
	if _, err := os.Stat(filepath.Join(outbox, ".hidden")); err != nil {
		t.Errorf(".hidden should stay in outbox: %v", err)
	}
}

func TestWatcher_OfflineTargetLeavesFile(t *testing.T) {
	server, _ := fakeUploadHub(t, http.StatusNotFound)

	outbox := t.TempDir()
	w, err := NewWatcher(WatchConfig{
		Dir:      outbox,
		SentDir:  filepath.Join(t.TempDir(), "sent"),
		Target:   "Ghost",
		Debounce: 10 * time.Millisecond,
	}, NewClient(server.URL, WithRetries(0, time.Millisecond)), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	runWatcher(t, w)

	time.Sleep(50 * time.Millisecond)
	os.WriteFile(filepath.Join(outbox, "x.txt"), []byte("x"), 0o644)

	waitFor(t, func() bool { return w.Stats().Failed >= 1 })

	if _, err := os.Stat(filepath.Join(outbox, "x.txt")); err != nil {
		t.Errorf("x.txt should remain in outbox: %v", err)
	}
	if w.Stats().Moved != 0 {
		t.Errorf("Moved = %d, want 0", w.Stats().Moved)
	}
}

func TestNewWatcher_Validate(t *testing.T) {
	c := NewClient("http://hub")
	if _, err := NewWatcher(WatchConfig{Target: "Laptop"}, c, nil); err == nil {
		t.Error("NewWatcher() without dir should fail")
	}
	if _, err := NewWatcher(WatchConfig{Dir: t.TempDir()}, c, nil); err == nil {
		t.Error("NewWatcher() without target should fail")
	}
}

func TestSkipName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.png", false},
		{"report.PDF", false},
		{".DS_Store", true},
		{"notes.txt~", true},
		{"movie.mkv.part", true},
		{"setup.exe.crdownload", true},
		{"draft.TMP", true},
	}

	for _, tt := range tests {
		if got := skipName(tt.name); got != tt.want {
			t.Errorf("skipName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
