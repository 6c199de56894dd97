package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("scan"), 0o644))
}

func TestEligible(t *testing.T) {
	root := "/scans"
	cases := map[string]bool{
		"/scans/scan_001.pdf":                   true,
		"/scans/IMG_2023.JPG":                   true,
		"/scans/notes.txt":                      false,
		"/scans/.scan.pdf":                      false,
		"/scans/~lock.pdf":                      false,
		"/scans/receipts/walmart.pdf":           false,
		"/scans/walmart_receipt_10232025.pdf":   false,
		"/scans/walmart_receipt_10232025_2.pdf": false,
		"/scans/batch_99999999.pdf":             true,
	}
	for path, want := range cases {
		assert.Equal(t, want, Eligible(root, path), path)
	}
}

func TestScanIsNonRecursiveAndSorted(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "b.pdf"))
	write(t, filepath.Join(root, "a.png"))
	write(t, filepath.Join(root, "readme.txt"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "receipts"), 0o755))
	write(t, filepath.Join(root, "receipts", "c.pdf"))

	got, err := NewScanner(root, nil).Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, filepath.Join(root, "a.png"), got[0].Path)
	assert.Equal(t, filepath.Join(root, "b.pdf"), got[1].Path)
	assert.Equal(t, ".png", got[0].Extension)
}

func TestScanTwiceAfterOrganizingFindsNothing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "receipts"), 0o755))
	write(t, filepath.Join(root, "receipts", "walmart_receipt_10232025.pdf"))
	write(t, filepath.Join(root, "walmart_receipt_10232025_2.pdf"))

	scanner := NewScanner(root, nil)
	for i := 0; i < 2; i++ {
		got, err := scanner.Scan(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestWatcherDebouncesEvents(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, 50*time.Millisecond, nil)
	out := make(chan domain.ScanCandidate, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Feed(ctx, out) }()
	<-w.Ready()

	path := filepath.Join(root, "scan.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.WriteString("page data ")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, f.Close())
	write(t, filepath.Join(root, "ignored.txt"))

	select {
	case c := <-out:
		assert.Equal(t, path, c.Path)
	case <-time.After(3 * time.Second):
		t.Fatalf("no candidate from watcher")
	}

	select {
	case c := <-out:
		t.Fatalf("unexpected second candidate %s", c.Path)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherCanBeRestarted(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, 30*time.Millisecond, nil)
	out := make(chan domain.ScanCandidate, 4)

	for _, name := range []string{"first.pdf", "second.pdf"} {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Feed(ctx, out) }()
		select {
		case <-w.Ready():
		case <-time.After(3 * time.Second):
			t.Fatalf("watch for %s never became ready", name)
		}

		path := filepath.Join(root, name)
		write(t, path)
		select {
		case c := <-out:
			assert.Equal(t, path, c.Path)
		case <-time.After(3 * time.Second):
			t.Fatalf("no candidate for %s", name)
		}

		cancel()
		require.NoError(t, <-done)
	}
}

func TestWatcherRejectsConcurrentFeed(t *testing.T) {
	w := NewWatcher(t.TempDir(), 30*time.Millisecond, nil)
	out := make(chan domain.ScanCandidate, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Feed(ctx, out) }()
	<-w.Ready()

	require.Error(t, w.Feed(context.Background(), out))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherDropsFilesRemovedBeforeSettling(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, 50*time.Millisecond, nil)
	out := make(chan domain.ScanCandidate, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Feed(ctx, out) }()
	<-w.Ready()

	path := filepath.Join(root, "temp.pdf")
	write(t, path)
	require.NoError(t, os.Remove(path))

	select {
	case c := <-out:
		t.Fatalf("unexpected candidate %s", c.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBothModeScansExistingAndWatches(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.pdf")
	write(t, existing)

	src := NewSource(domain.ModeBoth, root, 30*time.Millisecond, nil)
	out := make(chan domain.ScanCandidate, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Feed(ctx, out) }()

	select {
	case c := <-out:
		assert.Equal(t, existing, c.Path)
	case <-time.After(3 * time.Second):
		t.Fatalf("existing file not scanned")
	}

	fresh := filepath.Join(root, "new.jpg")
	write(t, fresh)
	select {
	case c := <-out:
		assert.Equal(t, fresh, c.Path)
	case <-time.After(3 * time.Second):
		t.Fatalf("new file not watched")
	}

	cancel()
	require.NoError(t, <-done)
}
