package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

var receiptTarget = domain.TargetName{Folder: domain.CategoryReceipts, Stem: "receipt_10232025", Ext: ".pdf"}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPlaceCollisionAddsSuffix(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "scan_001.pdf")
	second := filepath.Join(root, "scan_002.pdf")
	writeFile(t, first, "first")
	writeFile(t, second, "second")

	o := New()
	dst1, err := o.Place(context.Background(), first, receiptTarget, root)
	require.NoError(t, err)
	dst2, err := o.Place(context.Background(), second, receiptTarget, root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "receipts", "receipt_10232025.pdf"), dst1)
	assert.Equal(t, filepath.Join(root, "receipts", "receipt_10232025_2.pdf"), dst2)
	assert.Equal(t, "first", readFile(t, dst1))
	assert.Equal(t, "second", readFile(t, dst2))
	assert.NoFileExists(t, first)
	assert.NoFileExists(t, second)
}

func TestPlaceConcurrentSameTargetNeverOverwrites(t *testing.T) {
	root := t.TempDir()
	o := New()

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		src := filepath.Join(root, fmt.Sprintf("scan_%d.pdf", i))
		writeFile(t, src, fmt.Sprintf("content %d", i))
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			results[i], errs[i] = o.Place(context.Background(), src, receiptTarget, root)
		}(i, src)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.False(t, seen[results[i]], "duplicate destination %s", results[i])
		seen[results[i]] = true
		assert.Equal(t, fmt.Sprintf("content %d", i), readFile(t, results[i]))
	}
	entries, err := os.ReadDir(filepath.Join(root, "receipts"))
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestPlaceFallsBackToCopyAcrossDevices(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "IMG_2023.jpg")
	writeFile(t, src, "jpeg bytes")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pictures"), 0o755))
	writeFile(t, filepath.Join(root, "pictures", "img_2023_10232025.jpg"), "older")

	o := New()
	o.link = func(string, string) error { return &os.LinkError{Op: "link", Err: syscall.EXDEV} }

	target := domain.TargetName{Folder: domain.CategoryPictures, Stem: "img_2023_10232025", Ext: ".jpg"}
	dst, err := o.Place(context.Background(), src, target, root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "pictures", "img_2023_10232025_2.jpg"), dst)
	assert.Equal(t, "jpeg bytes", readFile(t, dst))
	assert.Equal(t, "older", readFile(t, filepath.Join(root, "pictures", "img_2023_10232025.jpg")))
	assert.NoFileExists(t, src)
}

func TestPlaceLeavesSourceOnFailure(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "scan.pdf")
	writeFile(t, src, "keep me")
	// A regular file where the category folder should be makes MkdirAll fail.
	writeFile(t, filepath.Join(root, "receipts"), "not a folder")

	_, err := New().Place(context.Background(), src, receiptTarget, root)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrOrganize))
	assert.Equal(t, "keep me", readFile(t, src))
}

func TestPlaceMissingSource(t *testing.T) {
	root := t.TempDir()
	_, err := New().Place(context.Background(), filepath.Join(root, "gone.pdf"), receiptTarget, root)
	assert.True(t, domain.IsKind(err, domain.ErrSourceMissing))
	assert.NoDirExists(t, filepath.Join(root, "receipts"))
}
