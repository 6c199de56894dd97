// Package localfs places organized files into category folders on the local
// filesystem. A destination is claimed atomically (hard link or O_EXCL
// create), so an existing file is never overwritten even when several
// workers or processes race for the same name.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

const maxVariants = 1000

type Organizer struct {
	dirMode  fs.FileMode
	fileMode fs.FileMode
	link     func(oldname, newname string) error
}

func New() *Organizer {
	return &Organizer{dirMode: 0o755, fileMode: 0o644, link: os.Link}
}

// Place moves sourcePath to root/target.Folder, picking the first free name
// among target.Variant(1..). On any failure the source is left in place and
// no partial destination remains.
func (o *Organizer) Place(ctx context.Context, sourcePath string, target domain.TargetName, root string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.WrapError(domain.ErrSourceMissing, "organize", err)
		}
		return "", domain.WrapError(domain.ErrOrganize, "organize", err)
	}
	if !info.Mode().IsRegular() {
		return "", domain.WrapError(domain.ErrOrganize, "organize", fmt.Errorf("%s is not a regular file", sourcePath))
	}

	dir := filepath.Join(root, target.Folder.Folder())
	if err := os.MkdirAll(dir, o.dirMode); err != nil {
		return "", domain.WrapError(domain.ErrOrganize, "create category folder", err)
	}

	useCopy := false
	for n := 1; n <= maxVariants; n++ {
		if err := ctx.Err(); err != nil {
			return "", domain.WrapError(domain.ErrOrganize, "organize", err)
		}
		dst := filepath.Join(dir, target.Variant(n))

		if !useCopy {
			err := o.link(sourcePath, dst)
			switch {
			case err == nil:
				return dst, o.removeSource(sourcePath, dst)
			case errors.Is(err, fs.ErrExist):
				continue
			case errors.Is(err, fs.ErrNotExist):
				return "", domain.WrapError(domain.ErrSourceMissing, "organize", err)
			case linkUnsupported(err):
				useCopy = true
			default:
				return "", domain.WrapError(domain.ErrOrganize, "link into place", err)
			}
		}

		claimed, err := o.copyExclusive(sourcePath, dst, info.Size())
		if err != nil {
			return "", err
		}
		if !claimed {
			continue
		}
		return dst, o.removeSource(sourcePath, dst)
	}
	return "", domain.WrapError(domain.ErrOrganize, "organize", fmt.Errorf("no free name for %s after %d attempts", target.Filename(), maxVariants))
}

// removeSource finishes a move. If the source cannot be removed the new copy
// is dropped again so the file exists in exactly one place.
func (o *Organizer) removeSource(sourcePath, dst string) error {
	if err := os.Remove(sourcePath); err != nil {
		_ = os.Remove(dst)
		if errors.Is(err, fs.ErrNotExist) {
			return domain.WrapError(domain.ErrSourceMissing, "remove source", err)
		}
		return domain.WrapError(domain.ErrOrganize, "remove source", err)
	}
	return nil
}

// copyExclusive creates dst with O_EXCL and copies the source into it. It
// reports false without error when dst already exists.
func (o *Organizer) copyExclusive(sourcePath, dst string, size int64) (bool, error) {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, o.fileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, domain.WrapError(domain.ErrOrganize, "create destination", err)
	}

	fail := func(op string, err error) (bool, error) {
		_ = out.Close()
		_ = os.Remove(dst)
		if errors.Is(err, fs.ErrNotExist) {
			return false, domain.WrapError(domain.ErrSourceMissing, op, err)
		}
		return false, domain.WrapError(domain.ErrOrganize, op, err)
	}

	in, err := os.Open(sourcePath)
	if err != nil {
		return fail("open source", err)
	}
	defer in.Close()

	written, err := io.Copy(out, in)
	if err != nil {
		return fail("copy", err)
	}
	if written != size {
		return fail("copy", fmt.Errorf("short copy: wrote %d of %d bytes", written, size))
	}
	if err := out.Sync(); err != nil {
		return fail("sync destination", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return false, domain.WrapError(domain.ErrOrganize, "close destination", err)
	}
	return true, nil
}

func linkUnsupported(err error) bool {
	return errors.Is(err, syscall.EXDEV) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EMLINK)
}
