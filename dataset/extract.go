package dataset

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/patrikhermansson/annprep/core"
	"github.com/rs/zerolog/log"
)

// ExtractTarGz unpacks a gzip-compressed tar archive into dir.
// Entries that would land outside dir are rejected.
func ExtractTarGz(archive, dir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream %s: %w", archive, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", archive, err)
		}
		if !filepath.IsLocal(hdr.Name) {
			return fmt.Errorf("%w: %s", core.ErrUnsafeArchivePath, hdr.Name)
		}
		if err := checkParents(dir, hdr.Name); err != nil {
			return err
		}
		target := filepath.Join(dir, hdr.Name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			resolved := filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)
			if filepath.IsAbs(hdr.Linkname) || !filepath.IsLocal(resolved) {
				return fmt.Errorf("%w: %s -> %s", core.ErrUnsafeArchivePath, hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			log.Debug().Msgf("Skipping %s (type %c) in %s", hdr.Name, hdr.Typeflag, archive)
		}
	}
}

// checkParents rejects an entry whose parent directories inside dir include a
// symlink, so links extracted earlier cannot redirect later writes.
func checkParents(dir, name string) error {
	parent := filepath.Dir(filepath.Clean(name))
	if parent == "." {
		return nil
	}
	p := dir
	for _, part := range strings.Split(parent, string(filepath.Separator)) {
		p = filepath.Join(p, part)
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s passes through symlink %s", core.ErrUnsafeArchivePath, name, p)
		}
	}
	return nil
}

func writeEntry(r io.Reader, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	// never write through a link left by an earlier entry
	if info, err := os.Lstat(target); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return err
		}
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return out.Close()
}
