package forge

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// createDistArchive packages the universal tree into a compressed tarball
// next to it. format selects the compressor: "zst" or "gz". The archive is
// pure-Go so ownership and numeric ids are deterministic regardless of the
// host's tar.
func createDistArchive(srcDir, outDir, format string) (string, error) {
	base := "swift-driver-dist.tar." + format
	outPath := filepath.Join(outDir, base)

	outFile, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	var zw io.WriteCloser
	switch format {
	case "zst":
		zw, err = zstd.NewWriter(outFile)
		if err != nil {
			return "", fmt.Errorf("failed to create zstd writer: %w", err)
		}
	case "gz":
		zw = pgzip.NewWriter(outFile)
	default:
		return "", configErrorf("unsupported archive format %q (want zst or gz)", format)
	}

	tw := tar.NewWriter(zw)

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", path, err)
			}
		}

		hdr, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Uid = 0
		hdr.Gid = 0
		hdr.Uname = ""
		hdr.Gname = ""
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return outPath, nil
}
