package ingest

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafeZipEntry is returned by SafeExtract when a zip entry would
// escape dstDir via an absolute path or ".." traversal (Zip Slip),
// matching original_source's _safe_extract_zip.
var ErrUnsafeZipEntry = errors.New("unsafe_zip_entry")

// SafeExtract extracts the zip at zipPath into dstDir, rejecting any
// entry whose path is absolute or contains a ".." segment before
// extracting anything.
func SafeExtract(zipPath, dstDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("ingest: opening zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		name := filepath.ToSlash(f.Name)
		if filepath.IsAbs(f.Name) || strings.HasPrefix(name, "/") {
			return ErrUnsafeZipEntry
		}
		for _, seg := range strings.Split(name, "/") {
			if seg == ".." {
				return ErrUnsafeZipEntry
			}
		}
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("ingest: creating extract dir: %w", err)
	}

	for _, f := range r.File {
		target := filepath.Join(dstDir, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("ingest: creating dir %s: %w", f.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("ingest: creating parent dir for %s: %w", f.Name, err)
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("ingest: extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// PackageRoot locates the directory within extractedDir that directly
// contains manifest.json, allowing a single top-level wrapper directory
// inside the zip (e.g. "mygame-1.0/manifest.json"), matching
// handle_upload_finish's package_root resolution.
func PackageRoot(extractedDir string) (string, error) {
	if _, err := os.Stat(filepath.Join(extractedDir, "manifest.json")); err == nil {
		return extractedDir, nil
	}
	entries, err := os.ReadDir(extractedDir)
	if err != nil {
		return "", fmt.Errorf("ingest: reading extracted dir: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(extractedDir, entries[0].Name()), nil
	}
	return extractedDir, nil
}
