package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mholt/archives"
	"github.com/yeka/zip"

	"github.com/gigurra/ferrite/cmd/deck/tape"
)

// A bundle is a single-file export of a mixtape: a manifest.json holding the
// mixtape metadata plus the audio files its local tracks reference, stored
// under audio/. Bundles are gzipped tarballs by default, zip when the output
// name says so, and AES-256 encrypted zip when a password is given.

const (
	manifestName = "manifest.json"
	audioPrefix  = "audio/"
)

type bundleEntry struct {
	Name string
	Size int64
}

// buildManifest deep-copies m with every local source path rewritten to its
// in-bundle location, and returns the disk-path to bundle-path map of audio
// files to pack alongside the manifest. Tracks sharing a file share an entry.
func buildManifest(m *tape.Mixtape) (*tape.Mixtape, map[string]string, error) {
	out := *m
	out.SideA = append([]tape.Track(nil), m.SideA...)
	out.SideB = append([]tape.Track(nil), m.SideB...)

	files := map[string]string{}
	seen := map[string]string{}
	n := 0

	rewrite := func(side []tape.Track) error {
		for i := range side {
			if side[i].Source.Kind != tape.SourceLocal {
				continue
			}
			abs, err := filepath.Abs(side[i].Source.Path)
			if err != nil {
				return fmt.Errorf("invalid track path %s: %w", side[i].Source.Path, err)
			}
			if _, err := os.Stat(abs); err != nil {
				return fmt.Errorf("cannot access track audio: %w", err)
			}
			name, ok := seen[abs]
			if !ok {
				n++
				name = fmt.Sprintf("%s%02d-%s", audioPrefix, n, filepath.Base(abs))
				seen[abs] = name
				files[abs] = name
			}
			side[i].Source.Path = name
		}
		return nil
	}

	if err := rewrite(out.SideA); err != nil {
		return nil, nil, err
	}
	if err := rewrite(out.SideB); err != nil {
		return nil, nil, err
	}
	return &out, files, nil
}

// writeBundle packs the manifest and audio files into outPath using the
// given format (tar.gz or plain zip).
func writeBundle(ctx context.Context, format archives.Archiver, outPath string, manifest []byte, audio map[string]string) error {
	staged, err := os.CreateTemp("", "ferrite-manifest-*.json")
	if err != nil {
		return fmt.Errorf("cannot stage manifest: %w", err)
	}
	defer os.Remove(staged.Name())
	if _, err := staged.Write(manifest); err != nil {
		staged.Close()
		return fmt.Errorf("cannot stage manifest: %w", err)
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("cannot stage manifest: %w", err)
	}

	fileMap := map[string]string{staged.Name(): manifestName}
	for disk, name := range audio {
		fileMap[disk] = name
	}
	files, err := archives.FilesFromDisk(ctx, nil, fileMap)
	if err != nil {
		return fmt.Errorf("failed to collect bundle files: %w", err)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("cannot create bundle: %w", err)
	}
	defer outFile.Close()

	if err := format.Archive(ctx, outFile, files); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	return nil
}

// writeEncryptedBundle packs the manifest and audio files into an AES-256
// encrypted zip at outPath.
func writeEncryptedBundle(outPath, password string, manifest []byte, audio map[string]string) error {
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("cannot create bundle: %w", err)
	}
	defer outFile.Close()

	zw := zip.NewWriter(outFile)
	defer zw.Close()

	w, err := zw.Encrypt(manifestName, password, zip.AES256Encryption)
	if err == nil {
		_, err = w.Write(manifest)
	}
	if err != nil {
		os.Remove(outPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	for disk, name := range audio {
		if err := addEncryptedFile(zw, disk, name, password); err != nil {
			os.Remove(outPath)
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
	}
	return nil
}

func addEncryptedFile(zw *zip.Writer, diskPath, name, password string) error {
	w, err := zw.Encrypt(name, password, zip.AES256Encryption)
	if err != nil {
		return err
	}
	f, err := os.Open(diskPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// extractBundle unpacks a tar.gz or plain zip bundle into destDir. The
// format is detected from the file contents, not the name.
func extractBundle(ctx context.Context, bundlePath, destDir string) error {
	f, err := os.Open(bundlePath)
	if err != nil {
		return fmt.Errorf("cannot open bundle: %w", err)
	}
	defer f.Close()

	format, reader, err := archives.Identify(ctx, bundlePath, f)
	if err != nil {
		return fmt.Errorf("cannot identify bundle format: %w", err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("unsupported bundle format")
	}

	// Zip needs a seekable reader, so hand it the file itself.
	var in io.Reader = reader
	if _, isZip := format.(archives.Zip); isZip {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		in = f
	}

	err = extractor.Extract(ctx, in, func(ctx context.Context, fi archives.FileInfo) error {
		dest, err := safeJoin(destDir, fi.NameInArchive)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return os.MkdirAll(dest, 0755)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		src, err := fi.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("cannot extract bundle (pass -p if it is password-protected): %w", err)
	}
	return nil
}

// extractEncryptedBundle unpacks a password-protected zip bundle into destDir.
func extractEncryptedBundle(bundlePath, password, destDir string) error {
	zr, err := zip.OpenReader(bundlePath)
	if err != nil {
		return fmt.Errorf("cannot open bundle: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.IsEncrypted() {
			f.SetPassword(password)
		}
		dest, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("cannot read %s (wrong password?): %w", f.Name, err)
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		out.Close()
		rc.Close()
		if err != nil {
			return fmt.Errorf("cannot read %s (wrong password?): %w", f.Name, err)
		}
	}
	return nil
}

// readBundle parses a bundle's manifest and lists its entries without
// unpacking anything to disk.
func readBundle(ctx context.Context, bundlePath, password string) (*tape.Mixtape, []bundleEntry, error) {
	var manifest []byte
	var entries []bundleEntry

	collect := func(name string, size int64, open func() (io.ReadCloser, error)) error {
		entries = append(entries, bundleEntry{Name: name, Size: size})
		if filepath.Clean(name) != manifestName {
			return nil
		}
		rc, err := open()
		if err != nil {
			return fmt.Errorf("cannot read manifest: %w", err)
		}
		defer rc.Close()
		manifest, err = io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("cannot read manifest: %w", err)
		}
		return nil
	}

	if password != "" {
		zr, err := zip.OpenReader(bundlePath)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open bundle: %w", err)
		}
		defer zr.Close()
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			if f.IsEncrypted() {
				f.SetPassword(password)
			}
			err := collect(f.Name, int64(f.UncompressedSize64), func() (io.ReadCloser, error) {
				return f.Open()
			})
			if err != nil {
				return nil, nil, err
			}
		}
	} else {
		f, err := os.Open(bundlePath)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open bundle: %w", err)
		}
		defer f.Close()

		format, reader, err := archives.Identify(ctx, bundlePath, f)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot identify bundle format: %w", err)
		}
		extractor, ok := format.(archives.Extractor)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported bundle format")
		}
		var in io.Reader = reader
		if _, isZip := format.(archives.Zip); isZip {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return nil, nil, err
			}
			in = f
		}
		err = extractor.Extract(ctx, in, func(ctx context.Context, fi archives.FileInfo) error {
			if fi.IsDir() {
				return nil
			}
			return collect(fi.NameInArchive, fi.Size(), func() (io.ReadCloser, error) {
				return fi.Open()
			})
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cannot read bundle (pass -p if it is password-protected): %w", err)
		}
	}

	if manifest == nil {
		return nil, nil, fmt.Errorf("not a mixtape bundle: no %s entry", manifestName)
	}
	var m tape.Mixtape
	if err := json.Unmarshal(manifest, &m); err != nil {
		return nil, nil, fmt.Errorf("corrupt bundle manifest: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &m, entries, nil
}

// safeJoin joins name under root and rejects entries that would escape it.
func safeJoin(root, name string) (string, error) {
	dest, err := filepath.Abs(filepath.Join(root, filepath.Clean(name)))
	if err != nil {
		return "", fmt.Errorf("invalid bundle entry: %s", name)
	}
	cleanRoot := filepath.Clean(root)
	if dest != cleanRoot && !strings.HasPrefix(dest, cleanRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid bundle entry: %s", name)
	}
	return dest, nil
}

func copyFile(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return err
	}
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(to)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// slugify turns a mixtape title into a safe default file name.
func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "mixtape"
	}
	return s
}
