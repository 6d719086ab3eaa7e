package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/google/uuid"
	"github.com/mholt/archives"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

type ExportParams struct {
	Ref      string `pos:"true" help:"Mixtape id, id prefix, or title"`
	Output   string `short:"o" optional:"true" help:"Output bundle path (default: <title>.mixtape)"`
	Password string `short:"p" optional:"true" help:"Password-protect the bundle (AES-256 zip)"`
}

type ImportParams struct {
	File     string `pos:"true" help:"Bundle file to import"`
	Password string `short:"p" optional:"true" help:"Password for encrypted bundles"`
}

type ListParams struct {
	File     string `pos:"true" help:"Bundle file to inspect"`
	Password string `short:"p" optional:"true" help:"Password for encrypted bundles"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "archive",
		Short: "Export and import mixtape bundles",
		Long: `Export mixtapes as single-file bundles and import them back.

A bundle holds the mixtape manifest plus the audio files its local tracks
reference, so a tape recorded on one machine plays on another. Bundles are
gzipped tarballs by default, zip when the output name ends in .zip, and
AES-256 encrypted zip when exported with a password.`,
		SubCmds: []*cobra.Command{
			ExportCmd(),
			ImportCmd(),
			ListCmd(),
		},
	}.ToCobra()
}

func ExportCmd() *cobra.Command {
	return boa.CmdT[ExportParams]{
		Use:   "export",
		Short: "Bundle a mixtape and its audio into a single file",
		Long: `Bundle a mixtape's manifest and local audio files into a single file
that can be imported on another machine.

Tracks with URL sources stay URL references; only local audio is packed.

Examples:
  ferrite archive export "road trip 94"
  ferrite archive export aabb -o trip.mixtape
  ferrite archive export aabb -o trip.zip
  ferrite archive export aabb -p hunter2`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ExportParams, cmd *cobra.Command, args []string) {
			exitCode := RunExport(params, store.Default(), os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func ImportCmd() *cobra.Command {
	return boa.CmdT[ImportParams]{
		Use:   "import",
		Short: "Import a mixtape bundle into the library",
		Long: `Import a mixtape bundle into the library.

The manifest is saved as a library entry and the bundled audio is unpacked
next to the library's mixtapes, with track sources rewritten to the
unpacked locations. Importing a bundle whose mixtape id already exists in
the library creates a copy under a fresh id.

Examples:
  ferrite archive import trip.mixtape
  ferrite archive import -p hunter2 trip.mixtape`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ImportParams, cmd *cobra.Command, args []string) {
			exitCode := RunImport(params, store.Default(), os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func ListCmd() *cobra.Command {
	return boa.CmdT[ListParams]{
		Use:     "list",
		Aliases: []string{"ls", "l"},
		Short:   "Show a bundle's mixtape and packed files",
		Long: `Show a bundle's mixtape summary and packed files without importing it.

Examples:
  ferrite archive list trip.mixtape
  ferrite archive list -p hunter2 trip.mixtape`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ListParams, cmd *cobra.Command, args []string) {
			exitCode := RunList(params, os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func RunExport(params *ExportParams, s *store.Store, stdout, stderr *os.File) int {
	if err := runExport(params, s, stdout); err != nil {
		fmt.Fprintf(stderr, "Error exporting mixtape: %v\n", err)
		return 1
	}
	return 0
}

func RunImport(params *ImportParams, s *store.Store, stdout, stderr *os.File) int {
	if err := runImport(params, s, stdout); err != nil {
		fmt.Fprintf(stderr, "Error importing bundle: %v\n", err)
		return 1
	}
	return 0
}

func RunList(params *ListParams, stdout, stderr *os.File) int {
	if err := runList(params, stdout); err != nil {
		fmt.Fprintf(stderr, "Error reading bundle: %v\n", err)
		return 1
	}
	return 0
}

func runExport(params *ExportParams, s *store.Store, stdout *os.File) error {
	ctx := context.Background()

	m, err := s.Resolve(params.Ref)
	if err != nil {
		return err
	}

	out := params.Output
	if out == "" {
		out = slugify(m.Title) + ".mixtape"
	}
	lower := strings.ToLower(out)

	manifest, audio, err := buildManifest(m)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	if params.Password != "" {
		if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
			return fmt.Errorf("password protection needs a zip bundle (use -o name.zip or the default .mixtape)")
		}
		err = writeEncryptedBundle(out, params.Password, raw, audio)
	} else if strings.HasSuffix(lower, ".zip") {
		err = writeBundle(ctx, archives.Zip{}, out, raw, audio)
	} else {
		err = writeBundle(ctx, archives.CompressedArchive{
			Archival:    archives.Tar{},
			Compression: archives.Gz{},
		}, out, raw, audio)
	}
	if err != nil {
		return err
	}

	title := m.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(stdout, "Exported %s to %s (%d tracks, %d audio files)\n", title, out, m.TrackCount(), len(audio))
	return nil
}

func runImport(params *ImportParams, s *store.Store, stdout *os.File) error {
	ctx := context.Background()

	staging, err := os.MkdirTemp("", "ferrite-import-*")
	if err != nil {
		return fmt.Errorf("cannot create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if params.Password != "" {
		err = extractEncryptedBundle(params.File, params.Password, staging)
	} else {
		err = extractBundle(ctx, params.File, staging)
	}
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(filepath.Join(staging, manifestName))
	if err != nil {
		return fmt.Errorf("not a mixtape bundle: %w", err)
	}
	var m tape.Mixtape
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("corrupt bundle manifest: %w", err)
	}

	// Never clobber an existing mixtape when the same bundle comes in twice.
	if m.ID == "" || s.Exists(m.ID) {
		m.ID = uuid.New().String()
	}

	audioDir := filepath.Join(s.Dir(), "audio", m.ID)
	copied := map[string]bool{}
	relink := func(side []tape.Track) error {
		for i := range side {
			src := side[i].Source
			if src.Kind != tape.SourceLocal || !strings.HasPrefix(src.Path, audioPrefix) {
				continue
			}
			dest := filepath.Join(audioDir, strings.TrimPrefix(src.Path, audioPrefix))
			if !copied[dest] {
				from, err := safeJoin(staging, src.Path)
				if err != nil {
					return err
				}
				if err := copyFile(from, dest); err != nil {
					return fmt.Errorf("bundle is missing audio for %q: %w", side[i].Title, err)
				}
				copied[dest] = true
			}
			side[i].Source.Path = dest
		}
		return nil
	}
	if err := relink(m.SideA); err != nil {
		return err
	}
	if err := relink(m.SideB); err != nil {
		return err
	}

	if err := s.Save(&m); err != nil {
		return err
	}

	title := m.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(stdout, "Imported mixtape %.8s: %s (%d tracks, %d audio files)\n", m.ID, title, m.TrackCount(), len(copied))
	return nil
}

func runList(params *ListParams, stdout *os.File) error {
	m, entries, err := readBundle(context.Background(), params.File, params.Password)
	if err != nil {
		return err
	}

	title := m.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(stdout, "%s  [%.8s]\n", title, m.ID)
	fmt.Fprintf(stdout, "%d tracks (side A: %d, side B: %d), runtime %s\n",
		m.TrackCount(), len(m.SideA), len(m.SideB), common.FormatCounter(m.Runtime()))
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Contents:")
	for _, e := range entries {
		fmt.Fprintf(stdout, "  %10d  %s\n", e.Size, e.Name)
	}
	return nil
}
