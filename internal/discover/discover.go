// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover builds the ordered work list for a pipeline run from the
// input directory and, optionally, prior-run archive folders.
// Implements: prd001-discovery (R1-R4);
//
//	docs/ARCHITECTURE § Discovery.
package discover

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/medscan/internal/manifest"
	"github.com/pdiddy/medscan/pkg/types"
)

// Classify maps a filename to its item kind by extension, case-insensitive.
func Classify(name string) types.ItemKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return types.KindTextRecord
	case ".jpg", ".jpeg", ".png":
		return types.KindImage
	default:
		return types.KindUnsupported
	}
}

// IsArchiveFolder reports whether dir is a valid archive folder: a
// directory containing both a SKILL.md manifest and a plaintext report.
func IsArchiveFolder(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, f := range []string{manifest.ManifestFile, manifest.ReportFile} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return false
		}
	}
	return true
}

// Discover resets state and fills its work list: regular files from
// cfg.InputDir sorted ascending by name, then (when cfg.ScanArchives is
// set) archive folders from cfg.OutputDir sorted descending by name so
// timestamp-prefixed folders surface most-recent-first. A missing input
// directory yields zero files, not an error. Progress lines go to w.
func Discover(state *types.RunState, cfg types.DiscoveryConfig, w io.Writer) error {
	state.Reset()

	files, err := inputFiles(cfg.InputDir)
	if err != nil {
		return err
	}

	var archives []string
	if cfg.ScanArchives {
		archives, err = archiveFolders(cfg.OutputDir)
		if err != nil {
			return err
		}
	}

	// Plain files first, archives second.
	for _, name := range files {
		state.Items = append(state.Items, types.Item{Name: name, Kind: Classify(name)})
	}
	for _, name := range archives {
		state.Items = append(state.Items, types.Item{
			Name: types.ArchiveTag + name,
			Kind: types.KindArchiveFolder,
		})
	}

	fmt.Fprintf(w, "discovered %d file(s) in %s\n", len(files), cfg.InputDir)
	fmt.Fprintf(w, "discovered %d archive folder(s) in %s\n", len(archives), cfg.OutputDir)

	state.Logf("Starting processing of %d item(s) (%d file(s), %d archive(s)).",
		len(state.Items), len(files), len(archives))

	return nil
}

// inputFiles lists regular files in dir sorted ascending by name. A missing
// directory is treated as empty.
func inputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// archiveFolders lists valid archive folders in dir sorted descending by
// name. Folder names are expected to be timestamp-prefixed; the descending
// order has no defined meaning otherwise.
func archiveFolders(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output directory %s: %w", dir, err)
	}

	var folders []string
	for _, e := range entries {
		if IsArchiveFolder(filepath.Join(dir, e.Name())) {
			folders = append(folders, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(folders)))
	return folders, nil
}
