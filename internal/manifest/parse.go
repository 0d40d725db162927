// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/medscan/pkg/types"
)

// Labeled-field patterns. The manifest body is line-oriented markdown, not
// a YAML document, so fields are matched individually and unknown
// surrounding text is ignored.
var (
	namePattern        = regexp.MustCompile(`name:\s*(.+)`)
	descriptionPattern = regexp.MustCompile(`description:\s*(.+)`)
	generatedPattern   = regexp.MustCompile(`Generated:\s*(.+)`)
	totalFilesPattern  = regexp.MustCompile(`Total Files:\s*(\d+)`)
	processedPattern   = regexp.MustCompile(`Successfully Processed:\s*(\d+)`)
	successRatePattern = regexp.MustCompile(`Success Rate:\s*([\d.]+)%`)
	devicePattern      = regexp.MustCompile(`Device Used:\s*(.+)`)
	dataTypePattern    = regexp.MustCompile(`Data Type:\s*(.+)`)
	modelPattern       = regexp.MustCompile(`Model:\s*(.+)`)
	filesSection       = regexp.MustCompile("Output Files\n((?:- `.+?`\n?)*)")
)

// Parse reads and parses the SKILL.md at path. The name and description
// fields are required; every other field defaults ("Unknown", 0, 0.0)
// when absent. The archive folder name is derived from the manifest's
// parent directory.
func Parse(path string) (*types.ArchiveMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	content := string(data)

	name := firstMatch(namePattern, content, "")
	if name == "" {
		return nil, fmt.Errorf("manifest %s: missing name field", path)
	}
	description := firstMatch(descriptionPattern, content, "")
	if description == "" {
		return nil, fmt.Errorf("manifest %s: missing description field", path)
	}

	meta := &types.ArchiveMetadata{
		Name:                  name,
		Description:           description,
		ArchiveFolder:         filepath.Base(filepath.Dir(path)),
		GeneratedTimestamp:    firstMatch(generatedPattern, content, "Unknown"),
		TotalFiles:            intMatch(totalFilesPattern, content),
		SuccessfullyProcessed: intMatch(processedPattern, content),
		SuccessRate:           floatMatch(successRatePattern, content),
		DeviceUsed:            firstMatch(devicePattern, content, "Unknown"),
		DataType:              firstMatch(dataTypePattern, content, "Unknown"),
		Model:                 firstMatch(modelPattern, content, "Unknown"),
		OutputFiles:           parseOutputFiles(content),
	}
	return meta, nil
}

// ParseAll parses every */SKILL.md under outputDir and returns a map of
// archive folder name to metadata. Unparsable manifests are skipped; a
// missing outputDir yields an empty map.
func ParseAll(outputDir string) (map[string]*types.ArchiveMetadata, error) {
	metas := make(map[string]*types.ArchiveMetadata)

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return metas, nil
		}
		return nil, fmt.Errorf("reading output directory %s: %w", outputDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := Parse(filepath.Join(outputDir, entry.Name(), ManifestFile))
		if err != nil {
			continue
		}
		metas[meta.ArchiveFolder] = meta
	}
	return metas, nil
}

// firstMatch returns the trimmed first capture group, or fallback when the
// pattern does not match.
func firstMatch(re *regexp.Regexp, content, fallback string) string {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return fallback
	}
	return strings.TrimSpace(m[1])
}

func intMatch(re *regexp.Regexp, content string) int {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func floatMatch(re *regexp.Regexp, content string) float64 {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return 0.0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0.0
	}
	return f
}

// parseOutputFiles extracts backtick-quoted filenames from the Output Files
// section, in manifest order.
func parseOutputFiles(content string) []string {
	m := filesSection.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	var files []string
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "`")
		if line != "" {
			files = append(files, line)
		}
	}
	return files
}
