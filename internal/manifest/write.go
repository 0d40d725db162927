// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/medscan/pkg/types"
)

// frontmatter is the YAML block at the top of a manifest.
type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Render produces the SKILL.md document for meta. The body fields are
// emitted with the exact labels the parser matches, so a rendered manifest
// always round-trips.
func Render(meta *types.ArchiveMetadata) (string, error) {
	fm, err := yaml.Marshal(frontmatter{Name: meta.Name, Description: meta.Description})
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", meta.Name)
	fmt.Fprintf(&b, "Generated: %s\n\n", meta.GeneratedTimestamp)

	b.WriteString("## Processing Statistics\n\n")
	fmt.Fprintf(&b, "- Total Files: %d\n", meta.TotalFiles)
	fmt.Fprintf(&b, "- Successfully Processed: %d\n", meta.SuccessfullyProcessed)
	fmt.Fprintf(&b, "- Success Rate: %.1f%%\n\n", meta.SuccessRate)

	b.WriteString("## System Information\n\n")
	fmt.Fprintf(&b, "- Device Used: %s\n", meta.DeviceUsed)
	fmt.Fprintf(&b, "- Data Type: %s\n", meta.DataType)
	fmt.Fprintf(&b, "- Model: %s\n\n", meta.Model)

	b.WriteString("## Output Files\n")
	for _, f := range meta.OutputFiles {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}

	return b.String(), nil
}

// Write renders meta and writes it to path, overwriting prior content.
func Write(path string, meta *types.ArchiveMetadata) error {
	doc, err := Render(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}
