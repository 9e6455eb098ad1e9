// Package geometry holds named image-size presets for mkfs, the way
// disks/disks.go holds named floppy geometries for the teacher's FAT
// formatter: an embedded CSV table unmarshalled once at init time.
package geometry

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/Fudanyrd/xv6fs/layout"
)

// Preset names one image-size configuration: total blocks on the device,
// how many inodes the table holds, and how many blocks are reserved for the
// log region.
type Preset struct {
	Name        string `csv:"name"`
	Slug        string `csv:"slug"`
	TotalBlocks uint32 `csv:"total_blocks"`
	NInodes     uint32 `csv:"ninodes"`
	NLog        uint32 `csv:"nlog"`
	Notes       string `csv:"notes"`
}

// Superblock derives the full on-disk layout this preset describes.
func (p *Preset) Superblock() layout.Superblock {
	return layout.ComputeLayout(p.TotalBlocks, p.NInodes, p.NLog)
}

//go:embed presets.csv
var presetsRawCSV string

var presets map[string]Preset

func init() {
	presets = make(map[string]Preset)
	reader := strings.NewReader(presetsRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Preset) error {
		if _, exists := presets[row.Slug]; exists {
			return fmt.Errorf("duplicate preset slug %q", row.Slug)
		}
		presets[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// Get looks up a named preset by slug ("tiny", "default", "large").
func Get(slug string) (Preset, error) {
	p, ok := presets[slug]
	if !ok {
		return Preset{}, fmt.Errorf("no predefined image preset named %q", slug)
	}
	return p, nil
}

// Names lists the known preset slugs that the CSV defines, in the fixed
// order tiny, default, large.
func Names() []string {
	out := make([]string, 0, len(presets))
	for _, slug := range []string{"tiny", "default", "large"} {
		if _, ok := presets[slug]; ok {
			out = append(out, slug)
		}
	}
	return out
}
