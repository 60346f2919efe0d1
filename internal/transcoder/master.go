package transcoder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MasterPlaylistName is the file name of the variant-listing playlist at
// the root of a video's stream directory.
const MasterPlaylistName = "master.m3u8"

// WriteMaster writes the master playlist for the given renditions into
// dir. Renditions appear in the order given, which should be lowest
// bitrate first so players start fast. At least one rendition is required.
func WriteMaster(dir string, renditions []RenditionSpec) error {
	if len(renditions) == 0 {
		return fmt.Errorf("master playlist needs at least one rendition")
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	for _, spec := range renditions {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n",
			spec.BitrateKbps*1000, spec.Width, spec.Height)
		fmt.Fprintf(&b, "%s/%s\n", spec.Name, playlistName)
	}

	path := filepath.Join(dir, MasterPlaylistName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write master playlist: %w", err)
	}
	return nil
}
