package transcoder

// RenditionSpec is one rung of the encoding ladder.
type RenditionSpec struct {
	// Name labels the rendition and names its output directory, e.g. "720p".
	Name string
	// Width and Height describe the target frame. The encoder scales by
	// height and keeps the source aspect ratio, so Width is advisory and
	// only advertised in the master playlist.
	Width  int
	Height int
	// BitrateKbps is the target video bitrate in kilobits per second.
	BitrateKbps int
}

// DefaultLadder is the standard three-rung ladder, lowest rung first.
var DefaultLadder = []RenditionSpec{
	{Name: "360p", Width: 640, Height: 360, BitrateKbps: 800},
	{Name: "720p", Width: 1280, Height: 720, BitrateKbps: 2400},
	{Name: "1080p", Width: 1920, Height: 1080, BitrateKbps: 5000},
}

// LadderResolutions returns the rendition names of a ladder, in order.
func LadderResolutions(ladder []RenditionSpec) []string {
	names := make([]string, len(ladder))
	for i, spec := range ladder {
		names[i] = spec.Name
	}
	return names
}
