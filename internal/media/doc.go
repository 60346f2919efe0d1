// Package media wraps the ffprobe and ffmpeg binaries for source
// inspection and thumbnail extraction.
package media
