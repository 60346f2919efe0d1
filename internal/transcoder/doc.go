// Package transcoder produces segmented adaptive streams with ffmpeg.
//
// Each rendition in the ladder is encoded into its own directory holding
// an index.m3u8 media playlist and fixed-duration MPEG-TS segments. The
// master playlist listing every completed rendition is assembled
// separately once the per-rendition encodes settle.
package transcoder
