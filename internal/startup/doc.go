// Package startup handles configuration loading, directory validation, and
// structured startup/shutdown logging for streamhub.
//
// Configuration comes from environment variables. Required directories
// (database, storage, renditions) are validated for write access at load
// time; a missing ffmpeg/ffprobe installation is reported but not fatal so
// the read path can still serve previously transcoded content.
package startup
