// Package blob stores opaque media objects on the local filesystem under
// a single root directory.
//
// Objects are addressed by slash-separated keys such as
// "sources/<id>/input.mp4" or "thumbnails/<id>/cover.jpg". Keys are
// validated against traversal before they touch the filesystem, and every
// resolved path is checked to stay inside the root.
package blob
