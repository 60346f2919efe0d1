// Package logging provides leveled logging on top of the standard library
// log package. The active level is read once from the LOG_LEVEL and DEBUG
// environment variables.
package logging
