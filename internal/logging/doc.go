// Package logging configures structured JSON logging for edmindex.
//
// Every run appends to a size-rotated file under ~/.edmindex/logs/. With
// --debug the same records are mirrored to stderr.
package logging
