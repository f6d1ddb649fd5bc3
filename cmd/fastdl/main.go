// Package main provides the entry point for the fastdl CLI.
//
// fastdl mirrors game-server fast-download hosts: it crawls a remote
// directory listing, downloads every map archive it finds, and decodes the
// compressed sidecar files in place.
//
// Usage:
//
//	fastdl mirror <root-url>...
//	fastdl decode <dir>
//
// See --help for all available options.
package main

// main is the entry point for fastdl.
func main() {
	Execute()
}
