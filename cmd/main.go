// Package main is the entry point of the Nuvé player.
//
// Nuvé plays audio, video and YouTube tracks behind one transport and keeps
// favorites, playlists and settings in a profile service.
//
// Build:
//
//	go build -o build/nuve ./cmd
//
// Run:
//
//	./build/nuve              # desktop player
//	./build/nuve serve        # profile API
//	./build/nuve search lofi  # YouTube search from the terminal
package main

func main() {
	Execute()
}
