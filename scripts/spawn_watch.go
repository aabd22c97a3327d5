//go:build script

package main

import "gr"

const scriptName = "Spawn Watch"
const scriptAuthor = "Examples"
const scriptVersion = 1.1
const scriptAPIVersion = 1

// Init reports every <spawn:NAME> comment found on map events.
func Init() {
	gr.CommentTag(`<spawn:(\w+)>`, func(caps []string) {
		gr.Print("spawn point: " + caps[0])
	})
}
