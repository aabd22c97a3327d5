//go:build script

package main

import (
	"strings"

	"gr"
)

const scriptName = "Range Finder"
const scriptAuthor = "Examples"
const scriptVersion = 1.0
const scriptAPIVersion = 1

// ranges holds every <range:N> value seen in item notes, in scan order.
var ranges []string

func Init() {
	gr.NoteTag(`<range:(\d+)>`, func(caps []string) {
		ranges = append(ranges, caps[0])
	})
	gr.RegisterCommand("ranges", func(args string) {
		if len(ranges) == 0 {
			gr.Print("no ranges scanned yet")
			return
		}
		gr.Print("scanned ranges: " + strings.Join(ranges, ", "))
	})
}
