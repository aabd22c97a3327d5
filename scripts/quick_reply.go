//go:build script

package main

import "gr"

const scriptName = "Quick Reply"
const scriptAuthor = "Examples"
const scriptVersion = 1.1
const scriptAPIVersion = 1

var away = false

func Init() {
	gr.RegisterCommand("away", func(args string) {
		away = !away
		if away {
			gr.Print("auto-reply on")
		} else {
			gr.Print("auto-reply off")
		}
	})
	gr.Console("whispers to you", func(line string) {
		if away {
			gr.Run("/reply I am away right now")
		}
	})
}
