//go:build script

package main

import (
	"time"

	"gr"
)

const scriptName = "Save Reminder"
const scriptAuthor = "Examples"
const scriptVersion = 1.0
const scriptAPIVersion = 1

// Remind every 15 minutes.
const reminderMs = 15 * 60 * 1000

func Init() {
	gr.Every(reminderMs, func() {
		gr.Notify("remember to save your game")
	})
}

func Terminate() {
	gr.Save("last_stop", time.Now().Format(time.RFC3339))
}
