//go:build script

package main

import "gr"

const scriptName = "Dice Shortcuts"
const scriptAuthor = "Examples"
const scriptVersion = 1.0
const scriptAPIVersion = 1
const scriptRequires = "Dice Roller>=1.0"

func Init() {
	gr.AliasCommand("r", "roll")
}
