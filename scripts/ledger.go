//go:build script

package main

import (
	"strconv"

	"gr"
)

// script metadata
const scriptName = "Coin Ledger"
const scriptAuthor = "Examples"
const scriptVersion = 1.2
const scriptAPIVersion = 1

func Init() {
	gr.RegisterCommand("ledger", ledger)
	gr.AliasCommand("led", "ledger")
}

func ledger(args string) {
	total := 0
	if s := gr.Load("total"); s != "" {
		total, _ = strconv.Atoi(s)
	}
	switch args {
	case "":
		gr.Print("ledger total: " + strconv.Itoa(total))
	case "reset":
		gr.Delete("total")
		gr.Print("ledger cleared")
	default:
		n, err := strconv.Atoi(args)
		if err != nil {
			gr.Print("usage: /ledger [amount|reset]")
			return
		}
		total += n
		gr.Save("total", strconv.Itoa(total))
		gr.Print("ledger total: " + strconv.Itoa(total))
	}
}
