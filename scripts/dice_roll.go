//go:build script

package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"gr"
)

const scriptName = "Dice Roller"
const scriptAuthor = "Examples"
const scriptVersion = 1.0
const scriptAPIVersion = 1

// Init registers the /roll command.
func Init() {
	gr.RegisterCommand("roll", roll)
}

func roll(args string) {
	args = strings.TrimSpace(strings.ToLower(args))
	if args == "" {
		gr.Print("usage: /roll NdM, e.g. /roll 2d6")
		return
	}
	parts := strings.Split(args, "d")
	if len(parts) != 2 {
		gr.Print("usage: /roll NdM, e.g. /roll 2d6")
		return
	}
	n := 1
	if parts[0] != "" {
		n, _ = strconv.Atoi(parts[0])
	}
	sides, _ := strconv.Atoi(parts[1])
	if n <= 0 || sides <= 0 {
		gr.Print("invalid dice")
		return
	}

	rolls := make([]string, n)
	total := 0
	for i := 0; i < n; i++ {
		r := rand.Intn(sides) + 1
		rolls[i] = strconv.Itoa(r)
		total += r
	}
	gr.Run(fmt.Sprintf("/me rolls %s: %s (total %d)", args, strings.Join(rolls, " "), total))
}
