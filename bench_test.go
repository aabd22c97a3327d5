package grimoire

import "testing"

const benchSrc = `package main

const scriptName = "Bench Script"
const scriptAuthor = "Bench"
const scriptAPIVersion = 1

func Init() {}
`

// BenchmarkLoadScript measures a full interpreter spin-up, eval, and Init
// for a minimal script.
func BenchmarkLoadScript(b *testing.B) {
	h := NewHost(Options{})
	src := []byte(benchSrc)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.loadSource("Bench Script_bench", "Bench Script", "bench.go", src)
	}
}

// benchCalls is written by the benchmark command handlers.
var benchCalls int

// BenchmarkCommandDirect is the baseline: calling a handler without going
// through dispatch.
func BenchmarkCommandDirect(b *testing.B) {
	handler := func(args string) { benchCalls++ }
	for i := 0; i < b.N; i++ {
		handler("arg")
	}
}

// BenchmarkCommandDispatch measures full command dispatch including the
// console echo.
func BenchmarkCommandDispatch(b *testing.B) {
	h := NewHost(Options{})
	h.RegisterCommand("bench_owner", "bench", func(args string) { benchCalls++ })
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.RunCommand("/bench arg")
	}
}
