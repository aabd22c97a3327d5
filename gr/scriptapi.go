// Code generated for editor support.
// This file provides stubs for the "gr" package so editors can type-check
// scripts without the full host. Implementations are no-ops.

package gr

// Basic output
func Print(msg string)  {}
func Notify(msg string) {}

// Commands
type CommandHandler func(args string)

func RegisterCommand(name string, handler CommandHandler) {}
func AliasCommand(alias, original string)                 {}
func Run(cmd string)                                      {}

// Overwrite declarations for the shared command table
func OverwriteNext()             {}
func Overwrites(names ...string) {}

// Console triggers
func Console(phrase string, handler func(string)) {}

// Note and comment tags. The action is a code string or a func taking the
// capture groups.
func NoteTag(pattern string, action any)    {}
func CommentTag(pattern string, action any) {}

// Registry queries
func Require(name string, min float64) bool { return false }
func Installed(name string) bool            { return false }

// Storage (per-script persistent key/value)
func StorageGet(key string) any        { return nil }
func StorageSet(key string, value any) {}
func StorageDelete(key string)         {}

// Convenience string-only helpers
func Save(key, value string) {}
func Load(key string) string { return "" }
func Delete(key string)      {}

// Time helpers
func After(ms int, fn func()) {}
func Every(ms int, fn func()) {}
func SleepTicks(ticks int)    {}
