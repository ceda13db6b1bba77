// Package schema validates decoded messages against CUE definitions.
//
// The definitions live in messages.cue, embedded at build time. A message is
// valid when its JSON-shaped encoding unifies with the definition named
// after its Kind and the result is fully concrete. Definitions are closed,
// so a struct field without a matching schema field is also an error.
package schema
