package schema

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/pez-globo/ventserver/internal/message"
)

//go:embed messages.cue
var schemaSource string

// Validator checks messages against the embedded CUE schema.
//
// A Validator is not safe for concurrent use; the protocol stack calls it
// from the single pipeline goroutine.
type Validator struct {
	ctx         *cue.Context
	definitions map[message.Kind]cue.Value
}

// New compiles the embedded schema. It fails if the schema does not compile
// or lacks a definition for some message kind.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(schemaSource, cue.Filename("messages.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile message schema: %s", errors.Details(err, nil))
	}

	v := &Validator{
		ctx:         ctx,
		definitions: make(map[message.Kind]cue.Value, len(message.Kinds())),
	}
	for _, kind := range message.Kinds() {
		def := root.LookupPath(cue.ParsePath("#" + kind.String()))
		if !def.Exists() {
			return nil, fmt.Errorf("message schema: missing definition #%s", kind)
		}
		v.definitions[kind] = def
	}
	return v, nil
}

// MustNew is New for package-level and test setup; it panics on error.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns a *message.DataError with code VALIDATION when msg does
// not satisfy the schema for its kind.
func (v *Validator) Validate(msg message.Message) error {
	if msg == nil {
		return &message.DataError{Code: message.ErrCodeValidation, Message: "nil message"}
	}
	kind := msg.Kind()
	def, ok := v.definitions[kind]
	if !ok {
		return &message.DataError{
			Code:    message.ErrCodeUnknownKind,
			Kind:    kind,
			Message: "no schema definition",
		}
	}

	encoded := v.ctx.Encode(msg)
	if err := encoded.Err(); err != nil {
		return &message.DataError{
			Code:    message.ErrCodeValidation,
			Kind:    kind,
			Message: "encode for validation failed",
			Err:     err,
		}
	}

	unified := def.Unify(encoded)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &message.DataError{
			Code:    message.ErrCodeValidation,
			Kind:    kind,
			Message: errors.Details(err, nil),
		}
	}
	return nil
}
