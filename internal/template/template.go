// Package template expands ${name} variables in campaign messages.
package template

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVariable is returned for a ${name} outside the recognized set.
var ErrUnknownVariable = errors.New("unknown template variable")

// VarFollowerHandle expands to the recipient's screen name.
const VarFollowerHandle = "followerTwitterHandle"

// Vars holds the per-recipient values a message may reference.
type Vars struct {
	FollowerHandle string
}

func (v Vars) lookup(name string) (string, bool) {
	switch name {
	case VarFollowerHandle:
		return v.FollowerHandle, true
	}
	return "", false
}

// Expand replaces every ${name} in message. Whitespace inside the braces is
// ignored. \${ yields a literal ${. A $ not followed by { and a ${ without a
// closing } are copied through unchanged.
func Expand(message string, vars Vars) (string, error) {
	var b strings.Builder
	b.Grow(len(message))
	for i := 0; i < len(message); {
		c := message[i]
		switch {
		case c == '\\' && strings.HasPrefix(message[i+1:], "${"):
			b.WriteString("${")
			i += 3
		case c == '$' && strings.HasPrefix(message[i+1:], "{"):
			end := strings.IndexByte(message[i+2:], '}')
			if end < 0 {
				b.WriteString(message[i:])
				return b.String(), nil
			}
			name := strings.TrimSpace(message[i+2 : i+2+end])
			val, ok := vars.lookup(name)
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrUnknownVariable, name)
			}
			b.WriteString(val)
			i += 2 + end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// Validate checks that message references only recognized variables.
func Validate(message string) error {
	_, err := Expand(message, Vars{})
	return err
}
