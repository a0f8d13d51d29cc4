package core

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the core operations.
var (
	ErrInvalidURL        = errors.New("invalid remote URL")
	ErrNoOrigin          = errors.New("no origin remote")
	ErrMissingCredential = errors.New("no credentials configured")
	ErrCommitFailed      = errors.New("commit failed")
	ErrNoFallbackBranch  = errors.New("neither 'main' nor 'master' exists to switch to")
	ErrDeclined          = errors.New("aborted by user")
	ErrInvalidDuration   = errors.New("invalid time string")
)

// Op names the operation that failed, for ex. "fork", "checkout".
type Op string

// Kind classifies a failure.
type Kind int

const (
	Other          Kind = iota // Unclassified.
	Configuration              // Local setup is missing or invalid.
	Authentication             // The server rejected the credentials.
	NotFound                   // A remote resource does not exist.
	Conflict                   // A remote resource already exists.
	Declined                   // The user answered no or gave no input.
	State                      // The local repository is in an unusable state.
	Git                        // A git command failed.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "error"
	case Configuration:
		return "configuration error"
	case Authentication:
		return "authentication failed"
	case NotFound:
		return "not found"
	case Conflict:
		return "already exists"
	case Declined:
		return "declined"
	case State:
		return "invalid repository state"
	case Git:
		return "git error"
	}
	return "unknown kind"
}

// Error is a classified failure of a core operation.
type Error struct {
	Op   Op
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	b := new(strings.Builder)
	if e.Op != "" {
		b.WriteString(string(e.Op))
	}
	if e.Err == nil {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
		return b.String()
	}
	pad(b, ": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

// E builds an *Error from an Op, a Kind, an error and/or a message.
// A nested *Error without its own Kind lends its Kind to the result.
func E(args ...any) error {
	if len(args) == 0 {
		panic("core.E must have at least one argument")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case error:
			e.Err = a
		case string:
			e.Err = errors.New(a)
		}
	}
	if e.Kind == Other {
		e.Kind = KindOf(e.Err)
	}
	return e
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return Other
		}
		if e.Kind != Other {
			return e.Kind
		}
		err = e.Err
	}
	return Other
}
