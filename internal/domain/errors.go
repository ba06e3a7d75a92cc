package domain

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindPermission
	KindPersistence
	KindExternalPlatform
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindPersistence:
		return "persistence"
	case KindExternalPlatform:
		return "external_platform"
	default:
		return "unknown"
	}
}

// Error clasifica cualquier falla del subsistema de moderación.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matchea contra los sentinels por Kind (errors.Is(err, ErrPermission)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Kind == e.Kind
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrPermission       = &Error{Kind: KindPermission}
	ErrPersistence      = &Error{Kind: KindPersistence}
	ErrExternalPlatform = &Error{Kind: KindExternalPlatform}
)

func Validation(op, msg string) error { return &Error{Kind: KindValidation, Op: op, Msg: msg} }

func Permission(op, msg string) error { return &Error{Kind: KindPermission, Op: op, Msg: msg} }

// Persistence envuelve err; devuelve nil si err es nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) && de.Kind == KindPersistence {
		return err
	}
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// External envuelve err; devuelve nil si err es nil.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindExternalPlatform, Op: op, Err: err}
}

// KindOf devuelve 0 si err no es un *Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
