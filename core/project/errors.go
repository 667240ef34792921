package project

import (
	"fmt"

	"github.com/pkg/errors"
)

type FailureKind int

const (
	// RelationFetchFailure: a related resource could not be resolved remotely.
	RelationFetchFailure FailureKind = iota + 1
	// TagMaterializationFailure: a tag could not be looked up or created on submit.
	TagMaterializationFailure
	// PersistFailure: the project could not be created, updated or linked to its relations.
	PersistFailure
)

func (k FailureKind) String() string {
	switch k {
	case RelationFetchFailure:
		return "relation fetch failure"
	case TagMaterializationFailure:
		return "tag materialization failure"
	case PersistFailure:
		return "persist failure"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

var ErrEditorClosed = errors.New("editor closed")

// Failure aborts the current workflow. It is never retried.
type Failure struct {
	Kind FailureKind
	Err  error
}

func newFailure(kind FailureKind, err error, msg string) error {
	return &Failure{Kind: kind, Err: errors.Wrap(err, msg)}
}

func (f *Failure) Error() string {
	return f.Kind.String() + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure returns the Failure behind `err`, if any.
func AsFailure(err error) (*Failure, bool) {
	f, ok := errors.Cause(err).(*Failure)
	return f, ok
}

func isKind(err error, kind FailureKind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == kind
}

func IsRelationFetchFailure(err error) bool {
	return isKind(err, RelationFetchFailure)
}

func IsTagMaterializationFailure(err error) bool {
	return isKind(err, TagMaterializationFailure)
}

func IsPersistFailure(err error) bool {
	return isKind(err, PersistFailure)
}
