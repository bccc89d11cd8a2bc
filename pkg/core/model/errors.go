package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ResultCode is the machine-readable outcome surfaced to the presentation
// layer, which maps codes to user-facing responses.
type ResultCode string

const (
	CodeOK               ResultCode = "OK"
	CodeRejected         ResultCode = "REJECTED"
	CodeContended        ResultCode = "CONTENDED"
	CodeAmbiguousTime    ResultCode = "AMBIGUOUS_TIME"
	CodeExpired          ResultCode = "EXPIRED"
	CodePermissionDenied ResultCode = "PERMISSION_DENIED"
)

// ErrNotFound is returned by stores when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ConflictError reports that an exclusive section could not be acquired or
// a commit race was lost. Holder names the actor currently inside the
// section so the caller can display a live "someone else is editing" notice.
type ConflictError struct {
	Key    string
	Holder string
}

func (e *ConflictError) Error() string {
	if e.Holder != "" {
		return fmt.Sprintf("contention on %s: held by %s", e.Key, e.Holder)
	}
	return fmt.Sprintf("contention on %s", e.Key)
}

// PermissionError reports that the actor lacks scope for the operation.
// It is raised before any constraint evaluation runs.
type PermissionError struct {
	Actor  string
	Reason string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Actor, e.Reason)
}

// AmbiguousTimeError reports that timezone normalization could not resolve
// a unique UTC instant. Both candidates are carried so a human can choose;
// the core never defaults silently.
type AmbiguousTimeError struct {
	Timezone  string
	LocalTime string
	Detail    string
}

func (e *AmbiguousTimeError) Error() string {
	return fmt.Sprintf("ambiguous local time %s in %s: %s", e.LocalTime, e.Timezone, e.Detail)
}

// OverrideToken is caller-supplied proof of managerial sign-off for a
// hard-limit override. Tokens are gated per rule identifier: covering one
// rule never implies covering another triggered in the same call.
type OverrideToken struct {
	Token    string
	IssuedBy uuid.UUID
	Reason   string
	RuleIDs  []string
}

// Covers reports whether the token authorizes overriding the given rule.
func (t *OverrideToken) Covers(ruleID string) bool {
	if t == nil || t.Token == "" {
		return false
	}
	for _, id := range t.RuleIDs {
		if id == ruleID {
			return true
		}
	}
	return false
}
