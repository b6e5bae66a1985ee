// internal/domain/models/enums.go
package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Enumerated fields are closed string types. Each one knows its full value
// set (used to build the collection validators) and refuses to encode or
// decode a value outside that set, so a bad value never reaches the database
// from Go code and a bad stored value is reported on read.

// Role is a user's role.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEditor    Role = "editor"
	RoleResponder Role = "responder"
)

// Roles is the full set of allowed roles, in schema order.
var Roles = []Role{RoleAdmin, RoleEditor, RoleResponder}

// Severity is a runbook's severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities is the full set of allowed severities, lowest first.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// SessionStatus is the status of a runbook execution session.
//
// Only the value set is defined here. Which status may follow which is not
// decided at this layer.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// SessionStatuses is the full set of allowed session statuses.
var SessionStatuses = []SessionStatus{SessionActive, SessionPaused, SessionCompleted, SessionFailed}

// IsValid reports whether r is one of Roles.
func (r Role) IsValid() bool { return contains(Roles, r) }

// IsValid reports whether s is one of Severities.
func (s Severity) IsValid() bool { return contains(Severities, s) }

// IsValid reports whether s is one of SessionStatuses.
func (s SessionStatus) IsValid() bool { return contains(SessionStatuses, s) }

// IsTerminal reports whether s ends a session (completed or failed).
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// EnumError reports a value outside an enumerated field's allowed set.
type EnumError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("%s must be one of %s (got %q)", e.Field, strings.Join(e.Allowed, "|"), e.Value)
}

// EnumValues returns the allowed values of an enumerated type as strings, in
// declaration order. The validators package builds its enum lists from this.
func EnumValues[T ~string](vals []T) []string {
	return strs(vals)
}

/* ------------------------------ BSON codecs ------------------------------ */

func (r Role) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalEnum("role", string(r), r.IsValid(), strs(Roles))
}

func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	s, err := unmarshalEnum("role", t, data)
	if err != nil {
		return err
	}
	v := Role(s)
	if s != "" && !v.IsValid() {
		return &EnumError{Field: "role", Value: s, Allowed: strs(Roles)}
	}
	*r = v
	return nil
}

func (s Severity) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalEnum("severity", string(s), s.IsValid(), strs(Severities))
}

func (s *Severity) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw, err := unmarshalEnum("severity", t, data)
	if err != nil {
		return err
	}
	v := Severity(raw)
	if raw != "" && !v.IsValid() {
		return &EnumError{Field: "severity", Value: raw, Allowed: strs(Severities)}
	}
	*s = v
	return nil
}

func (s SessionStatus) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalEnum("status", string(s), s.IsValid(), strs(SessionStatuses))
}

func (s *SessionStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw, err := unmarshalEnum("status", t, data)
	if err != nil {
		return err
	}
	v := SessionStatus(raw)
	if raw != "" && !v.IsValid() {
		return &EnumError{Field: "status", Value: raw, Allowed: strs(SessionStatuses)}
	}
	*s = v
	return nil
}

func marshalEnum(field, v string, ok bool, allowed []string) (bsontype.Type, []byte, error) {
	if !ok {
		return 0, nil, &EnumError{Field: field, Value: v, Allowed: allowed}
	}
	return bson.MarshalValue(v)
}

// unmarshalEnum returns the stored string; BSON null decodes as "".
func unmarshalEnum(field string, t bsontype.Type, data []byte) (string, error) {
	if t == bsontype.Null {
		return "", nil
	}
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return "", fmt.Errorf("%s: expected string, got BSON %s", field, t)
	}
	return s, nil
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func strs[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
