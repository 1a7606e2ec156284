// Package status defines the outcome tokens carried by every response envelope.
package status

import (
	"encoding/json"
)

const (
	// FieldStatus is the response field holding the status name
	FieldStatus = "Status"
	// FieldArgumentName is the response field naming a missing argument
	FieldArgumentName = "ArgumentName"
)

// Status is one outcome token. ArgumentName is only set for RequestArgumentNotFound.
type Status struct {
	Name         string
	ArgumentName string
}

func named(name string) Status {
	return Status{Name: name}
}

// Status tokens. New tokens are added at the end and never renamed.
var (
	Ok                          = named("Ok")
	Fail                        = named("Fail")
	Wait                        = named("Wait")
	Updating                    = named("Updating")
	Offline                     = named("Offline")
	ControllerNotFound          = named("ControllerNotFound")
	ControllerFail              = named("ControllerFail")
	OccFail                     = named("OccFail")
	WrongQuery                  = named("WrongQuery")
	WrongPassword               = named("WrongPassword")
	Overcount                   = named("Overcount")
	AuthFail                    = named("AuthFail")
	ServerAuthFail              = named("ServerAuthFail")
	NotFound                    = named("NotFound")
	MetaNotFound                = named("MetaNotFound")
	RequestedInstanceNotFound   = named("RequestedInstanceNotFound")
	PlayerNotFound              = named("PlayerNotFound")
	PlayerAlreadyExists         = named("PlayerAlreadyExists")
	InvalidAccessKey            = named("InvalidAccessKey")
	NotEnoughKeys               = named("NotEnoughKeys")
	RequirementNotFulfilled     = named("RequirementNotFulfilled")
	TypeMismatch                = named("TypeMismatch")
	NotReady                    = named("NotReady")
	NotEnoughResources          = named("NotEnoughResources")
	ItemNotFound                = named("ItemNotFound")
	CharacterNotFound           = named("CharacterNotFound")
	ArenaUnavailable            = named("ArenaUnavailable")
	AlreadyUnlocked             = named("AlreadyUnlocked")
	MaxLevelReached             = named("MaxLevelReached")
	UtilityOperationsNotAllowed = named("UtilityOperationsNotAllowed")
)

const requestArgumentNotFound = "RequestArgumentNotFound"

// RequestArgumentNotFound reports a declared input that was absent or not convertible
func RequestArgumentNotFound(argumentName string) Status {
	return Status{Name: requestArgumentNotFound, ArgumentName: argumentName}
}

// IsZero reports whether no status was produced
func (s Status) IsZero() bool {
	return s.Name == ""
}

// Is compares status names, ignoring the argument payload
func (s Status) Is(other Status) bool {
	return s.Name == other.Name
}

func (s Status) String() string {
	if s.ArgumentName != "" {
		return s.Name + "(" + s.ArgumentName + ")"
	}
	return s.Name
}

// MarshalJSON renders {"Status":"<Name>"} plus ArgumentName when set
func (s Status) MarshalJSON() ([]byte, error) {
	m := map[string]string{FieldStatus: s.Name}
	if s.ArgumentName != "" {
		m[FieldArgumentName] = s.ArgumentName
	}
	return json.Marshal(m)
}
