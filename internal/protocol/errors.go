package protocol

import (
	"errors"

	"github.com/Soulycoris/ts-screep/internal/sim/agent"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
	"github.com/Soulycoris/ts-screep/internal/sim/queue"
	"github.com/Soulycoris/ts-screep/internal/sim/reserve"
	"github.com/Soulycoris/ts-screep/internal/sim/spawn"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBusy            = "E_BUSY"

	// Colony layer.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrConfigMissing    = "E_CONFIG_MISSING"
	ErrTargetUnresolved = "E_TARGET_UNRESOLVED"
	ErrBlocked          = "E_BLOCKED"
	ErrDuplicate        = "E_DUPLICATE"
	ErrNoCapacity       = "E_NO_CAPACITY"
	ErrDisabled         = "E_DISABLED"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBusy:             {},
	ErrBadRequest:       {},
	ErrConfigMissing:    {},
	ErrTargetUnresolved: {},
	ErrBlocked:          {},
	ErrDuplicate:        {},
	ErrNoCapacity:       {},
	ErrDisabled:         {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps a colony error onto its wire code. nil maps to "".
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, agent.ErrUnknownRole):
		return ErrConfigMissing
	case errors.Is(err, spawn.ErrBadRequest):
		return ErrBadRequest
	case errors.Is(err, queue.ErrDuplicate):
		return ErrDuplicate
	case errors.Is(err, queue.ErrNoCapacity):
		return ErrNoCapacity
	case errors.Is(err, queue.ErrPowerDisabled):
		return ErrDisabled
	case errors.Is(err, reserve.ErrTaken):
		return ErrBlocked
	case errors.Is(err, memory.ErrNotFound):
		return ErrTargetUnresolved
	default:
		return ErrInternal
	}
}
