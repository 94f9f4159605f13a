package main

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/Soulycoris/ts-screep/internal/protocol"
	"github.com/Soulycoris/ts-screep/internal/sim/colony"
)

// spawnSubmitter is the part of *colony.Colony the spawn endpoint needs.
type spawnSubmitter interface {
	SpawnRequests() chan<- colony.SpawnRequest
	CurrentTick() uint64
}

const maxSpawnBody = 16 * 1024

// spawnHandler serves POST /v1/spawn. The request is handed to the loop and
// the handler waits for the tick that files it.
func spawnHandler(c spawnSubmitter, wait time.Duration) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxSpawnBody+1))
		if err != nil || len(raw) > maxSpawnBody {
			writeSpawnResult(rw, http.StatusRequestEntityTooLarge, reject(protocol.ErrProtoBadRequest, "body too large", c.CurrentTick()))
			return
		}
		msg, err := protocol.DecodeSpawn(raw)
		if err != nil {
			writeSpawnResult(rw, http.StatusBadRequest, reject(protocol.ErrProtoBadRequest, err.Error(), c.CurrentTick()))
			return
		}
		if msg.ProtocolVersion != protocol.Version {
			writeSpawnResult(rw, http.StatusBadRequest, reject(protocol.ErrProtoBadRequest, "unsupported protocol_version", c.CurrentTick()))
			return
		}

		resp := make(chan colony.SpawnResult, 1)
		req := colony.SpawnRequest{Name: msg.Name, Role: msg.Role, Room: msg.Room, Data: msg.RoleData(), Resp: resp}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case c.SpawnRequests() <- req:
		case <-timer.C:
			writeSpawnResult(rw, http.StatusServiceUnavailable, reject(protocol.ErrBusy, "spawn queue full", c.CurrentTick()))
			return
		case <-r.Context().Done():
			return
		}

		var res colony.SpawnResult
		select {
		case res = <-resp:
		case <-timer.C:
			writeSpawnResult(rw, http.StatusGatewayTimeout, reject(protocol.ErrBusy, "colony did not answer in time", c.CurrentTick()))
			return
		case <-r.Context().Done():
			return
		}

		out := protocol.SpawnResultMsg{
			Type:            protocol.TypeSpawnResult,
			ProtocolVersion: protocol.Version,
			Accepted:        res.Err == nil,
			Name:            msg.Name,
			Index:           res.Index,
			RequestID:       res.RequestID,
			Code:            protocol.CodeFor(res.Err),
			ServerTick:      c.CurrentTick(),
		}
		if res.Err != nil {
			out.Message = res.Err.Error()
		}
		writeSpawnResult(rw, statusFor(out.Code), out)
	}
}

func reject(code, message string, tick uint64) protocol.SpawnResultMsg {
	return protocol.SpawnResultMsg{
		Type:            protocol.TypeSpawnResult,
		ProtocolVersion: protocol.Version,
		Index:           -1,
		Code:            code,
		Message:         message,
		ServerTick:      tick,
	}
}

func statusFor(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case protocol.ErrDuplicate:
		return http.StatusConflict
	case protocol.ErrConfigMissing:
		return http.StatusUnprocessableEntity
	case protocol.ErrBadRequest, protocol.ErrProtoBadRequest:
		return http.StatusBadRequest
	case protocol.ErrTargetUnresolved:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeSpawnResult(rw http.ResponseWriter, status int, msg protocol.SpawnResultMsg) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(msg)
}
