package main

import (
	"encoding/json"
	"net/http"

	"github.com/Soulycoris/ts-screep/internal/protocol"
	"github.com/Soulycoris/ts-screep/internal/sim/memory"
)

// agentHandler serves GET /v1/agents/{name}: the unit's memory as of the last
// flushed tick. It reads the store directly and never waits on the loop.
func agentHandler(store memory.Store) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		out := protocol.AgentMsg{Type: protocol.TypeAgent, ProtocolVersion: protocol.Version, Name: name}
		raw, err := memory.Get(r.Context(), store, memory.ScopeAgent, name)
		if err != nil {
			out.Code = protocol.CodeFor(err)
			out.Message = err.Error()
		} else {
			out.Agent = json.RawMessage(raw)
		}
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(statusFor(out.Code))
		_ = json.NewEncoder(rw).Encode(out)
	}
}
