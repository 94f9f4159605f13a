package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Soulycoris/ts-screep/internal/protocol"
)

// stateCmd prints the running colony's tick and observer count, and with
// -agent the unit's stored memory record.
func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	agent := fs.String("agent", "", "unit name whose memory record to print (optional)")
	_ = fs.Parse(args)

	cl := &http.Client{Timeout: 5 * time.Second}
	base := strings.TrimRight(strings.TrimSpace(*baseURL), "/")

	st, err := fetchState(cl, base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	fmt.Println(formatState(st))
	if st.ProtocolVersion != protocol.Version {
		fmt.Fprintf(os.Stderr, "warning: server protocol %s, admin built for %s\n", st.ProtocolVersion, protocol.Version)
	}

	if name := strings.TrimSpace(*agent); name != "" {
		msg, err := fetchAgent(cl, base, name)
		if err != nil {
			fmt.Fprintln(os.Stderr, "agent:", err)
			os.Exit(1)
		}
		if msg.Code != "" {
			fmt.Fprintf(os.Stderr, "agent %s: %s %s\n", name, msg.Code, msg.Message)
			os.Exit(1)
		}
		printJSON(msg.Agent)
	}
}

func fetchState(cl *http.Client, base string) (protocol.StateMsg, error) {
	var st protocol.StateMsg
	resp, err := cl.Get(base + "/v1/state")
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return st, fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode: %w", err)
	}
	return st, nil
}

// fetchAgent decodes AGENT replies on any status; a missing unit comes back
// as a 404 carrying E_TARGET_UNRESOLVED.
func fetchAgent(cl *http.Client, base, name string) (protocol.AgentMsg, error) {
	var msg protocol.AgentMsg
	resp, err := cl.Get(base + "/v1/agents/" + url.PathEscape(name))
	if err != nil {
		return msg, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return msg, fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}
	return msg, nil
}

func formatState(st protocol.StateMsg) string {
	return fmt.Sprintf("colony=%s tick=%d protocol=%s observers=%d", st.ColonyID, st.Tick, st.ProtocolVersion, st.Observers)
}
