// Command bot files spawn requests with a colony server and then follows its
// observer stream, printing one line per received tick.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Soulycoris/ts-screep/internal/protocol"
)

type spawnFlags []protocol.SpawnMsg

func (s *spawnFlags) String() string { return fmt.Sprint(len(*s)) }

func (s *spawnFlags) Set(v string) error {
	m, err := parseSpawn(v)
	if err != nil {
		return err
	}
	*s = append(*s, m)
	return nil
}

// parseSpawn reads name:role:room[:source_id[:target_id]].
func parseSpawn(v string) (protocol.SpawnMsg, error) {
	parts := strings.Split(v, ":")
	if len(parts) < 3 || len(parts) > 5 {
		return protocol.SpawnMsg{}, fmt.Errorf("spawn %q: want name:role:room[:source[:target]]", v)
	}
	m := protocol.SpawnMsg{
		Type:            protocol.TypeSpawn,
		ProtocolVersion: protocol.Version,
		Name:            parts[0],
		Role:            parts[1],
		Room:            parts[2],
	}
	if len(parts) > 3 {
		m.Data.SourceID = parts[3]
	}
	if len(parts) > 4 {
		m.Data.TargetID = parts[4]
	}
	return m, nil
}

func main() {
	var (
		base   = flag.String("url", "http://localhost:8080", "colony server base url")
		rooms  = flag.String("rooms", "", "comma-separated rooms to observe (empty: all)")
		every  = flag.Int("every", 1, "print every N ticks")
		spawns spawnFlags
	)
	flag.Var(&spawns, "spawn", "spawn request name:role:room[:source[:target]] (repeatable)")
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	client := &http.Client{Timeout: 10 * time.Second}
	for _, m := range spawns {
		res, err := postSpawn(client, *base, m)
		if err != nil {
			logger.Fatalf("spawn %s: %v", m.Name, err)
		}
		if !res.Accepted {
			logger.Printf("SPAWN %s rejected code=%s msg=%s", m.Name, res.Code, res.Message)
			continue
		}
		logger.Printf("SPAWN %s accepted index=%d tick=%d", m.Name, res.Index, res.ServerTick)
	}

	wsURL, err := observeURL(*base)
	if err != nil {
		logger.Fatalf("observe url: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		EveryTicks:      *every,
	}
	if *rooms != "" {
		sub.Rooms = strings.Split(*rooms, ",")
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeBase(msg)
		if err != nil || env.Type != protocol.TypeTick {
			continue
		}
		var t protocol.TickMsg
		if err := json.Unmarshal(msg, &t); err != nil {
			continue
		}
		logger.Print(formatTick(t))
	}
}

func postSpawn(client *http.Client, base string, m protocol.SpawnMsg) (protocol.SpawnResultMsg, error) {
	var res protocol.SpawnResultMsg
	b, err := json.Marshal(m)
	if err != nil {
		return res, err
	}
	resp, err := client.Post(strings.TrimRight(base, "/")+"/v1/spawn", "application/json", bytes.NewReader(b))
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}
	return res, nil
}

func observeURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/observe"
	return u.String(), nil
}

func formatTick(t protocol.TickMsg) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TICK %d agents=%d transitions=%d failures=%d", t.Tick, t.Agents, t.Transitions, len(t.Failures))
	for _, r := range t.Rooms {
		fmt.Fprintf(&sb, " %s[spawn=%d center=%d reserved=%d]", r.Name, r.SpawnQueue, r.CenterQueue, r.Reservations)
	}
	for _, s := range t.Said {
		fmt.Fprintf(&sb, " %s:%q", s.Name, s.Text)
	}
	return sb.String()
}
