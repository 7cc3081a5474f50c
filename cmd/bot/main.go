package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"gridnav.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "client name")
		gridKey  = flag.String("grid", "", "grid key (default: first grid in WELCOME)")
		count    = flag.Int("n", 100, "number of path requests")
		window   = flag.Int("window", 16, "max requests in flight")
		async    = flag.Bool("async", false, "use asynchronous requests")
		optimize = flag.Bool("optimize", true, "ask for optimized waypoints")
		costName = flag.String("cost", "", "cost function (euclidean, planar, octile, zero)")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed for endpoints")
	)
	flag.Parse()
	if *window < 1 {
		*window = 1
	}

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	var w protocol.WelcomeMsg
	if err := conn.ReadJSON(&w); err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	logger.Printf("WELCOME session=%s tick_rate=%d grids=%d", w.SessionID, w.TickRateHz, len(w.Grids))

	g, ok := pickGrid(w.Grids, *gridKey)
	if !ok {
		logger.Fatalf("grid %q not served", *gridKey)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := rand.New(rand.NewSource(*seed))
	pending := map[string]time.Time{}
	results := map[string]int{}
	var totalCells, totalOptimized int
	var slowest time.Duration

	sent := 0
	for sent < *count || len(pending) > 0 {
		select {
		case <-stop:
			return
		default:
		}

		for sent < *count && len(pending) < *window {
			id := fmt.Sprintf("R%d", sent)
			req := protocol.PathRequestMsg{
				Type:            protocol.TypePathRequest,
				ProtocolVersion: protocol.Version,
				RequestID:       id,
				GridKey:         g.Key,
				Start:           randomPoint(r, g),
				End:             randomPoint(r, g),
				Cost:            *costName,
				Async:           *async,
				Optimize:        *optimize,
			}
			if err := conn.WriteJSON(req); err != nil {
				logger.Fatalf("send PATH_REQUEST: %v", err)
			}
			pending[id] = time.Now()
			sent++
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypePathResult:
			var res protocol.PathResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			at, ok := pending[res.RequestID]
			if !ok {
				continue
			}
			delete(pending, res.RequestID)
			if d := time.Since(at); d > slowest {
				slowest = d
			}
			if res.OK {
				results["OK"]++
				totalCells += len(res.Cells)
				totalOptimized += len(res.Optimized)
			} else {
				results[res.Code]++
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err == nil {
				logger.Printf("ERROR %s: %s", e.Code, e.Message)
			}
		}
	}

	codes := make([]string, 0, len(results))
	for c := range results {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		logger.Printf("%-20s %d", c, results[c])
	}
	if n := results["OK"]; n > 0 {
		logger.Printf("avg cells=%.1f avg optimized=%.1f slowest=%s",
			float64(totalCells)/float64(n), float64(totalOptimized)/float64(n), slowest)
	}
}

func pickGrid(grids []protocol.GridRef, key string) (protocol.GridRef, bool) {
	for _, g := range grids {
		if key == "" || g.Key == key {
			return g, true
		}
	}
	return protocol.GridRef{}, false
}

// randomPoint picks a world position inside the grid's interior.
func randomPoint(r *rand.Rand, g protocol.GridRef) [3]float32 {
	row := 1 + r.Intn(max(g.Height-2, 1))
	col := 1 + r.Intn(max(g.Width-2, 1))
	return [3]float32{
		(float32(row) + 0.5) * g.CellSize[0],
		0,
		(float32(col) + 0.5) * g.CellSize[1],
	}
}
