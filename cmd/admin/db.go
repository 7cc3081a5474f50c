package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	gridKey := fs.String("grid", "", "grid_key filter (results, requests)")
	result := fs.String("result", "", "result filter (requests)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "grids"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "gridnav.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "grids":
		rows, err := db.Query(`SELECT key,resolution,width,height,regions,walkable,water,digest,snapshot_path,recorded_at FROM grids ORDER BY key`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Key          string `json:"key"`
				Resolution   int    `json:"resolution"`
				Width        int    `json:"width"`
				Height       int    `json:"height"`
				Regions      int    `json:"regions"`
				Walkable     int    `json:"walkable"`
				Water        int    `json:"water"`
				Digest       string `json:"digest"`
				SnapshotPath string `json:"snapshot_path"`
				RecordedAt   string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Key, &r.Resolution, &r.Width, &r.Height, &r.Regions, &r.Walkable, &r.Water, &r.Digest, &r.SnapshotPath, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "results":
		query := `SELECT grid_key,mode,result,COUNT(*),AVG(iterations),AVG(elapsed_us) FROM path_requests GROUP BY grid_key,mode,result ORDER BY grid_key,mode,result`
		var qargs []any
		if k := strings.TrimSpace(*gridKey); k != "" {
			query = `SELECT grid_key,mode,result,COUNT(*),AVG(iterations),AVG(elapsed_us) FROM path_requests WHERE grid_key=? GROUP BY grid_key,mode,result ORDER BY grid_key,mode,result`
			qargs = []any{k}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				GridKey       string  `json:"grid_key"`
				Mode          string  `json:"mode"`
				Result        string  `json:"result"`
				Count         int     `json:"count"`
				AvgIterations float64 `json:"avg_iterations"`
				AvgElapsedUs  float64 `json:"avg_elapsed_us"`
			}
			if err := rows.Scan(&r.GridKey, &r.Mode, &r.Result, &r.Count, &r.AvgIterations, &r.AvgElapsedUs); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "requests":
		if *limit <= 0 {
			*limit = 20
		}
		where, qargs := requestFilter(*gridKey, *result)
		qargs = append(qargs, *limit)
		rows, err := db.Query(`SELECT id,grid_key,mode,result,start_id,goal_id,iterations,path_len,elapsed_us,recorded_at FROM path_requests`+where+` ORDER BY recorded_at DESC LIMIT ?`, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID         string `json:"id"`
				GridKey    string `json:"grid_key"`
				Mode       string `json:"mode"`
				Result     string `json:"result"`
				StartID    int    `json:"start_id"`
				GoalID     int    `json:"goal_id"`
				Iterations int    `json:"iterations"`
				PathLen    int    `json:"path_len"`
				ElapsedUs  int64  `json:"elapsed_us"`
				RecordedAt string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.ID, &r.GridKey, &r.Mode, &r.Result, &r.StartID, &r.GoalID, &r.Iterations, &r.PathLen, &r.ElapsedUs, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-grid KEY] [-result R] [-limit N] grids|results|requests")
		os.Exit(2)
	}
}

func requestFilter(gridKey, result string) (string, []any) {
	var conds []string
	var args []any
	if k := strings.TrimSpace(gridKey); k != "" {
		conds = append(conds, "grid_key=?")
		args = append(args, k)
	}
	if r := strings.TrimSpace(result); r != "" {
		conds = append(conds, "result=?")
		args = append(args, r)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
