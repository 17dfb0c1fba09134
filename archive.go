package ctsim

// file archive.go keeps a record of finished runs in a SQLite database: the run itself,
// the nodes and links of its graph, and its trace records

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	topology  TEXT NOT NULL,
	duration  REAL NOT NULL,
	finished  INTEGER NOT NULL,
	num_nodes INTEGER NOT NULL,
	num_links INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	run_id  TEXT NOT NULL,
	node_id INTEGER NOT NULL,
	name    TEXT NOT NULL,
	entity  TEXT NOT NULL,
	role    TEXT NOT NULL,
	layer   TEXT NOT NULL,
	powered INTEGER NOT NULL,
	PRIMARY KEY (run_id, node_id)
);
CREATE TABLE IF NOT EXISTS links (
	run_id    TEXT NOT NULL,
	link_id   INTEGER NOT NULL,
	node_a    TEXT NOT NULL,
	node_b    TEXT NOT NULL,
	data_rate REAL NOT NULL,
	delay     REAL NOT NULL,
	PRIMARY KEY (run_id, link_id)
);
CREATE TABLE IF NOT EXISTS traces (
	run_id    TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	tracetime REAL NOT NULL,
	tracetype TEXT NOT NULL,
	tracestr  TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// RunRecord describes one stored run
type RunRecord struct {
	ID       string
	Name     string
	Topology string
	Duration float64
	Finished time.Time
	NumNodes int
	NumLinks int
}

// RunArchive is a SQLite database of runs
type RunArchive struct {
	*sql.DB
	dbName string
}

// OpenRunArchive opens, creating when needed, the database held in the named file
func OpenRunArchive(dbName string) (*RunArchive, error) {
	db, err := sql.Open("sqlite", dbName)
	if err != nil {
		return nil, &SourceError{Path: dbName, Err: err}
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, &SourceError{Path: dbName, Err: err}
	}
	return &RunArchive{DB: db, dbName: dbName}, nil
}

// Save writes the run, its graph and its trace in one transaction.  A run without
// an ID is given a fresh one; the ID used is returned.
func (ra *RunArchive) Save(run RunRecord, g *Graph, tm *TraceManager) (string, error) {
	if len(run.ID) == 0 {
		run.ID = xid.New().String()
	}
	if run.Finished.IsZero() {
		run.Finished = time.Now()
	}
	run.NumNodes = g.NumNodes()
	run.NumLinks = len(g.Links)

	tx, err := ra.Begin()
	if err != nil {
		return "", err
	}

	if err := saveRun(tx, run, g, tm); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("archive %s run %s: %w", ra.dbName, run.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

func saveRun(tx *sql.Tx, run RunRecord, g *Graph, tm *TraceManager) error {
	_, err := tx.Exec(`INSERT INTO runs (id, name, topology, duration, finished, num_nodes, num_links)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Topology, run.Duration, run.Finished.Unix(), run.NumNodes, run.NumLinks)
	if err != nil {
		return err
	}

	nodeStmt, err := tx.Prepare(`INSERT INTO nodes (run_id, node_id, name, entity, role, layer, powered)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for _, node := range g.Nodes {
		_, err := nodeStmt.Exec(run.ID, node.ID, node.Name, node.Entity, node.Role.String(),
			node.Layer.String(), node.Powered)
		if err != nil {
			return err
		}
	}

	linkStmt, err := tx.Prepare(`INSERT INTO links (run_id, link_id, node_a, node_b, data_rate, delay)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer linkStmt.Close()
	for _, link := range g.Links {
		if _, err := linkStmt.Exec(run.ID, link.ID, link.A.Name, link.B.Name, link.DataRate, link.Delay); err != nil {
			return err
		}
	}

	if tm == nil || !tm.Active() {
		return nil
	}

	traceStmt, err := tx.Prepare(`INSERT INTO traces (run_id, seq, tracetime, tracetype, tracestr)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer traceStmt.Close()
	for seq, trace := range tm.Ordered() {
		if _, err := traceStmt.Exec(run.ID, seq, trace.TraceTime, trace.TraceType, trace.TraceStr); err != nil {
			return err
		}
	}
	return nil
}

// Runs lists the stored runs, oldest first
func (ra *RunArchive) Runs() ([]RunRecord, error) {
	rows, err := ra.Query(`SELECT id, name, topology, duration, finished, num_nodes, num_links
		FROM runs ORDER BY finished, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		var run RunRecord
		var finished int64
		if err := rows.Scan(&run.ID, &run.Name, &run.Topology, &run.Duration, &finished,
			&run.NumNodes, &run.NumLinks); err != nil {
			return nil, err
		}
		run.Finished = time.Unix(finished, 0)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// NodeNames returns the names of the nodes stored for a run, in node id order
func (ra *RunArchive) NodeNames(runID string) ([]string, error) {
	rows, err := ra.Query(`SELECT name FROM nodes WHERE run_id = ? ORDER BY node_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Count returns the number of rows a run holds in one of the tables nodes, links or traces
func (ra *RunArchive) Count(table, runID string) (int, error) {
	switch table {
	case "nodes", "links", "traces":
	default:
		return 0, fmt.Errorf("archive has no table %q", table)
	}

	var count int
	err := ra.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE run_id = ?`, runID).Scan(&count)
	return count, err
}
