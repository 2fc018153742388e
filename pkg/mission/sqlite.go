package mission

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-sarus/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS missions (
	mission_id TEXT PRIMARY KEY,
	start_time REAL NOT NULL,
	end_time REAL,
	duration REAL,
	objective TEXT,
	status TEXT,
	discovered_objects_json TEXT,
	path_taken_json TEXT,
	obstacles_encountered_json TEXT,
	distance_cm REAL,
	summary TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mission_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	mission_id TEXT,
	timestamp REAL,
	event_type TEXT,
	event_data_json TEXT,
	FOREIGN KEY (mission_id) REFERENCES missions (mission_id)
);
`

// Store persists missions in a local SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed creates) the mission database at path.
// Use ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("mission: open database: %w", err)
	}
	// modernc.org/sqlite misbehaves with concurrent writers on one file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("mission: init schema: %w", err)
	}
	log.Component("mission").Info("mission database ready", "path", path)
	return &Store{db: db}, nil
}

// StartMission implements Logger.
func (s *Store) StartMission(rec *Record) (string, error) {
	_, err := s.db.Exec(`
		INSERT INTO missions (mission_id, start_time, objective, status)
		VALUES (?, ?, ?, ?)`,
		rec.ID,
		float64(rec.StartTime.UnixNano())/1e9,
		rec.Objective,
		string(StatusActive),
	)
	if err != nil {
		return "", fmt.Errorf("mission: start mission: %w", err)
	}
	if err := s.LogEvent(rec.ID, "mission_start", map[string]any{"objective": rec.Objective}); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// LogEvent implements Logger.
func (s *Store) LogEvent(missionID, eventType string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("mission: encode event: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO mission_events (mission_id, timestamp, event_type, event_data_json)
		VALUES (?, ?, ?, ?)`,
		missionID,
		float64(time.Now().UnixNano())/1e9,
		eventType,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("mission: log event: %w", err)
	}
	return nil
}

// CompleteMission implements Logger.
func (s *Store) CompleteMission(rec *Record, summary string) error {
	discoveries, err := json.Marshal(rec.Discoveries())
	if err != nil {
		return fmt.Errorf("mission: encode discoveries: %w", err)
	}
	path, err := json.Marshal(rec.Path())
	if err != nil {
		return fmt.Errorf("mission: encode path: %w", err)
	}
	obstacles, err := json.Marshal(rec.Obstacles())
	if err != nil {
		return fmt.Errorf("mission: encode obstacles: %w", err)
	}
	end := rec.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	_, err = s.db.Exec(`
		UPDATE missions
		SET end_time = ?, duration = ?, status = ?,
		    discovered_objects_json = ?, path_taken_json = ?,
		    obstacles_encountered_json = ?, distance_cm = ?, summary = ?
		WHERE mission_id = ?`,
		float64(end.UnixNano())/1e9,
		end.Sub(rec.StartTime).Seconds(),
		string(rec.Status),
		string(discoveries),
		string(path),
		string(obstacles),
		rec.DistanceCM(),
		summary,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("mission: complete mission: %w", err)
	}
	return s.LogEvent(rec.ID, "mission_end", map[string]any{"status": string(rec.Status)})
}

// StoredMission is a row read back from the missions table.
type StoredMission struct {
	ID          string      `json:"mission_id"`
	Objective   string      `json:"objective"`
	Status      Status      `json:"status"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     time.Time   `json:"end_time"`
	Duration    float64     `json:"duration_seconds"`
	Discoveries []Discovery `json:"discoveries"`
	Path        []string    `json:"path"`
	Obstacles   []Obstacle  `json:"obstacles"`
	DistanceCM  float64     `json:"distance_cm"`
	Summary     string      `json:"summary"`
}

// RecentMissions returns the newest missions first, up to limit.
func (s *Store) RecentMissions(limit int) ([]StoredMission, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT mission_id, objective, status, start_time,
		       COALESCE(end_time, 0), COALESCE(duration, 0),
		       COALESCE(discovered_objects_json, '[]'),
		       COALESCE(path_taken_json, '[]'),
		       COALESCE(obstacles_encountered_json, '[]'),
		       COALESCE(distance_cm, 0), COALESCE(summary, '')
		FROM missions
		ORDER BY start_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("mission: query missions: %w", err)
	}
	defer rows.Close()

	var out []StoredMission
	for rows.Next() {
		var (
			m                      StoredMission
			startSec, endSec       float64
			discJS, pathJS, obstJS string
		)
		if err := rows.Scan(&m.ID, &m.Objective, &m.Status, &startSec, &endSec,
			&m.Duration, &discJS, &pathJS, &obstJS, &m.DistanceCM, &m.Summary); err != nil {
			return nil, fmt.Errorf("mission: scan mission: %w", err)
		}
		m.StartTime = time.Unix(0, int64(startSec*1e9))
		if endSec > 0 {
			m.EndTime = time.Unix(0, int64(endSec*1e9))
		}
		if err := json.Unmarshal([]byte(discJS), &m.Discoveries); err != nil {
			return nil, fmt.Errorf("mission: decode discoveries: %w", err)
		}
		if err := json.Unmarshal([]byte(pathJS), &m.Path); err != nil {
			return nil, fmt.Errorf("mission: decode path: %w", err)
		}
		if err := json.Unmarshal([]byte(obstJS), &m.Obstacles); err != nil {
			return nil, fmt.Errorf("mission: decode obstacles: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close implements Logger.
func (s *Store) Close() error { return s.db.Close() }

var _ Logger = (*Store)(nil)
