package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

// DocStore implements Store with one JSONB document per tournament. The
// schema is owned by the migrations package.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *DocStore) get(ctx context.Context, table, id string, dest any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (s *DocStore) del(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DocStore) CreateTournament(ctx context.Context, doc tournamentDoc) error {
	ts := now()
	doc.CreatedAt, doc.UpdatedAt = ts, ts
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tournaments (id, name, status, data, created_at, updated_at)
		 VALUES (?, ?, ?, jsonb(?), ?, ?)`,
		doc.Tournament.ID, doc.Tournament.Name, doc.Status, string(data), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("inserting tournament: %w", err)
	}
	return nil
}

func (s *DocStore) Tournament(ctx context.Context, id string) (tournamentDoc, error) {
	var doc tournamentDoc
	if err := s.get(ctx, "tournaments", id, &doc); err != nil {
		return tournamentDoc{}, err
	}
	return doc, nil
}

func (s *DocStore) ListTournaments(ctx context.Context) ([]TournamentSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM tournaments ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []TournamentSummary{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var doc tournamentDoc
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, err
		}
		list = append(list, TournamentSummary{
			ID:           doc.Tournament.ID,
			Name:         doc.Tournament.Name,
			Status:       doc.Status,
			Participants: len(doc.Participants),
			Champion:     doc.Champion,
			CreatedAt:    doc.CreatedAt,
		})
	}
	return list, rows.Err()
}

func (s *DocStore) UpdateTournament(ctx context.Context, doc tournamentDoc, played []bracket.Match) error {
	doc.UpdatedAt = now()
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE tournaments SET name = ?, status = ?, data = jsonb(?), updated_at = ? WHERE id = ?`,
		doc.Tournament.Name, doc.Status, string(data), doc.UpdatedAt, doc.Tournament.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tournament: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	for _, m := range played {
		var s1, s2 sql.NullInt64
		if m.Score != nil {
			s1 = sql.NullInt64{Int64: int64(m.Score.Team1), Valid: true}
			s2 = sql.NullInt64{Int64: int64(m.Score.Team2), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO match_results (tournament_id, match_id, winner, loser, score1, score2, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (tournament_id, match_id) DO NOTHING`,
			doc.Tournament.ID, m.ID, string(m.Winner), string(m.Loser), s1, s2, doc.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("recording result %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

func (s *DocStore) DeleteTournament(ctx context.Context, id string) error {
	if err := s.del(ctx, "tournaments", id); err != nil {
		return err
	}
	// Foreign keys are only enforced on connections that enabled them.
	_, err := s.db.ExecContext(ctx, `DELETE FROM match_results WHERE tournament_id = ?`, id)
	return err
}

func (s *DocStore) MatchResults(ctx context.Context, id string) ([]MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id, winner, loser, score1, score2, recorded_at
		 FROM match_results WHERE tournament_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []MatchResult{}
	for rows.Next() {
		var (
			r      MatchResult
			s1, s2 sql.NullInt64
		)
		if err := rows.Scan(&r.MatchID, &r.Winner, &r.Loser, &s1, &s2, &r.RecordedAt); err != nil {
			return nil, err
		}
		if s1.Valid && s2.Valid {
			r.Score = &bracket.Score{Team1: int(s1.Int64), Team2: int(s2.Int64)}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
