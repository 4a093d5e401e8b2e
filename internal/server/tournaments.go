package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

// Tournaments runs tournament workflows on top of the bracket engine: it
// seeds and builds new tournaments, and applies results under the
// tournament's lock so concurrent reports cannot interleave.
type Tournaments struct {
	store     Store
	locker    Locker
	engine    *bracket.Engine
	broker    *Broker
	metrics   *Metrics
	logger    *slog.Logger
	ratings   bracket.RatingLookup
	tokenCost int
}

// authorizeFunc checks the caller against the stored organizer token hash.
type authorizeFunc func(tokenHash string) error

// ParticipantInput is one roster entry of a create request. ID is generated
// when empty.
type ParticipantInput struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating,omitempty"`
}

type CreateTournamentRequest struct {
	Name            string             `json:"name"`
	Type            string             `json:"type,omitempty" enum:"DOUBLE_ELIMINATION,SINGLE_ELIMINATION,ROUND_ROBIN"`
	GameType        string             `json:"gameType,omitempty" enum:"SINGLES,DOUBLES"`
	SeedingMethod   string             `json:"seedingMethod,omitempty" enum:"RATING,MANUAL"`
	GrandFinalReset bool               `json:"grandFinalReset,omitempty"`
	Participants    []ParticipantInput `json:"participants"`
	// ManualOrder lists participant ids from seed 1 down for MANUAL seeding.
	ManualOrder []string `json:"manualOrder,omitempty"`
}

type TournamentDetail struct {
	bracket.Tournament
	Status       string                `json:"status"`
	Champion     bracket.ParticipantID `json:"champion,omitempty"`
	Participants []bracket.Participant `json:"participants"`
	Bracket      *bracket.Bracket      `json:"bracket"`
	CreatedAt    string                `json:"createdAt"`
	UpdatedAt    string                `json:"updatedAt"`
}

// Progress is what a result or advancement changed.
type Progress struct {
	Match     *bracket.Match        `json:"match,omitempty"`
	Ready     []bracket.Match       `json:"ready"`
	Champion  bracket.ParticipantID `json:"champion,omitempty"`
	Completed bool                  `json:"completed"`

	// finished is set on the call that produced the champion.
	finished bool
}

func detailFromDoc(doc tournamentDoc) TournamentDetail {
	return TournamentDetail{
		Tournament:   doc.Tournament,
		Status:       doc.Status,
		Champion:     doc.Champion,
		Participants: doc.Participants,
		Bracket:      doc.Bracket,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

// roster turns request entries into participants, generating missing ids.
func roster(in []ParticipantInput) []bracket.Participant {
	ps := make([]bracket.Participant, len(in))
	for i, p := range in {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			id = uuid.NewString()
		}
		ps[i] = bracket.Participant{
			ID:     bracket.ParticipantID(id),
			Name:   strings.TrimSpace(p.Name),
			Rating: p.Rating,
		}
	}
	return ps
}

// configure fills the tournament defaults for a request.
func configure(req CreateTournamentRequest) bracket.Tournament {
	t := bracket.Tournament{
		Name:             strings.TrimSpace(req.Name),
		Type:             bracket.TournamentType(req.Type),
		GameType:         bracket.GameType(req.GameType),
		SeedingMethod:    bracket.SeedingMethod(req.SeedingMethod),
		ParticipantCount: len(req.Participants),
		GrandFinalReset:  req.GrandFinalReset,
	}
	if t.Type == "" {
		t.Type = bracket.TypeDoubleElimination
	}
	if t.GameType == "" {
		t.GameType = bracket.GameSingles
	}
	if t.SeedingMethod == "" {
		t.SeedingMethod = bracket.SeedingRating
	}
	return t
}

// seed validates the configuration and seeds the roster.
func seed(t bracket.Tournament, ps []bracket.Participant, order []string, ratings bracket.RatingLookup) ([]bracket.Participant, error) {
	if err := bracket.ValidateConfiguration(t, len(ps)); err != nil {
		return nil, err
	}
	ids := make([]bracket.ParticipantID, len(order))
	for i, id := range order {
		ids[i] = bracket.ParticipantID(id)
	}
	seeder, err := bracket.NewSeeder(t, ids, ratings)
	if err != nil {
		return nil, err
	}
	return seeder.Seed(t, ps)
}

// Create seeds and builds a new tournament. The returned token is the only
// copy of the organizer credential.
func (s *Tournaments) Create(ctx context.Context, req CreateTournamentRequest) (TournamentDetail, string, error) {
	t := configure(req)
	if t.Name == "" {
		return TournamentDetail{}, "", fmt.Errorf("%w: name is required", bracket.ErrInvalidConfiguration)
	}
	t.ID = uuid.NewString()

	seeded, err := seed(t, roster(req.Participants), req.ManualOrder, s.ratings)
	if err != nil {
		return TournamentDetail{}, "", err
	}
	b, err := bracket.GenerateInitialBracket(t, seeded)
	if err != nil {
		return TournamentDetail{}, "", err
	}

	token, hash, err := newOrganizerToken(s.tokenCost)
	if err != nil {
		return TournamentDetail{}, "", err
	}

	doc := tournamentDoc{
		Tournament:   t,
		Participants: seeded,
		Bracket:      b,
		Status:       StatusInProgress,
		TokenHash:    hash,
	}
	if err := s.store.CreateTournament(ctx, doc); err != nil {
		return TournamentDetail{}, "", err
	}
	saved, err := s.store.Tournament(ctx, t.ID)
	if err != nil {
		return TournamentDetail{}, "", err
	}

	s.metrics.TournamentsCreated.Inc()
	ready := s.engine.ReadyMatches(b)
	s.countReady(ready)
	s.logger.Info("tournament created",
		"tournament", t.ID, "participants", len(seeded), "bracket_size", b.Size, "ready", len(ready))
	return detailFromDoc(saved), token, nil
}

func (s *Tournaments) Get(ctx context.Context, id string) (tournamentDoc, error) {
	return s.store.Tournament(ctx, id)
}

func (s *Tournaments) List(ctx context.Context) ([]TournamentSummary, error) {
	return s.store.ListTournaments(ctx)
}

func (s *Tournaments) Results(ctx context.Context, id string) ([]MatchResult, error) {
	if _, err := s.store.Tournament(ctx, id); err != nil {
		return nil, err
	}
	return s.store.MatchResults(ctx, id)
}

// Ready lists the playable matches of a tournament.
func (s *Tournaments) Ready(ctx context.Context, id string) ([]bracket.Match, error) {
	doc, err := s.store.Tournament(ctx, id)
	if err != nil {
		return nil, err
	}
	ready := s.engine.ReadyMatches(doc.Bracket)
	if ready == nil {
		ready = []bracket.Match{}
	}
	return ready, nil
}

func (s *Tournaments) Delete(ctx context.Context, id string, authorize authorizeFunc) error {
	err := s.withLock(ctx, id, func() error {
		doc, err := s.store.Tournament(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(doc.TokenHash); err != nil {
			return err
		}
		return s.store.DeleteTournament(ctx, id)
	})
	if err != nil {
		return err
	}
	if l, ok := s.locker.(*LocalLocker); ok {
		l.Forget(id)
	}
	s.logger.Info("tournament deleted", "tournament", id)
	return nil
}

// Report records the result of one match and advances the bracket.
func (s *Tournaments) Report(ctx context.Context, id, matchID string, winner bracket.ParticipantID, score *bracket.Score, authorize authorizeFunc) (Progress, error) {
	var p Progress
	err := s.withLock(ctx, id, func() error {
		doc, err := s.store.Tournament(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(doc.TokenHash); err != nil {
			return err
		}
		m, err := bracket.RecordResult(doc.Bracket, matchID, winner, score)
		if err != nil {
			return err
		}
		p, err = s.advance(ctx, &doc, []string{matchID})
		if err != nil {
			return err
		}
		played := *m
		p.Match = &played
		if err := s.store.UpdateTournament(ctx, doc, []bracket.Match{played}); err != nil {
			return err
		}
		s.metrics.ResultsRecorded.WithLabelValues(string(played.Bracket)).Inc()
		return nil
	})
	if err != nil {
		return Progress{}, err
	}

	s.logger.Info("result recorded",
		"tournament", id, "match", matchID, "winner", winner, "ready", len(p.Ready))
	s.broker.Publish(Event{Type: EventMatchCompleted, Tournament: id, Match: p.Match})
	s.announce(id, p)
	return p, nil
}

// Advance re-runs advancement without a new result. It changes nothing on a
// bracket that is already up to date.
func (s *Tournaments) Advance(ctx context.Context, id string, authorize authorizeFunc) (Progress, error) {
	var p Progress
	err := s.withLock(ctx, id, func() error {
		doc, err := s.store.Tournament(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(doc.TokenHash); err != nil {
			return err
		}
		p, err = s.advance(ctx, &doc, nil)
		if err != nil {
			return err
		}
		if len(p.Ready) == 0 && !p.finished {
			return nil
		}
		return s.store.UpdateTournament(ctx, doc, nil)
	})
	if err != nil {
		return Progress{}, err
	}
	s.announce(id, p)
	return p, nil
}

// advance runs the engine over doc and refreshes its derived fields.
func (s *Tournaments) advance(ctx context.Context, doc *tournamentDoc, completed []string) (Progress, error) {
	wasDone := doc.Status == StatusCompleted
	start := time.Now()
	ready, err := s.engine.Advance(doc.Tournament, completed, doc.Participants, doc.Bracket)
	s.metrics.AdvanceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.ErrorContext(ctx, "advancing bracket", "tournament", doc.Tournament.ID, "error", err)
		return Progress{}, err
	}
	if ready == nil {
		ready = []bracket.Match{}
	}

	doc.Participants = bracket.MarkEliminated(doc.Bracket, doc.Participants)
	p := Progress{Ready: ready}
	if champion, ok := bracket.Champion(doc.Bracket); ok {
		doc.Status = StatusCompleted
		doc.Champion = champion
		p.Champion = champion
		p.Completed = true
		p.finished = !wasDone
	}
	return p, nil
}

func (s *Tournaments) announce(id string, p Progress) {
	s.countReady(p.Ready)
	for i := range p.Ready {
		s.broker.Publish(Event{Type: EventMatchReady, Tournament: id, Match: &p.Ready[i]})
	}
	if p.finished {
		s.metrics.TournamentsDone.Inc()
		s.logger.Info("tournament completed", "tournament", id, "champion", p.Champion)
		s.broker.Publish(Event{Type: EventTournamentCompleted, Tournament: id, Champion: p.Champion})
	}
}

func (s *Tournaments) countReady(ms []bracket.Match) {
	for _, m := range ms {
		s.metrics.MatchesReady.WithLabelValues(string(m.Bracket)).Inc()
	}
}

func (s *Tournaments) withLock(ctx context.Context, id string, fn func() error) error {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("locking tournament %s: %w", id, err)
	}
	defer unlock()
	s.metrics.LockWait.Observe(time.Since(start).Seconds())
	return fn()
}
