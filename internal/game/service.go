package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/derekprior/legacies/internal/catalogue"
	"github.com/derekprior/legacies/internal/draft"
	"github.com/derekprior/legacies/internal/history"
	"github.com/derekprior/legacies/internal/rating"
)

// LobbyResetter empties a lobby once its game is over.
type LobbyResetter interface {
	Reset(id string) error
}

// VoteResult is the outcome of one score vote.
type VoteResult struct {
	Votes    int
	Required int
	// Changes is set when this vote settled the game.
	Changes  map[uint64]int
	Finished bool
}

// Service runs games from draft to result.
type Service struct {
	store    Store
	rating   *rating.Engine
	lobbies  LobbyResetter
	defaults []string
	clock    clock.Clock
	logger   zerolog.Logger

	mu     sync.Mutex
	engine *draft.Engine
}

// Config holds the Service dependencies. Lobbies may be nil.
type Config struct {
	Store              Store
	Engine             *draft.Engine
	Rating             *rating.Engine
	Lobbies            LobbyResetter
	DefaultPreferences []string
	Clock              clock.Clock
	Logger             zerolog.Logger
}

func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Rating == nil {
		cfg.Rating = rating.NewEngine(rating.DefaultK)
	}
	if cfg.DefaultPreferences == nil {
		cfg.DefaultPreferences = catalogue.DefaultPreferences()
	}
	return &Service{
		store:    cfg.Store,
		engine:   cfg.Engine,
		rating:   cfg.Rating,
		lobbies:  cfg.Lobbies,
		defaults: cfg.DefaultPreferences,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
}

// StartDraft drafts players into an InProgress game. Players without
// preferences get the defaults and every rating is loaded from the stats
// store before balancing.
func (s *Service) StartDraft(ctx context.Context, players []*draft.Player, lobbyID string) (*Game, error) {
	for _, p := range players {
		if p == nil {
			return nil, fmt.Errorf("%w: nil player", draft.ErrInvalidArgument)
		}
		if len(p.Preferences) == 0 {
			p.Preferences = append([]string(nil), s.defaults...)
		}
		st, err := s.store.Stats().GetOrCreate(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("loading rating for %d: %w", p.ID, err)
		}
		p.Rating = st.Rating
	}

	g := New(lobbyID, s.clock.Now().UTC())

	s.mu.Lock()
	teamA, teamB, err := s.engine.Run(players)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("running draft: %w", err)
	}
	g.TeamA, g.TeamB = teamA, teamB

	if !g.CompareAndTransition(Drafting, InProgress) {
		return nil, fmt.Errorf("starting game: unexpected state %s", g.State())
	}
	if err := s.store.Games().Create(ctx, g); err != nil {
		return nil, fmt.Errorf("saving game: %w", err)
	}

	s.logger.Info().
		Int("game", g.ID).
		Str("lobby", lobbyID).
		Int("rating_a", teamA.TotalRating()).
		Int("rating_b", teamB.TotalRating()).
		Msg("game started")
	return g, nil
}

// Vote records a participant's score report and settles the game when the
// score reaches quorum.
func (s *Service) Vote(ctx context.Context, gameID int, playerID uint64, score Score) (VoteResult, error) {
	g, err := s.store.Games().Get(ctx, gameID)
	if err != nil {
		return VoteResult{}, err
	}
	votes, err := s.store.Games().Vote(ctx, gameID, playerID, score)
	if err != nil {
		return VoteResult{}, err
	}

	res := VoteResult{Votes: votes, Required: g.Quorum()}
	if votes < res.Required {
		return res, nil
	}

	res.Changes, err = s.SubmitScore(ctx, gameID, score)
	if err != nil {
		return res, err
	}
	res.Finished = true
	return res, nil
}

// SubmitScore finishes a game with a result. A win applies rating changes;
// a draw records history with zero deltas. Only the first submission for a
// game succeeds; later ones fail with ErrAlreadyFinished.
func (s *Service) SubmitScore(ctx context.Context, gameID int, score Score) (map[uint64]int, error) {
	if !ValidScore(score) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScore, score)
	}

	var changes map[uint64]int
	var g *Game
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		g, err = tx.Games().Get(ctx, gameID)
		if err != nil {
			return err
		}
		if g.State() == Finished {
			return fmt.Errorf("%w: %d", ErrAlreadyFinished, gameID)
		}
		if err := tx.Games().Finish(ctx, gameID, score); err != nil {
			return err
		}

		if score.Draw() {
			changes = lo.Associate(g.Players(), func(p *draft.Player) (uint64, int) { return p.ID, 0 })
		} else {
			changes, err = s.rating.ApplyResult(ctx, g.TeamA.Players, g.TeamB.Players, score.TeamAWon(), tx.Stats())
			if err != nil {
				return fmt.Errorf("applying rating: %w", err)
			}
		}

		rec := history.NewRecord(g.ID, s.clock.Now(), score.A, score.B, g.TeamA, g.TeamB, changes)
		if err := tx.History().Record(ctx, rec); err != nil {
			return fmt.Errorf("recording history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("game", gameID).Str("score", score.String()).Msg("game finished")
	s.resetLobby(g)
	return changes, nil
}

// Kill ends a game without a result or rating changes.
func (s *Service) Kill(ctx context.Context, gameID int) error {
	var g *Game
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		g, err = tx.Games().Get(ctx, gameID)
		if err != nil {
			return err
		}
		return tx.Games().Kill(ctx, gameID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int("game", gameID).Msg("game killed")
	s.resetLobby(g)
	return nil
}

// Ongoing lists unfinished games.
func (s *Service) Ongoing(ctx context.Context) ([]*Game, error) {
	return s.store.Games().Ongoing(ctx)
}

// Resolve picks the game a command refers to. With id 0 it returns the only
// ongoing game, or an error when there are none or several.
func (s *Service) Resolve(ctx context.Context, id int) (*Game, error) {
	if id != 0 {
		return s.store.Games().Get(ctx, id)
	}
	games, err := s.Ongoing(ctx)
	if err != nil {
		return nil, err
	}
	switch len(games) {
	case 0:
		return nil, fmt.Errorf("%w: no ongoing games", ErrNotFound)
	case 1:
		return games[0], nil
	default:
		return nil, fmt.Errorf("%d games are active, specify a game id", len(games))
	}
}

func (s *Service) resetLobby(g *Game) {
	if s.lobbies == nil || g == nil || g.LobbyID == "" {
		return
	}
	if err := s.lobbies.Reset(g.LobbyID); err != nil {
		s.logger.Warn().Err(err).Str("lobby", g.LobbyID).Msg("resetting lobby")
	}
}
