package bracket

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/common/models"
)

type State int

const (
	StateLoading State = iota
	StateRoundInPlay
	StateChampionDeclared
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "LOADING"
	case StateRoundInPlay:
		return "ROUND_IN_PLAY"
	case StateChampionDeclared:
		return "CHAMPION_DECLARED"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	TournamentId string
	CategoryId   string
	PlayerCount  int
	AdminIds     []string
}

// Snapshot is a copy of the engine state safe to hand to callers.
type Snapshot struct {
	TournamentId       string
	CategoryId         string
	State              State
	CurrentRound       int
	Title              string
	Rounds             []Round
	Champion           Champion
	CanAdvance         bool
	CanDeclareChampion bool
	CanGoBack          bool
}

// Current returns the round in play, or the final once a champion is declared.
func (s Snapshot) Current() (Round, bool) {
	if s.State == StateLoading || s.CurrentRound >= len(s.Rounds) {
		return Round{}, false
	}
	return s.Rounds[s.CurrentRound], true
}

// Engine drives one single-elimination draw. All methods are safe for
// concurrent use; mutations are serialized.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	admins map[string]struct{}
	store  Store
	logger *logger.Logger

	state    State
	rounds   []Round
	current  int
	champion Champion
	// declared stays set while a stored champion exists, including after
	// navigating back from it; only Advance clears it.
	declared bool
}

func NewEngine(cfg Config, store Store, log *logger.Logger) (*Engine, error) {
	if !ValidPlayerCount(cfg.PlayerCount) {
		return nil, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("player count must be a power of two and at least 2, got %d", cfg.PlayerCount))
	}

	admins := make(map[string]struct{}, len(cfg.AdminIds))
	for _, id := range cfg.AdminIds {
		admins[id] = struct{}{}
	}

	return &Engine{
		cfg:    cfg,
		admins: admins,
		store:  store,
		logger: log.With("component", "bracket", "tournament_id", cfg.TournamentId, "category_id", cfg.CategoryId),
		state:  StateLoading,
	}, nil
}

// Load reconstructs the draw from every persisted round. Stored rounds must
// form a contiguous chain starting at round 0 with halving slot counts; the
// chain is cut at the first round that does not fit.
func (e *Engine) Load(ctx context.Context) error {
	stored, err := e.store.ListRounds(ctx, e.cfg.TournamentId, e.cfg.CategoryId)
	if err != nil {
		e.logger.Error("failed to load bracket rounds", "error", err)
		return err
	}

	rounds := make([]Round, 0, len(stored))
	completed := false
	slots := e.cfg.PlayerCount
	for i, item := range stored {
		if item.RoundIndex != i || len(item.PlayerNames) != slots {
			e.logger.Warn("ignoring stored rounds that break the chain",
				"round_index", item.RoundIndex, "slots", len(item.PlayerNames), "expected_slots", slots)
			break
		}
		rounds = append(rounds, fromModel(item))
		completed = item.Completed
		slots /= 2
		if slots < 2 {
			break
		}
	}

	var champion *models.BracketChampion
	if len(rounds) > 0 && completed && rounds[len(rounds)-1].SlotCount() == 2 {
		champion, err = e.store.GetChampion(ctx, e.cfg.TournamentId, e.cfg.CategoryId)
		if err != nil {
			e.logger.Error("failed to load champion", "error", err)
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.champion = Champion{}
	e.declared = champion != nil
	switch {
	case len(rounds) == 0:
		e.rounds = []Round{newRound(0, e.cfg.PlayerCount)}
		e.current = 0
		e.state = StateRoundInPlay
	case champion != nil:
		e.rounds = rounds
		e.current = len(rounds) - 1
		e.champion = Champion{Name: champion.ChampionName, Score: champion.ChampionScore}
		e.state = StateChampionDeclared
	case completed && rounds[len(rounds)-1].SlotCount() > 2:
		last := rounds[len(rounds)-1]
		e.rounds = append(rounds, newRound(last.Index+1, last.SlotCount()/2))
		e.current = len(e.rounds) - 1
		e.state = StateRoundInPlay
	default:
		e.rounds = rounds
		e.current = len(rounds) - 1
		e.state = StateRoundInPlay
	}

	e.logger.Info("bracket loaded", "state", e.state.String(), "current_round", e.current, "stored_rounds", len(stored))
	return nil
}

// Advance closes the current round and opens the next one with empty slots.
// Rejected on the final.
func (e *Engine) Advance(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.canAdvance() {
		return e.precondition("advance")
	}

	cur := e.rounds[e.current]
	if err := e.store.AdvanceRound(ctx, toModel(e.cfg, cur, true), lastRoundIndex(e.cfg.PlayerCount)); err != nil {
		e.logger.Error("failed to persist round on advance", "round_index", cur.Index, "error", err)
		return asDatabaseError(err, "failed to persist round")
	}

	e.rounds = append(e.rounds[:e.current+1:e.current+1], newRound(cur.Index+1, cur.SlotCount()/2))
	e.current++
	e.champion = Champion{}
	e.declared = false

	e.logger.Info("bracket advanced", "round_index", e.current, "slots", e.rounds[e.current].SlotCount())
	return nil
}

// DeclareChampion closes the final. The champion starts empty; names and
// scores are never carried over from the final.
func (e *Engine) DeclareChampion(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.canDeclareChampion() {
		return e.precondition("declare champion")
	}

	final := e.rounds[e.current]
	if err := e.store.DeclareChampion(ctx, toModel(e.cfg, final, true), championModel(e.cfg, Champion{})); err != nil {
		e.logger.Error("failed to persist champion declaration", "error", err)
		return asDatabaseError(err, "failed to persist champion")
	}

	e.champion = Champion{}
	e.declared = true
	e.state = StateChampionDeclared

	e.logger.Info("champion declared")
	return nil
}

// GoBack navigates one step back. It never touches stored rounds.
func (e *Engine) GoBack() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateChampionDeclared:
		e.state = StateRoundInPlay
	case StateRoundInPlay:
		if e.current == 0 {
			return nil
		}
		e.current--
	default:
		return e.precondition("go back")
	}

	e.logger.Debug("bracket went back", "state", e.state.String(), "round_index", e.current)
	return nil
}

func (e *Engine) EditSlot(actor string, roundIndex int, slotIndex int, name string) error {
	return e.edit(actor, roundIndex, slotIndex, func(r Round) Round {
		return r.withPlayerName(slotIndex, name)
	})
}

func (e *Engine) EditScore(actor string, roundIndex int, slotIndex int, score string) error {
	return e.edit(actor, roundIndex, slotIndex, func(r Round) Round {
		return r.withScore(slotIndex, score)
	})
}

func (e *Engine) EditChampion(actor string, name string, score string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isAdmin(actor) {
		return apperrors.New(apperrors.CodeForbidden, "only tournament admins can edit the bracket")
	}
	if e.state != StateChampionDeclared {
		return e.precondition("edit champion")
	}

	e.champion = Champion{Name: name, Score: score}
	return nil
}

// SaveCurrent persists the round in play, or the champion once declared.
// A round is stored as completed only when a later round or a declared
// champion follows it.
func (e *Engine) SaveCurrent(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateChampionDeclared:
		if err := e.store.SaveChampion(ctx, championModel(e.cfg, e.champion)); err != nil {
			e.logger.Error("failed to save champion", "error", err)
			return asDatabaseError(err, "failed to save champion")
		}
	case StateRoundInPlay:
		cur := e.rounds[e.current]
		completed := e.current < len(e.rounds)-1 || e.declared
		if err := e.store.SaveRound(ctx, toModel(e.cfg, cur, completed)); err != nil {
			e.logger.Error("failed to save round", "round_index", cur.Index, "error", err)
			return asDatabaseError(err, "failed to save round")
		}
	default:
		return e.precondition("save")
	}

	return nil
}

func (e *Engine) CanAdvance() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canAdvance()
}

func (e *Engine) CanDeclareChampion() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canDeclareChampion()
}

func (e *Engine) CanGoBack() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canGoBack()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Title names what the administrator is looking at.
func (e *Engine) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title()
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	rounds := make([]Round, len(e.rounds))
	for i, r := range e.rounds {
		rounds[i] = r.clone()
	}

	return Snapshot{
		TournamentId:       e.cfg.TournamentId,
		CategoryId:         e.cfg.CategoryId,
		State:              e.state,
		CurrentRound:       e.current,
		Title:              e.title(),
		Rounds:             rounds,
		Champion:           e.champion,
		CanAdvance:         e.canAdvance(),
		CanDeclareChampion: e.canDeclareChampion(),
		CanGoBack:          e.canGoBack(),
	}
}

func (e *Engine) edit(actor string, roundIndex int, slotIndex int, apply func(Round) Round) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isAdmin(actor) {
		return apperrors.New(apperrors.CodeForbidden, "only tournament admins can edit the bracket")
	}
	if e.state == StateLoading {
		return e.precondition("edit")
	}
	if roundIndex < 0 || roundIndex >= len(e.rounds) {
		return apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("round %d does not exist", roundIndex))
	}
	if slotIndex < 0 || slotIndex >= e.rounds[roundIndex].SlotCount() {
		return apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("slot %d out of range", slotIndex))
	}

	e.rounds[roundIndex] = apply(e.rounds[roundIndex])
	return nil
}

func (e *Engine) canAdvance() bool {
	return e.state == StateRoundInPlay && e.rounds[e.current].SlotCount() > 2
}

func (e *Engine) canDeclareChampion() bool {
	return e.state == StateRoundInPlay && e.rounds[e.current].SlotCount() == 2
}

func (e *Engine) canGoBack() bool {
	return e.state == StateChampionDeclared || (e.state == StateRoundInPlay && e.current > 0)
}

func (e *Engine) title() string {
	switch e.state {
	case StateChampionDeclared:
		return Title(1, e.current+1)
	case StateRoundInPlay:
		return e.rounds[e.current].Title()
	default:
		return ""
	}
}

func (e *Engine) isAdmin(actor string) bool {
	_, ok := e.admins[actor]
	return ok
}

func (e *Engine) precondition(action string) error {
	return apperrors.New(apperrors.CodeFailedPrecondition,
		fmt.Sprintf("cannot %s in state %s at round %d", action, e.state.String(), e.current))
}

func asDatabaseError(err error, msg string) error {
	if _, ok := err.(*apperrors.AppError); ok {
		return err
	}
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, msg)
}

func fromModel(item models.BracketRound) Round {
	slots := len(item.PlayerNames)
	scores := make([]string, slots)
	copy(scores, item.Scores)

	version := item.Version
	if version < 1 {
		version = 1
	}

	return Round{
		Index:       item.RoundIndex,
		Version:     version,
		PlayerNames: append([]string(nil), item.PlayerNames...),
		Scores:      scores,
	}
}

func toModel(cfg Config, r Round, completed bool) *models.BracketRound {
	return &models.BracketRound{
		TournamentId: cfg.TournamentId,
		CategoryId:   cfg.CategoryId,
		RoundIndex:   r.Index,
		PlayerNames:  append([]string(nil), r.PlayerNames...),
		Scores:       append([]string(nil), r.Scores...),
		Completed:    completed,
		Version:      r.Version,
	}
}

func championModel(cfg Config, c Champion) *models.BracketChampion {
	return &models.BracketChampion{
		TournamentId:  cfg.TournamentId,
		CategoryId:    cfg.CategoryId,
		ChampionName:  c.Name,
		ChampionScore: c.Score,
	}
}
