package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/paoshea/disco-sub000/internal/domain/enums"
	"github.com/paoshea/disco-sub000/internal/domain/model"
	pgrepo "github.com/paoshea/disco-sub000/internal/repo/postgres"
	"github.com/paoshea/disco-sub000/internal/services/chatrooms"
	"github.com/paoshea/disco-sub000/internal/services/geo"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
	ListCandidates(ctx context.Context, query pgrepo.CandidateQuery) ([]pgrepo.CandidateRecord, error)
}

type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID int64) (model.RawPreferences, error)
	UpsertPreferences(ctx context.Context, userID int64, patch model.RawPreferences, at time.Time) error
}

type MatchStore interface {
	FindByUsers(ctx context.Context, userID, targetID int64) (pgrepo.MatchRecord, error)
	UpsertStatus(ctx context.Context, tx pgx.Tx, actorUserID, targetUserID int64, status string, score model.MatchScore, now time.Time) (pgrepo.MatchRecord, error)
}

type ScoreCache interface {
	GetScore(ctx context.Context, userID, candidateID int64) (model.MatchScore, bool)
	SetScore(ctx context.Context, userID, candidateID int64, score model.MatchScore) error
	InvalidateUser(ctx context.Context, userID int64) error
}

type ChatRoomCreator interface {
	CreateRoom(ctx context.Context, userID, targetID int64) (chatrooms.Room, error)
}

type PhotoURLSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Config struct {
	CandidateLimit int
	PhotoURLTTL    time.Duration
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	Users       UserDirectory
	Preferences PreferenceStore
	Matches     MatchStore
}

type txRunner func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error

type Service struct {
	runTx   txRunner
	users   UserDirectory
	prefs   PreferenceStore
	matches MatchStore

	scoreCache  ScoreCache
	chatRooms   ChatRoomCreator
	photoSigner PhotoURLSigner

	calc *Calculator
	cfg  Config
	log  *zap.Logger
	now  func() time.Time
}

// MatchItem is one scored candidate in a discovery result.
type MatchItem struct {
	UserID      int64
	DisplayName string
	PhotoURL    string
	DistanceKM  float64
	Score       model.MatchScore
}

// StatusResult is the outcome of a status transition. ChatRoomID is
// set only on the call that completed a mutual acceptance and managed
// to create the room.
type StatusResult struct {
	Match      model.Match
	ChatRoomID string
}

func NewService(deps Dependencies, cfg Config, log *zap.Logger) *Service {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 200
	}
	if cfg.PhotoURLTTL <= 0 {
		cfg.PhotoURLTTL = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}

	var runTx txRunner
	if deps.Pool != nil {
		pool := deps.Pool
		runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		}
	}

	return &Service{
		runTx:   runTx,
		users:   deps.Users,
		prefs:   deps.Preferences,
		matches: deps.Matches,
		calc:    NewCalculator(DefaultWeights()),
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// AttachScoreCache enables read-through score caching. Scores are
// always computable without it; the cache is never a second source of
// truth.
func (s *Service) AttachScoreCache(cache ScoreCache) {
	s.scoreCache = cache
}

func (s *Service) AttachChatRooms(creator ChatRoomCreator) {
	s.chatRooms = creator
}

func (s *Service) AttachPhotoSigner(signer PhotoURLSigner) {
	s.photoSigner = signer
}

// FindMatches returns scored candidates for the viewer, best first.
// Hard filters (verified-only, with-photo, blocked pairs) are applied
// before scoring. Candidates without a location are skipped, never
// scored low, and a viewer without a location or in strict privacy
// mode gets an empty result rather than an error.
func (s *Service) FindMatches(ctx context.Context, userID int64) ([]MatchItem, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.users == nil || s.prefs == nil {
		return nil, fmt.Errorf("matching dependencies are not configured")
	}

	viewer, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	raw, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	viewerPrefs := NormalizePreferences(raw)

	if viewerPrefs.PrivacyMode == enums.PrivacyModeStrict {
		return []MatchItem{}, nil
	}
	if viewer.Lat == nil || viewer.Lon == nil {
		return []MatchItem{}, nil
	}

	viewerProfile := Profile{
		UserID:        viewer.ID,
		EmailVerified: viewer.EmailVerified,
		HasPhoto:      viewer.PhotoKey != "",
		Lat:           viewer.Lat,
		Lon:           viewer.Lon,
		Preferences:   viewerPrefs,
	}

	candidates, err := s.users.ListCandidates(ctx, pgrepo.CandidateQuery{
		ViewerUserID: userID,
		VerifiedOnly: viewerPrefs.VerifiedOnly,
		WithPhoto:    viewerPrefs.WithPhoto,
		Limit:        s.cfg.CandidateLimit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]MatchItem, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Lat == nil || candidate.Lon == nil {
			continue
		}

		candidateProfile := Profile{
			UserID:        candidate.ID,
			EmailVerified: candidate.EmailVerified,
			HasPhoto:      candidate.PhotoKey != "",
			Lat:           candidate.Lat,
			Lon:           candidate.Lon,
			Preferences:   NormalizePreferences(candidate.Preferences),
		}

		score, ok := s.scorePair(ctx, viewerProfile, candidateProfile)
		if !ok {
			continue
		}

		item := MatchItem{
			UserID:      candidate.ID,
			DisplayName: candidate.DisplayName,
			DistanceKM:  geo.DistanceKM(*viewer.Lat, *viewer.Lon, *candidate.Lat, *candidate.Lon),
			Score:       score,
		}

		if s.photoSigner != nil && candidate.PhotoKey != "" {
			url, signErr := s.photoSigner.PresignGet(ctx, candidate.PhotoKey, s.cfg.PhotoURLTTL)
			if signErr != nil {
				s.log.Warn("presign candidate photo",
					zap.Int64("candidate_id", candidate.ID),
					zap.Error(signErr),
				)
			} else {
				item.PhotoURL = url
			}
		}

		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score.Total > items[j].Score.Total
	})

	return items, nil
}

// scorePair computes the score for one viewer/candidate pair, going
// through the cache when one is attached. Cache failures degrade to a
// recompute, never to an error.
func (s *Service) scorePair(ctx context.Context, viewer, candidate Profile) (model.MatchScore, bool) {
	if s.scoreCache != nil {
		if score, hit := s.scoreCache.GetScore(ctx, viewer.UserID, candidate.UserID); hit {
			return score, true
		}
	}

	score, ok := s.calc.Calculate(viewer, candidate)
	if !ok {
		return model.MatchScore{}, false
	}

	if s.scoreCache != nil {
		if err := s.scoreCache.SetScore(ctx, viewer.UserID, candidate.UserID, score); err != nil {
			s.log.Warn("cache match score",
				zap.Int64("user_id", viewer.UserID),
				zap.Int64("candidate_id", candidate.UserID),
				zap.Error(err),
			)
		}
	}

	return score, true
}

// UpdateMatchStatus moves the pair relationship into the given status.
// Repeating a transition is idempotent. When an acceptance completes a
// mutual accept, exactly one chat room creation is attempted after the
// row is committed; a room failure is logged and reported via the
// empty ChatRoomID, the accepted status itself is never rolled back.
func (s *Service) UpdateMatchStatus(ctx context.Context, userID, targetID int64, status string) (StatusResult, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return StatusResult{}, ErrValidation
	}
	parsed, ok := enums.ParseMatchStatus(status)
	if !ok || parsed == enums.MatchStatusPending {
		return StatusResult{}, fmt.Errorf("invalid match status %q: %w", status, ErrValidation)
	}
	if s.runTx == nil || s.matches == nil {
		return StatusResult{}, fmt.Errorf("matching dependencies are not configured")
	}

	prev, err := s.matches.FindByUsers(ctx, userID, targetID)
	existed := true
	if err != nil {
		if !errors.Is(err, pgrepo.ErrMatchNotFound) {
			return StatusResult{}, err
		}
		existed = false
	}

	// The score snapshot is written once, when the row is first
	// created. If the pair is not scoreable right now the snapshot
	// stays zero; the status transition must not depend on it.
	var snapshot model.MatchScore
	if !existed {
		snapshot = s.snapshotScore(ctx, userID, targetID)
	}

	var rec pgrepo.MatchRecord
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		updated, upsertErr := s.matches.UpsertStatus(txCtx, tx, userID, targetID, string(parsed), snapshot, s.now())
		if upsertErr != nil {
			return upsertErr
		}
		rec = updated
		return nil
	}); err != nil {
		return StatusResult{}, err
	}

	result := StatusResult{Match: recordToMatch(rec)}

	if parsed == enums.MatchStatusAccepted && s.completesMutualAccept(prev, existed, userID, targetID) {
		if s.chatRooms == nil {
			s.log.Warn("mutual accept without chat room creator",
				zap.Int64("user_id", userID),
				zap.Int64("target_id", targetID),
			)
			return result, nil
		}
		room, roomErr := s.chatRooms.CreateRoom(ctx, userID, targetID)
		if roomErr != nil {
			s.log.Warn("create chat room for mutual accept",
				zap.Int64("user_id", userID),
				zap.Int64("target_id", targetID),
				zap.Error(roomErr),
			)
			return result, nil
		}
		result.ChatRoomID = room.RoomID
	}

	return result, nil
}

// completesMutualAccept is true only on the call that turns a one-sided
// acceptance into a mutual one: the other side must already have
// accepted and the actor must not have. A user re-accepting the same
// pair therefore never triggers a second room.
func (s *Service) completesMutualAccept(prev pgrepo.MatchRecord, existed bool, actorID, targetID int64) bool {
	if !existed {
		return false
	}
	return prev.AcceptedBy(targetID) && !prev.AcceptedBy(actorID)
}

// GetMatchStatus reports the relationship status for the pair. A pair
// with no stored row is pending, which is indistinguishable from a row
// explicitly reset to pending on purpose.
func (s *Service) GetMatchStatus(ctx context.Context, userID, targetID int64) (enums.MatchStatus, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return "", ErrValidation
	}
	if s.matches == nil {
		return "", fmt.Errorf("match store is nil")
	}

	rec, err := s.matches.FindByUsers(ctx, userID, targetID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return enums.MatchStatusPending, nil
		}
		return "", err
	}

	status, ok := enums.ParseMatchStatus(rec.Status)
	if !ok {
		return "", fmt.Errorf("stored match status %q is unknown", rec.Status)
	}

	return status, nil
}

// GetPreferences returns the viewer's effective preferences with every
// default applied.
func (s *Service) GetPreferences(ctx context.Context, userID int64) (model.MatchPreferences, error) {
	if userID <= 0 {
		return model.MatchPreferences{}, ErrValidation
	}
	if s.prefs == nil {
		return model.MatchPreferences{}, fmt.Errorf("preference store is nil")
	}

	raw, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return model.MatchPreferences{}, err
	}

	return NormalizePreferences(raw), nil
}

// UpdatePreferences merges the patch into the stored record and
// returns the resulting effective preferences. Cached scores for the
// user are invalidated since every component can shift.
func (s *Service) UpdatePreferences(ctx context.Context, userID int64, patch model.RawPreferences) (model.MatchPreferences, error) {
	if userID <= 0 {
		return model.MatchPreferences{}, ErrValidation
	}
	if err := validatePatch(patch); err != nil {
		return model.MatchPreferences{}, err
	}
	if s.prefs == nil {
		return model.MatchPreferences{}, fmt.Errorf("preference store is nil")
	}

	if err := s.prefs.UpsertPreferences(ctx, userID, patch, s.now()); err != nil {
		return model.MatchPreferences{}, err
	}

	if s.scoreCache != nil {
		if err := s.scoreCache.InvalidateUser(ctx, userID); err != nil {
			s.log.Warn("invalidate cached scores", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	raw, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return model.MatchPreferences{}, err
	}

	return NormalizePreferences(raw), nil
}

func validatePatch(patch model.RawPreferences) error {
	if patch.MaxDistanceKM != nil && *patch.MaxDistanceKM <= 0 {
		return fmt.Errorf("max distance must be positive: %w", ErrValidation)
	}
	if patch.AgeRange != nil {
		if patch.AgeRange.Min < 18 || patch.AgeRange.Max > 120 || patch.AgeRange.Min > patch.AgeRange.Max {
			return fmt.Errorf("invalid age range: %w", ErrValidation)
		}
	}
	if patch.PrivacyMode != nil {
		if _, ok := enums.ParsePrivacyMode(*patch.PrivacyMode); !ok {
			return fmt.Errorf("invalid privacy mode %q: %w", *patch.PrivacyMode, ErrValidation)
		}
	}
	if patch.TimeWindow != nil {
		if _, ok := enums.ParseTimeWindow(*patch.TimeWindow); !ok {
			return fmt.Errorf("invalid time window %q: %w", *patch.TimeWindow, ErrValidation)
		}
	}
	return nil
}

// snapshotScore computes the score stored with a newly created match
// row. It is best effort: a snapshot for an unscoreable or unknown
// pair is simply zero.
func (s *Service) snapshotScore(ctx context.Context, userID, targetID int64) model.MatchScore {
	if s.users == nil || s.prefs == nil {
		return model.MatchScore{}
	}

	viewer, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return model.MatchScore{}
	}
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return model.MatchScore{}
	}
	viewerRaw, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return model.MatchScore{}
	}
	targetRaw, err := s.prefs.GetPreferences(ctx, targetID)
	if err != nil {
		return model.MatchScore{}
	}

	score, ok := s.scorePair(ctx,
		Profile{
			UserID:        viewer.ID,
			EmailVerified: viewer.EmailVerified,
			HasPhoto:      viewer.PhotoKey != "",
			Lat:           viewer.Lat,
			Lon:           viewer.Lon,
			Preferences:   NormalizePreferences(viewerRaw),
		},
		Profile{
			UserID:        target.ID,
			EmailVerified: target.EmailVerified,
			HasPhoto:      target.PhotoKey != "",
			Lat:           target.Lat,
			Lon:           target.Lon,
			Preferences:   NormalizePreferences(targetRaw),
		},
	)
	if !ok {
		return model.MatchScore{}
	}

	return score
}

func recordToMatch(rec pgrepo.MatchRecord) model.Match {
	status, ok := enums.ParseMatchStatus(rec.Status)
	if !ok {
		status = enums.MatchStatusPending
	}

	return model.Match{
		ID:        rec.ID,
		UserLoID:  rec.UserLoID,
		UserHiID:  rec.UserHiID,
		Status:    status,
		Score:     rec.Score,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
