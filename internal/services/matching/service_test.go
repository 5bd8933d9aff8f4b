package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/paoshea/disco-sub000/internal/domain/enums"
	"github.com/paoshea/disco-sub000/internal/domain/model"
	pgrepo "github.com/paoshea/disco-sub000/internal/repo/postgres"
	"github.com/paoshea/disco-sub000/internal/services/chatrooms"
)

func newTestService(users *stubUsers, prefs *stubPrefs, matches *stubMatchStore) *Service {
	svc := NewService(Dependencies{
		Users:       users,
		Preferences: prefs,
		Matches:     matches,
	}, Config{}, zap.NewNop())
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	svc.now = func() time.Time {
		return time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func locatedUser(id int64, lat, lon float64) pgrepo.UserRecord {
	return pgrepo.UserRecord{
		ID:            id,
		Email:         fmt.Sprintf("user%d@example.com", id),
		DisplayName:   fmt.Sprintf("user-%d", id),
		EmailVerified: true,
		Lat:           &lat,
		Lon:           &lon,
	}
}

func TestFindMatchesSortsByTotalDescending(t *testing.T) {
	near := locatedUser(2, 0.01, 0)
	far := locatedUser(3, 0.3, 0)

	users := &stubUsers{
		users: map[int64]pgrepo.UserRecord{1: locatedUser(1, 0, 0)},
		candidates: []pgrepo.CandidateRecord{
			{UserRecord: far},
			{UserRecord: near},
		},
	}
	svc := newTestService(users, &stubPrefs{}, newStubMatchStore())

	items, err := svc.FindMatches(context.Background(), 1)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].UserID != 2 || items[1].UserID != 3 {
		t.Fatalf("expected nearer candidate first, got order %d, %d", items[0].UserID, items[1].UserID)
	}
	if items[0].Score.Total <= items[1].Score.Total {
		t.Fatalf("results not sorted by total: %v then %v", items[0].Score.Total, items[1].Score.Total)
	}
}

func TestFindMatchesSkipsCandidatesWithoutLocation(t *testing.T) {
	users := &stubUsers{
		users: map[int64]pgrepo.UserRecord{1: locatedUser(1, 0, 0)},
		candidates: []pgrepo.CandidateRecord{
			{UserRecord: pgrepo.UserRecord{ID: 2, DisplayName: "no-location"}},
			{UserRecord: locatedUser(3, 0.05, 0)},
		},
	}
	svc := newTestService(users, &stubPrefs{}, newStubMatchStore())

	items, err := svc.FindMatches(context.Background(), 1)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}
	if len(items) != 1 || items[0].UserID != 3 {
		t.Fatalf("candidate without location must be absent, got %+v", items)
	}
}

func TestFindMatchesEmptyWhenViewerHasNoLocation(t *testing.T) {
	users := &stubUsers{
		users:      map[int64]pgrepo.UserRecord{1: {ID: 1}},
		candidates: []pgrepo.CandidateRecord{{UserRecord: locatedUser(2, 0.05, 0)}},
	}
	svc := newTestService(users, &stubPrefs{}, newStubMatchStore())

	items, err := svc.FindMatches(context.Background(), 1)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result for viewer without location, got %d items", len(items))
	}
}

func TestFindMatchesEmptyInStrictPrivacyMode(t *testing.T) {
	mode := "strict"
	users := &stubUsers{
		users:      map[int64]pgrepo.UserRecord{1: locatedUser(1, 0, 0)},
		candidates: []pgrepo.CandidateRecord{{UserRecord: locatedUser(2, 0.05, 0)}},
	}
	prefs := &stubPrefs{stored: map[int64]model.RawPreferences{
		1: {PrivacyMode: &mode},
	}}
	svc := newTestService(users, prefs, newStubMatchStore())

	items, err := svc.FindMatches(context.Background(), 1)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("strict privacy mode must disable proximity matching, got %d items", len(items))
	}
}

func TestFindMatchesPassesHardFiltersToQuery(t *testing.T) {
	verifiedOnly := true
	withPhoto := false
	users := &stubUsers{
		users: map[int64]pgrepo.UserRecord{1: locatedUser(1, 0, 0)},
	}
	prefs := &stubPrefs{stored: map[int64]model.RawPreferences{
		1: {VerifiedOnly: &verifiedOnly, WithPhoto: &withPhoto},
	}}
	svc := newTestService(users, prefs, newStubMatchStore())

	if _, err := svc.FindMatches(context.Background(), 1); err != nil {
		t.Fatalf("find matches: %v", err)
	}
	if !users.lastQuery.VerifiedOnly || users.lastQuery.WithPhoto {
		t.Fatalf("hard filters not forwarded: %+v", users.lastQuery)
	}
}

func TestFindMatchesToleratesSignerFailure(t *testing.T) {
	cand := locatedUser(2, 0.05, 0)
	cand.PhotoKey = "users/2/photo/a.jpg"
	users := &stubUsers{
		users:      map[int64]pgrepo.UserRecord{1: locatedUser(1, 0, 0)},
		candidates: []pgrepo.CandidateRecord{{UserRecord: cand}},
	}
	svc := newTestService(users, &stubPrefs{}, newStubMatchStore())
	svc.AttachPhotoSigner(stubSigner{err: errors.New("s3 down")})

	items, err := svc.FindMatches(context.Background(), 1)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("signing failure must not drop the candidate, got %d items", len(items))
	}
	if items[0].PhotoURL != "" {
		t.Fatalf("expected empty photo url on signer failure, got %q", items[0].PhotoURL)
	}
}

func TestFindMatchesUsesScoreCache(t *testing.T) {
	users := &stubUsers{
		users:      map[int64]pgrepo.UserRecord{1: locatedUser(1, 0, 0)},
		candidates: []pgrepo.CandidateRecord{{UserRecord: locatedUser(2, 0.05, 0)}},
	}
	cache := newStubCache()
	svc := newTestService(users, &stubPrefs{}, newStubMatchStore())
	svc.AttachScoreCache(cache)

	if _, err := svc.FindMatches(context.Background(), 1); err != nil {
		t.Fatalf("first find matches: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}

	if _, err := svc.FindMatches(context.Background(), 1); err != nil {
		t.Fatalf("second find matches: %v", err)
	}
	if cache.hits != 1 {
		t.Fatalf("expected one cache hit on second call, got %d", cache.hits)
	}
}

func TestUpdateMatchStatusCreatesRecordWhenAbsent(t *testing.T) {
	matches := newStubMatchStore()
	svc := newTestService(&stubUsers{users: map[int64]pgrepo.UserRecord{}}, &stubPrefs{}, matches)

	result, err := svc.UpdateMatchStatus(context.Background(), 1, 2, "accepted")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if result.Match.Status != enums.MatchStatusAccepted {
		t.Fatalf("unexpected status: %v", result.Match.Status)
	}
	if result.Match.UserLoID != 1 || result.Match.UserHiID != 2 {
		t.Fatalf("expected canonical pair ordering, got (%d,%d)", result.Match.UserLoID, result.Match.UserHiID)
	}
	if result.ChatRoomID != "" {
		t.Fatalf("first acceptance must not create a chat room")
	}
}

func TestUpdateMatchStatusRejectsInvalidInput(t *testing.T) {
	svc := newTestService(&stubUsers{users: map[int64]pgrepo.UserRecord{}}, &stubPrefs{}, newStubMatchStore())

	if _, err := svc.UpdateMatchStatus(context.Background(), 1, 1, "accepted"); !errors.Is(err, ErrValidation) {
		t.Fatalf("self-match must fail validation, got %v", err)
	}
	if _, err := svc.UpdateMatchStatus(context.Background(), 1, 2, "maybe"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown status must fail validation, got %v", err)
	}
	if _, err := svc.UpdateMatchStatus(context.Background(), 1, 2, "pending"); !errors.Is(err, ErrValidation) {
		t.Fatalf("explicit pending transition must fail validation, got %v", err)
	}
}

func TestMutualAcceptanceCreatesExactlyOneChatRoom(t *testing.T) {
	matches := newStubMatchStore()
	rooms := &stubChatRooms{}
	svc := newTestService(&stubUsers{users: map[int64]pgrepo.UserRecord{}}, &stubPrefs{}, matches)
	svc.AttachChatRooms(rooms)

	if _, err := svc.UpdateMatchStatus(context.Background(), 1, 2, "accepted"); err != nil {
		t.Fatalf("first acceptance: %v", err)
	}
	if rooms.calls != 0 {
		t.Fatalf("room created on first acceptance")
	}

	result, err := svc.UpdateMatchStatus(context.Background(), 2, 1, "accepted")
	if err != nil {
		t.Fatalf("second acceptance: %v", err)
	}
	if rooms.calls != 1 {
		t.Fatalf("expected exactly one chat room call, got %d", rooms.calls)
	}
	if result.ChatRoomID == "" {
		t.Fatalf("expected chat room id on mutual acceptance")
	}

	// Re-accepting does not create a second room.
	if _, err := svc.UpdateMatchStatus(context.Background(), 2, 1, "accepted"); err != nil {
		t.Fatalf("repeat acceptance: %v", err)
	}
	if rooms.calls != 1 {
		t.Fatalf("repeat acceptance must not create another room, got %d calls", rooms.calls)
	}
}

func TestMutualAcceptanceSurvivesChatRoomFailure(t *testing.T) {
	matches := newStubMatchStore()
	rooms := &stubChatRooms{err: errors.New("nats down")}
	svc := newTestService(&stubUsers{users: map[int64]pgrepo.UserRecord{}}, &stubPrefs{}, matches)
	svc.AttachChatRooms(rooms)

	if _, err := svc.UpdateMatchStatus(context.Background(), 1, 2, "accepted"); err != nil {
		t.Fatalf("first acceptance: %v", err)
	}
	result, err := svc.UpdateMatchStatus(context.Background(), 2, 1, "accepted")
	if err != nil {
		t.Fatalf("acceptance must not fail when chat room creation fails: %v", err)
	}
	if result.Match.Status != enums.MatchStatusAccepted {
		t.Fatalf("status rolled back on chat room failure: %v", result.Match.Status)
	}
	if result.ChatRoomID != "" {
		t.Fatalf("chat room id must be empty when creation failed")
	}

	status, err := svc.GetMatchStatus(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status != enums.MatchStatusAccepted {
		t.Fatalf("stored status must remain accepted, got %v", status)
	}
}

func TestBlockingTwiceIsIdempotent(t *testing.T) {
	matches := newStubMatchStore()
	svc := newTestService(&stubUsers{users: map[int64]pgrepo.UserRecord{}}, &stubPrefs{}, matches)

	for i := 0; i < 2; i++ {
		result, err := svc.UpdateMatchStatus(context.Background(), 1, 2, "blocked")
		if err != nil {
			t.Fatalf("block #%d: %v", i+1, err)
		}
		if result.Match.Status != enums.MatchStatusBlocked {
			t.Fatalf("unexpected status on block #%d: %v", i+1, result.Match.Status)
		}
	}
	if len(matches.recs) != 1 {
		t.Fatalf("expected a single pair row, got %d", len(matches.recs))
	}
}

func TestGetMatchStatusDefaultsToPending(t *testing.T) {
	svc := newTestService(&stubUsers{users: map[int64]pgrepo.UserRecord{}}, &stubPrefs{}, newStubMatchStore())

	status, err := svc.GetMatchStatus(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status != enums.MatchStatusPending {
		t.Fatalf("missing record must read as pending, got %v", status)
	}
}

func TestUpdatePreferencesValidatesPatch(t *testing.T) {
	svc := newTestService(&stubUsers{users: map[int64]pgrepo.UserRecord{}}, &stubPrefs{}, newStubMatchStore())

	badDistance := -1.0
	if _, err := svc.UpdatePreferences(context.Background(), 1, model.RawPreferences{MaxDistanceKM: &badDistance}); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative max distance must fail, got %v", err)
	}

	if _, err := svc.UpdatePreferences(context.Background(), 1, model.RawPreferences{AgeRange: &model.AgeRange{Min: 40, Max: 30}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("inverted age range must fail, got %v", err)
	}

	badMode := "ultra"
	if _, err := svc.UpdatePreferences(context.Background(), 1, model.RawPreferences{PrivacyMode: &badMode}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown privacy mode must fail, got %v", err)
	}
}

func TestUpdatePreferencesInvalidatesCachedScores(t *testing.T) {
	cache := newStubCache()
	svc := newTestService(&stubUsers{users: map[int64]pgrepo.UserRecord{}}, &stubPrefs{}, newStubMatchStore())
	svc.AttachScoreCache(cache)

	maxDistance := 20.0
	prefs, err := svc.UpdatePreferences(context.Background(), 1, model.RawPreferences{MaxDistanceKM: &maxDistance})
	if err != nil {
		t.Fatalf("update preferences: %v", err)
	}
	if prefs.MaxDistanceKM != 20 {
		t.Fatalf("unexpected effective max distance: %v", prefs.MaxDistanceKM)
	}
	if cache.invalidations != 1 {
		t.Fatalf("expected one cache invalidation, got %d", cache.invalidations)
	}
}

type stubUsers struct {
	users      map[int64]pgrepo.UserRecord
	candidates []pgrepo.CandidateRecord
	lastQuery  pgrepo.CandidateQuery
}

func (s *stubUsers) GetUser(_ context.Context, userID int64) (pgrepo.UserRecord, error) {
	rec, ok := s.users[userID]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return rec, nil
}

func (s *stubUsers) ListCandidates(_ context.Context, q pgrepo.CandidateQuery) ([]pgrepo.CandidateRecord, error) {
	s.lastQuery = q
	return s.candidates, nil
}

type stubPrefs struct {
	stored map[int64]model.RawPreferences
}

func (s *stubPrefs) GetPreferences(_ context.Context, userID int64) (model.RawPreferences, error) {
	if s.stored == nil {
		return model.RawPreferences{}, nil
	}
	return s.stored[userID], nil
}

func (s *stubPrefs) UpsertPreferences(_ context.Context, userID int64, patch model.RawPreferences, _ time.Time) error {
	if s.stored == nil {
		s.stored = make(map[int64]model.RawPreferences)
	}
	s.stored[userID] = patch
	return nil
}

type stubMatchStore struct {
	recs   map[[2]int64]pgrepo.MatchRecord
	nextID int64
}

func newStubMatchStore() *stubMatchStore {
	return &stubMatchStore{recs: make(map[[2]int64]pgrepo.MatchRecord)}
}

func (s *stubMatchStore) FindByUsers(_ context.Context, userID, targetID int64) (pgrepo.MatchRecord, error) {
	lo, hi := model.PairKey(userID, targetID)
	rec, ok := s.recs[[2]int64{lo, hi}]
	if !ok {
		return pgrepo.MatchRecord{}, pgrepo.ErrMatchNotFound
	}
	return rec, nil
}

func (s *stubMatchStore) UpsertStatus(_ context.Context, _ pgx.Tx, actorUserID, targetUserID int64, status string, score model.MatchScore, now time.Time) (pgrepo.MatchRecord, error) {
	lo, hi := model.PairKey(actorUserID, targetUserID)
	key := [2]int64{lo, hi}
	accepting := status == "accepted"

	rec, ok := s.recs[key]
	if !ok {
		s.nextID++
		rec = pgrepo.MatchRecord{
			ID:        s.nextID,
			UserLoID:  lo,
			UserHiID:  hi,
			Score:     score,
			CreatedAt: now,
		}
	}
	rec.Status = status
	rec.AcceptedLo = rec.AcceptedLo || (accepting && actorUserID == lo)
	rec.AcceptedHi = rec.AcceptedHi || (accepting && actorUserID == hi)
	rec.UpdatedAt = now
	s.recs[key] = rec
	return rec, nil
}

type stubChatRooms struct {
	calls int
	err   error
}

func (s *stubChatRooms) CreateRoom(_ context.Context, userID, targetID int64) (chatrooms.Room, error) {
	s.calls++
	if s.err != nil {
		return chatrooms.Room{}, s.err
	}
	lo, hi := model.PairKey(userID, targetID)
	return chatrooms.Room{RoomID: fmt.Sprintf("room-%d-%d", lo, hi), UserLoID: lo, UserHiID: hi}, nil
}

type stubSigner struct {
	err error
}

func (s stubSigner) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.example.com/" + key, nil
}

type stubCache struct {
	scores        map[string]model.MatchScore
	hits          int
	sets          int
	invalidations int
}

func newStubCache() *stubCache {
	return &stubCache{scores: make(map[string]model.MatchScore)}
}

func (s *stubCache) GetScore(_ context.Context, userID, candidateID int64) (model.MatchScore, bool) {
	score, ok := s.scores[fmt.Sprintf("%d:%d", userID, candidateID)]
	if ok {
		s.hits++
	}
	return score, ok
}

func (s *stubCache) SetScore(_ context.Context, userID, candidateID int64, score model.MatchScore) error {
	s.sets++
	s.scores[fmt.Sprintf("%d:%d", userID, candidateID)] = score
	return nil
}

func (s *stubCache) InvalidateUser(_ context.Context, userID int64) error {
	s.invalidations++
	prefix := fmt.Sprintf("%d:", userID)
	for key := range s.scores {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.scores, key)
		}
	}
	return nil
}
