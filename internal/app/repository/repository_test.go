package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func TestLinkRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewLinkRepository(newTestDB(t))
	owner := uuid.New()

	link := &model.ShortLink{Code: "abc123", OriginalURL: "https://example.com", OwnerID: &owner}
	require.NoError(t, repo.Create(ctx, link))
	assert.NotEqual(t, uuid.Nil, link.ID)

	got, err := repo.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.OriginalURL)
	assert.True(t, got.OwnedBy(owner))
	assert.Zero(t, got.Visits)

	_, err = repo.GetByCode(ctx, "missing")
	assert.ErrorIs(t, err, ErrLinkNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLinkRepository_OwnerScopedQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewLinkRepository(newTestDB(t))
	owner, other := uuid.New(), uuid.New()

	for _, code := range []string{"own1", "own2"} {
		require.NoError(t, repo.Create(ctx, &model.ShortLink{Code: code, OriginalURL: "https://a.example", OwnerID: &owner}))
	}
	require.NoError(t, repo.Create(ctx, &model.ShortLink{Code: "theirs", OriginalURL: "https://b.example", OwnerID: &other}))
	require.NoError(t, repo.Create(ctx, &model.ShortLink{Code: "anon", OriginalURL: "https://c.example"}))

	n, err := repo.CountByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := repo.ListByOwner(ctx, owner, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	var codes []string
	require.NoError(t, repo.EachCode(ctx, func(code string) { codes = append(codes, code) }))
	assert.ElementsMatch(t, []string{"own1", "own2", "theirs", "anon"}, codes)

	require.NoError(t, repo.Delete(ctx, "own1"))
	assert.ErrorIs(t, repo.Delete(ctx, "own1"), ErrLinkNotFound)
}

func TestUnlockerRepository_RoundTripAndExtend(t *testing.T) {
	ctx := context.Background()
	repo := NewUnlockerRepository(newTestDB(t))
	owner := uuid.New()

	u := &model.UrlUnlocker{
		OwnerID:          owner,
		DestinationURL:   "https://dest.example",
		UnlockerURL:      "https://sponsor.example",
		ButtonTexts:      []string{"Subscribe", "Follow"},
		ClickCount:       3,
		CountdownSeconds: 5,
	}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Subscribe", "Follow"}, got.ButtonTexts)
	assert.Nil(t, got.ExpiresAt)

	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.SetExpiration(ctx, u.ID, at))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, at.Equal(*got.ExpiresAt))

	assert.ErrorIs(t, repo.SetExpiration(ctx, uuid.New(), at), ErrUnlockerNotFound)

	n, err := repo.CountByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUnlockerNotFound)
}

func TestSequenceRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSequenceRepository(newTestDB(t))
	owner := uuid.New()

	s := &model.SequenceUnlocker{OwnerID: owner, Sequence: []string{"red", "blue"}, DestinationURL: "https://dest.example"}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "blue"}, got.Sequence)

	list, err := repo.ListByOwner(ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrSequenceNotFound)
}

func TestBioCardRepository_ChildrenAndSequentialDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewBioCardRepository(newTestDB(t))
	owner := uuid.New()

	card := &model.BioCard{OwnerID: owner, Slug: "jane-doe", Title: "Jane", Theme: "default"}
	require.NoError(t, repo.Create(ctx, card))

	require.NoError(t, repo.AddLink(ctx, &model.BioLink{CardID: card.ID, Title: "Second", URL: "https://2.example", Position: 1}))
	require.NoError(t, repo.AddLink(ctx, &model.BioLink{CardID: card.ID, Title: "First", URL: "https://1.example", Position: 0}))
	require.NoError(t, repo.AddSocial(ctx, &model.SocialLink{CardID: card.ID, Platform: "github", URL: "https://github.com/jane"}))

	got, err := repo.GetBySlug(ctx, "jane-doe")
	require.NoError(t, err)
	require.Len(t, got.Links, 2)
	assert.Equal(t, "First", got.Links[0].Title)
	assert.Len(t, got.Socials, 1)

	n, err := repo.CountLinks(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Update(ctx, card.ID, map[string]any{"published": true, "title": "Jane D."}))
	got, err = repo.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, got.Published)
	assert.Equal(t, "Jane D.", got.Title)

	_, err = repo.GetLink(ctx, uuid.New(), got.Links[0].ID)
	assert.ErrorIs(t, err, ErrBioLinkNotFound, "a link is only addressable through its own card")

	require.NoError(t, repo.DeleteLinks(ctx, card.ID))
	require.NoError(t, repo.DeleteSocials(ctx, card.ID))
	require.NoError(t, repo.Delete(ctx, card.ID))
	_, err = repo.GetByID(ctx, card.ID)
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestClickEventRepository_DailyCounts(t *testing.T) {
	ctx := context.Background()
	repo := NewClickEventRepository(newTestDB(t))

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	stamps := []time.Time{day1, day1.Add(time.Hour), day2}
	for _, ts := range stamps {
		require.NoError(t, repo.Create(ctx, &model.ClickEvent{
			ID: uuid.NewString(), TargetType: model.TargetLink, TargetID: "abc123",
			Kind: model.KindVisit, Timestamp: ts,
		}))
	}
	require.NoError(t, repo.Create(ctx, &model.ClickEvent{
		ID: uuid.NewString(), TargetType: model.TargetLink, TargetID: "other", Kind: model.KindVisit, Timestamp: day1,
	}))

	counts, err := repo.DailyCounts(ctx, model.TargetLink, "abc123", day1.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []model.DailyCount{{Day: "2026-03-01", Count: 2}, {Day: "2026-03-02", Count: 1}}, counts)

	n, err := repo.CountByTarget(ctx, model.TargetLink, "abc123", model.KindVisit)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestGormCounterRepository_Increment(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	links := NewLinkRepository(db)
	counters := NewGormCounterRepository(db)

	require.NoError(t, links.Create(ctx, &model.ShortLink{Code: "abc123", OriginalURL: "https://example.com"}))

	for want := int64(1); want <= 3; want++ {
		got, err := counters.Increment(ctx, model.CounterLinkVisits, "abc123")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := counters.Increment(ctx, model.CounterLinkVisits, "missing")
	assert.ErrorIs(t, err, ErrLinkNotFound)

	_, err = counters.Increment(ctx, model.CounterTarget{Table: "short_links", Column: "code", Key: "code"}, "abc123")
	assert.ErrorIs(t, err, ErrCounterNotAllowed)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := links.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Visits)
}

func TestGormCounterRepository_UsesAllowListKey(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	counters := NewGormCounterRepository(db)
	unlockers := NewUnlockerRepository(db)

	u := &model.UrlUnlocker{OwnerID: uuid.New(), DestinationURL: "https://d.example", ClickCount: 1}
	require.NoError(t, unlockers.Create(ctx, u))

	// A caller-supplied key column is ignored in favour of the allow-list entry.
	v, err := counters.Increment(ctx, model.CounterTarget{Table: "url_unlockers", Column: "unlocks", Key: "owner_id"}, u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestGormCounterRepository_RejectsMalformedIDBeforeQuery(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	counters := NewGormCounterRepository(db)

	for _, key := range []string{"xyz", "", "1; DELETE FROM url_unlockers"} {
		_, err := counters.Increment(ctx, model.CounterUnlockerVisits, key)
		assert.ErrorIs(t, err, apperr.ErrValidation, "key %q", key)
		assert.NotErrorIs(t, err, apperr.ErrRemote)
		assert.Equal(t, 400, apperr.HTTPStatus(err))
	}

	_, err := counters.Increment(ctx, model.CounterUnlockerVisits, uuid.NewString())
	assert.ErrorIs(t, err, ErrUnlockerNotFound)
}
