package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/config"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/auth"
	"github.com/sifan077/LinkGate/internal/http/middleware"
	"github.com/sifan077/LinkGate/internal/infra/database"
	"github.com/sifan077/LinkGate/internal/infra/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testBaseURL = "https://lg.test"
	testSecret  = "handler-secret"
)

type handlerFixture struct {
	app        *fiber.App
	verifier   *auth.Verifier
	counters   service.CounterService
	events     *service.EventRecorder
	challenges *service.ChallengeService
	unlockers  service.UnlockerService
	sequences  service.SequenceService
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	db, err := sqlite.NewGorm(config.DatabaseConfig{SQLitePath: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(ctx, db, model.All()...))

	links := repository.NewLinkRepository(db)
	eventRepo := repository.NewClickEventRepository(db)

	f := &handlerFixture{verifier: auth.NewVerifier(testSecret, "linkgate")}
	f.counters = service.NewCounterService(repository.NewGormCounterRepository(db), time.Second, log)
	f.events = service.NewEventRecorder(service.NewDirectSink(eventRepo), time.Second, log)
	f.unlockers = service.NewUnlockerService(repository.NewUnlockerRepository(db), 5)
	f.sequences = service.NewSequenceService(repository.NewSequenceRepository(db), 5)
	f.challenges = service.NewChallengeService(ctx, service.ChallengeDeps{
		Unlockers: f.unlockers,
		Sequences: f.sequences,
		Counters:  f.counters,
		Events:    f.events,
		Logger:    log,
	})
	cards := service.NewBioCardService(service.BioCardDeps{
		Cards:          repository.NewBioCardRepository(db),
		Counters:       f.counters,
		Events:         f.events,
		MaxCards:       3,
		MaxLinks:       3,
		MaxSocialLinks: 3,
		Logger:         log,
	})
	t.Cleanup(func() {
		f.challenges.Stop()
		f.settle()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	app := fiber.New()
	app.Use(middleware.Session(f.verifier, log))
	NewRedirectHandler(RedirectDeps{
		Logger:   log,
		Resolver: service.NewResolver(service.ResolverDeps{Links: links, Counters: f.counters, Events: f.events, Logger: log}),
		Cards:    cards,
	}).Register(app)
	NewChallengeHandler(ChallengeDeps{
		Logger:     log,
		Challenges: f.challenges,
		Unlockers:  f.unlockers,
		Sequences:  f.sequences,
		Secret:     []byte(testSecret),
		TokenTTL:   time.Minute,
	}).Register(app)

	api := app.Group("/api")
	NewAPIHandler(APIDeps{
		Logger:   log,
		Links:    service.NewLinkService(service.LinkServiceDeps{Links: links, Events: eventRepo, MaxLinks: 2, Logger: log}),
		Counters: f.counters,
		BaseURL:  testBaseURL + "/",
	}).Register(api)
	NewUnlockerHandler(UnlockerDeps{Logger: log, Unlockers: f.unlockers, Sequences: f.sequences, BaseURL: testBaseURL}).Register(api)
	NewCardHandler(CardDeps{Logger: log, Cards: cards, BaseURL: testBaseURL}).Register(api)

	f.app = app
	return f
}

func (f *handlerFixture) settle() {
	f.counters.Wait()
	f.events.Wait()
}

func (f *handlerFixture) token(t *testing.T, user uuid.UUID) string {
	t.Helper()
	token, err := f.verifier.Issue(user, "owner@example.com", time.Hour)
	require.NoError(t, err)
	return token
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestHealth(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "LinkGate", body["service"])
	assert.Equal(t, "ok", body["status"])
}

func TestShortenAndRedirect(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodPost, "/api/links", map[string]string{"url": "example.com/docs", "code": "hello"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[LinkResponse](t, resp)
	assert.Equal(t, "hello", created.Code)
	assert.Equal(t, "https://lg.test/s/hello", created.ShortURL)
	assert.Equal(t, "https://example.com/docs", created.OriginalURL)

	resp = f.do(t, http.MethodGet, "/s/hello", nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/docs", resp.Header.Get(fiber.HeaderLocation))
	f.settle()

	resp = f.do(t, http.MethodGet, "/api/links/hello", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), decode[LinkResponse](t, resp).Visits)
}

func TestShorten_InvalidInput(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodPost, "/api/links", map[string]string{"url": "ftp://files.example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], "url")

	req := httptest.NewRequest(http.MethodPost, "/api/links", bytes.NewBufferString("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	raw, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestRedirect_UnknownCodeRendersNotFoundPage(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodGet, "/s/nope42", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
}

func TestLinks_OwnerOperations(t *testing.T) {
	f := newHandlerFixture(t)
	owner := f.token(t, uuid.New())
	stranger := f.token(t, uuid.New())

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/links", nil, "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/links", nil, "garbage").StatusCode)

	for _, code := range []string{"mine-1", "mine-2"} {
		resp := f.do(t, http.MethodPost, "/api/links", map[string]string{"url": "https://example.com/" + code, "code": code}, owner)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp := f.do(t, http.MethodPost, "/api/links", map[string]string{"url": "https://example.com/3"}, owner)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "quota of two links")

	resp = f.do(t, http.MethodGet, "/api/links?limit=10", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Links []LinkResponse `json:"links"`
		Count int            `json:"count"`
	}](t, resp)
	assert.Equal(t, 2, list.Count)

	resp = f.do(t, http.MethodGet, "/api/links/mine-1/stats?days=7", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[map[string]any](t, resp)
	assert.Contains(t, stats, "daily")
	assert.EqualValues(t, 0, stats["visits"])

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/links/mine-1/stats", nil, stranger).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/links/mine-1", nil, stranger).StatusCode)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/links/mine-1", nil, owner).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/links/mine-1", nil, "").StatusCode)
}

func TestIncrement(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/api/links", map[string]string{"url": "https://example.com", "code": "count"}, "").StatusCode)

	resp := f.do(t, http.MethodPost, "/api/increment", IncrementRequest{Table: "short_links", Column: "visits", ID: "count"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode[map[string]any](t, resp)["value"])

	resp = f.do(t, http.MethodPost, "/api/increment", IncrementRequest{Table: "users", Column: "balance", ID: "1"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/increment", IncrementRequest{Table: "short_links", Column: "visits", ID: "missing"}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIncrement_UnlockCountersAreNotPublic(t *testing.T) {
	f := newHandlerFixture(t)
	owner := uuid.New()
	tok := f.token(t, owner)

	resp := f.do(t, http.MethodPost, "/api/unlockers", CreateUnlockerRequest{
		Title:          "Download",
		DestinationURL: "https://example.com/file",
		ButtonTexts:    []string{"Step one"},
		ClickCount:     1,
	}, tok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[struct {
		Unlocker model.UrlUnlocker `json:"unlocker"`
	}](t, resp).Unlocker.ID.String()

	for _, table := range []string{"url_unlockers", "sequence_unlockers"} {
		resp = f.do(t, http.MethodPost, "/api/increment", IncrementRequest{Table: table, Column: "unlocks", ID: id}, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, table)
	}

	resp = f.do(t, http.MethodGet, "/api/unlockers/"+id, nil, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[model.UrlUnlocker](t, resp).Unlocks)
}

func TestUnlockers_CRUD(t *testing.T) {
	f := newHandlerFixture(t)
	owner := f.token(t, uuid.New())
	body := CreateUnlockerRequest{
		Title:          "Download",
		DestinationURL: "https://example.com/file",
		ButtonTexts:    []string{"Step one"},
		ClickCount:     2,
	}

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/unlockers", body, "").StatusCode)

	resp := f.do(t, http.MethodPost, "/api/unlockers", body, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Unlocker  model.UrlUnlocker `json:"unlocker"`
		PublicURL string            `json:"public_url"`
	}](t, resp)
	id := created.Unlocker.ID.String()
	assert.Equal(t, "https://lg.test/u/"+id, created.PublicURL)

	resp = f.do(t, http.MethodGet, "/api/unlockers", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode[map[string]any](t, resp)["count"])

	resp = f.do(t, http.MethodPost, "/api/unlockers/"+id+"/extend", ExtendRequest{Days: 3}, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	extended := decode[model.UrlUnlocker](t, resp)
	require.NotNil(t, extended.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), *extended.ExpiresAt, time.Minute)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/unlockers/"+id+"/extend", ExtendRequest{Days: 0}, owner).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/unlockers/not-a-uuid", nil, owner).StatusCode)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/unlockers/"+id, nil, owner).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/unlockers/"+id, nil, owner).StatusCode)
}

func TestCountdownFlow(t *testing.T) {
	f := newHandlerFixture(t)
	owner := f.token(t, uuid.New())

	resp := f.do(t, http.MethodPost, "/api/unlockers", CreateUnlockerRequest{
		DestinationURL: "https://example.com/secret",
		UnlockerURL:    "https://sponsor.example.com",
		ClickCount:     2,
	}, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[struct {
		Unlocker model.UrlUnlocker `json:"unlocker"`
	}](t, resp).Unlocker.ID

	page := f.do(t, http.MethodGet, "/u/"+id.String(), nil, "")
	require.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "no-store", page.Header.Get(fiber.HeaderCacheControl))
	assert.Contains(t, page.Header.Get(fiber.HeaderContentType), "text/html")

	start, err := f.challenges.StartCountdown(context.Background(), id, service.RequestMeta{})
	require.NoError(t, err)
	base := "/u/" + id.String() + "/sessions/" + start.SessionID.String()

	first := decode[ChallengeResponse](t, f.do(t, http.MethodPost, base+"/click", nil, ""))
	assert.True(t, first.Accepted)
	assert.Empty(t, first.OpenURL)
	assert.Empty(t, first.ContinueURL)

	second := decode[ChallengeResponse](t, f.do(t, http.MethodPost, base+"/click", nil, ""))
	assert.Equal(t, "https://sponsor.example.com", second.OpenURL)
	require.NotEmpty(t, second.ContinueURL, "zero second countdown unlocks on the threshold")

	snap := decode[ChallengeResponse](t, f.do(t, http.MethodGet, base, nil, ""))
	assert.True(t, snap.Snapshot.Unlocked())
	assert.NotEmpty(t, snap.ContinueURL)

	resp = f.do(t, http.MethodGet, second.ContinueURL, nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/secret", resp.Header.Get(fiber.HeaderLocation))

	resp = f.do(t, http.MethodGet, "/u/"+id.String()+"/_go/forged", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A token minted for the countdown route is not valid on the sequence route.
	token := second.ContinueURL[len("/u/"+id.String()+"/_go/"):]
	resp = f.do(t, http.MethodGet, "/unlock/"+id.String()+"/_go/"+token, nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCountdown_UnknownSessionAndUnlocker(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodGet, "/u/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")

	resp = f.do(t, http.MethodPost, "/u/"+uuid.NewString()+"/sessions/"+uuid.NewString()+"/click", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/u/"+uuid.NewString()+"/sessions/bogus", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSequenceFlow(t *testing.T) {
	f := newHandlerFixture(t)
	owner := f.token(t, uuid.New())

	resp := f.do(t, http.MethodPost, "/api/sequences", CreateSequenceRequest{
		Title:          "Colours",
		Sequence:       []string{"red", "blue"},
		DestinationURL: "https://example.com/prize",
	}, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Sequence  model.SequenceUnlocker `json:"sequence"`
		PublicURL string                 `json:"public_url"`
	}](t, resp)
	id := created.Sequence.ID
	assert.Equal(t, "https://lg.test/unlock/"+id.String(), created.PublicURL)

	page := f.do(t, http.MethodGet, "/unlock/"+id.String(), nil, "")
	require.Equal(t, http.StatusOK, page.StatusCode)
	assert.NotContains(t, readBody(t, page), `"red","blue"`)

	start, err := f.challenges.StartSequence(context.Background(), id, service.RequestMeta{})
	require.NoError(t, err)
	press := "/unlock/" + id.String() + "/sessions/" + start.SessionID.String() + "/press"

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, press, PressRequest{Color: "magenta"}, "").StatusCode)

	out := decode[ChallengeResponse](t, f.do(t, http.MethodPost, press, PressRequest{Color: "red"}, ""))
	assert.Equal(t, 1, out.Snapshot.Progress)

	out = decode[ChallengeResponse](t, f.do(t, http.MethodPost, press, PressRequest{Color: "green"}, ""))
	assert.True(t, out.Reset)
	assert.Equal(t, 0, out.Snapshot.Progress)

	_ = decode[ChallengeResponse](t, f.do(t, http.MethodPost, press, PressRequest{Color: "RED"}, ""))
	out = decode[ChallengeResponse](t, f.do(t, http.MethodPost, press, PressRequest{Color: "blue"}, ""))
	assert.True(t, out.Snapshot.Unlocked())
	require.NotEmpty(t, out.ContinueURL)

	resp = f.do(t, http.MethodGet, out.ContinueURL, nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/prize", resp.Header.Get(fiber.HeaderLocation))
}

func TestCards_PublishAndFollow(t *testing.T) {
	f := newHandlerFixture(t)
	owner := f.token(t, uuid.New())

	resp := f.do(t, http.MethodPost, "/api/cards", CreateCardRequest{Slug: "Jane-Doe", Title: "Jane's links"}, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Card      model.BioCard `json:"card"`
		PublicURL string        `json:"public_url"`
	}](t, resp)
	cardID := created.Card.ID.String()
	assert.Equal(t, "https://lg.test/p/jane-doe", created.PublicURL)

	resp = f.do(t, http.MethodPost, "/api/cards/"+cardID+"/links", AddCardLinkRequest{Title: "Blog", URL: "blog.example.com"}, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	link := decode[model.BioLink](t, resp)

	resp = f.do(t, http.MethodPost, "/api/cards/"+cardID+"/socials", AddSocialRequest{Platform: "github", URL: "https://github.com/jane"}, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	social := decode[model.SocialLink](t, resp)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/p/jane-doe", nil, "").StatusCode, "drafts are hidden")

	resp = f.do(t, http.MethodPost, "/api/cards/"+cardID+"/publish", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[model.BioCard](t, resp).Published)

	page := f.do(t, http.MethodGet, "/p/jane-doe", nil, "")
	require.Equal(t, http.StatusOK, page.StatusCode)
	html := readBody(t, page)
	assert.Contains(t, html, "Jane&#39;s links")
	assert.Contains(t, html, "/p/jane-doe/l/"+link.ID.String())

	resp = f.do(t, http.MethodGet, "/p/jane-doe/l/"+link.ID.String(), nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://blog.example.com", resp.Header.Get(fiber.HeaderLocation))

	title := "Jane Doe"
	resp = f.do(t, http.MethodPatch, "/api/cards/"+cardID, UpdateCardRequest{Title: &title}, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Jane Doe", decode[model.BioCard](t, resp).Title)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/cards/"+cardID+"/socials/"+social.ID.String(), nil, owner).StatusCode)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/cards/"+cardID+"/links/"+link.ID.String(), nil, owner).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/p/jane-doe/l/"+link.ID.String(), nil, "").StatusCode)

	resp = f.do(t, http.MethodPost, "/api/cards/"+cardID+"/unpublish", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/p/jane-doe", nil, "").StatusCode)

	resp = f.do(t, http.MethodGet, "/api/cards", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode[map[string]any](t, resp)["count"])

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/cards/"+cardID, nil, f.token(t, uuid.New())).StatusCode)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/cards/"+cardID, nil, owner).StatusCode)
}

// slowSink publishes after a delay, long after the handler that recorded the event returned.
type slowSink struct {
	delay time.Duration

	mu   sync.Mutex
	seen []string
}

func (s *slowSink) Publish(_ context.Context, event *model.ClickEvent) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, event.UserAgent+"|"+event.Referer)
	return nil
}

func TestResolve_EventsKeepEachVisitorsHeaders(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	db, err := sqlite.NewGorm(config.DatabaseConfig{SQLitePath: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(ctx, db, model.All()...))
	links := repository.NewLinkRepository(db)
	require.NoError(t, links.Create(ctx, &model.ShortLink{Code: "abc123", OriginalURL: "https://example.com"}))

	sink := &slowSink{delay: 100 * time.Millisecond}
	counters := service.NewCounterService(repository.NewGormCounterRepository(db), time.Second, log)
	events := service.NewEventRecorder(sink, time.Second, log)

	app := fiber.New()
	NewRedirectHandler(RedirectDeps{
		Logger:   log,
		Resolver: service.NewResolver(service.ResolverDeps{Links: links, Counters: counters, Events: events, Logger: log}),
	}).Register(app)

	var want []string
	for _, agent := range []string{"AAAAAAAAAAAAAAAA", "BBBBBBBBBBBBBBBB", "CCCCCCCCCCCCCCCC"} {
		referer := "https://ref-" + agent + ".test/"
		want = append(want, agent+"|"+referer)

		req := httptest.NewRequest(http.MethodGet, "/s/abc123", nil)
		req.Header.Set(fiber.HeaderUserAgent, agent)
		req.Header.Set(fiber.HeaderReferer, referer)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusFound, resp.StatusCode)
	}
	counters.Wait()
	events.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.ElementsMatch(t, want, sink.seen)
}
