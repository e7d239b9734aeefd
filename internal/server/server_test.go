package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"studyhub/internal/app"
	"studyhub/internal/store"
	"studyhub/pkg/domain"
)

type fakeGenerator struct{}

func (fakeGenerator) GenerateText(_ context.Context, _, userPrompt string) (string, error) {
	return "stub answer for: " + userPrompt, nil
}

func (fakeGenerator) GenerateJSON(_ context.Context, _, _ string) (string, error) {
	return `{"recommendations":[{"title":"Graph Theory Primer","type":"book","rating":4,"difficulty":"beginner"}]}`, nil
}

type fakeVideos struct{}

func (fakeVideos) Search(_ context.Context, _ string, _ int) ([]domain.Video, error) {
	return []domain.Video{{ID: "v1", Title: "Graphs Explained", Type: "video", Source: "YouTube"}}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	redis := miniredis.RunT(t)
	mem := store.NewMemoryStore()
	core, err := app.New(app.Config{
		Store:     mem,
		Sessions:  store.NewJWTSessionStore("test-secret", time.Hour),
		Generator: fakeGenerator{},
		Videos:    fakeVideos{},
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{
		App:       core,
		RedisAddr: redis.Addr(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, mem
}

func register(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"pass-1234","firstName":"Test","lastName":"User"}`, username)
	resp, err := http.Post(ts.URL+"/api/auth/register", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register expected 201, got %d", resp.StatusCode)
	}
	var parsed struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if parsed.Token == "" || parsed.User.ID == "" {
		t.Fatalf("incomplete register response: %+v", parsed)
	}
	return parsed.Token
}

func doAuthed(t *testing.T, ts *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	ts, _ := newTestServer(t)
	token := register(t, ts, "alice")

	resp := doAuthed(t, ts, http.MethodGet, "/api/users/me", token, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me expected 200, got %d", resp.StatusCode)
	}
	var me domain.User
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Username != "alice" {
		t.Fatalf("me = %+v", me)
	}

	// duplicate username conflicts
	body := `{"username":"alice","password":"other","firstName":"A","lastName":"B"}`
	dup, err := http.Post(ts.URL+"/api/auth/register", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("duplicate register: %v", err)
	}
	dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register expected 409, got %d", dup.StatusCode)
	}

	// wrong password
	bad, err := http.Post(ts.URL+"/api/auth/login", "application/json",
		bytes.NewReader([]byte(`{"username":"alice","password":"wrong"}`)))
	if err != nil {
		t.Fatalf("bad login: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login expected 401, got %d", bad.StatusCode)
	}

	good, err := http.Post(ts.URL+"/api/auth/login", "application/json",
		bytes.NewReader([]byte(`{"username":"alice","password":"pass-1234"}`)))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	good.Body.Close()
	if good.StatusCode != http.StatusOK {
		t.Fatalf("login expected 200, got %d", good.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{"/api/users/me", "/api/search", "/api/resources", "/api/user-resources", "/api/chat", "/api/activity", "/api/dashboard"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestResourceLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	token := register(t, ts, "alice")

	create := doAuthed(t, ts, http.MethodPost, "/api/resources", token,
		`{"title":"Intro to Graphs","description":"Adjacency lists.","type":"book","source":"library","rating":5,"difficulty":"beginner"}`)
	if create.StatusCode != http.StatusCreated {
		t.Fatalf("create expected 201, got %d", create.StatusCode)
	}
	var res domain.Resource
	if err := json.NewDecoder(create.Body).Decode(&res); err != nil {
		t.Fatalf("decode resource: %v", err)
	}
	create.Body.Close()

	get := doAuthed(t, ts, http.MethodGet, "/api/resources/"+res.ID, token, "")
	get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Fatalf("get expected 200, got %d", get.StatusCode)
	}

	missing := doAuthed(t, ts, http.MethodGet, "/api/resources/ghost", token, "")
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing resource expected 404, got %d", missing.StatusCode)
	}

	invalid := doAuthed(t, ts, http.MethodPost, "/api/resources", token,
		`{"title":"Nameless","type":"podcast"}`)
	invalid.Body.Close()
	if invalid.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid type expected 400, got %d", invalid.StatusCode)
	}
}

func TestSaveUpdateAndListUserResources(t *testing.T) {
	ts, mem := newTestServer(t)
	token := register(t, ts, "alice")
	res, _ := mem.CreateResource(domain.NewResource{Title: "Intro to Graphs", Type: domain.TypeBook})

	save := doAuthed(t, ts, http.MethodPost, "/api/user-resources", token,
		fmt.Sprintf(`{"resourceId":%q}`, res.ID))
	if save.StatusCode != http.StatusCreated {
		t.Fatalf("save expected 201, got %d", save.StatusCode)
	}
	var link domain.UserResource
	if err := json.NewDecoder(save.Body).Decode(&link); err != nil {
		t.Fatalf("decode link: %v", err)
	}
	save.Body.Close()
	if link.Status != domain.StatusSaved || link.Progress != 0 {
		t.Fatalf("defaults wrong: %+v", link)
	}

	patch := doAuthed(t, ts, http.MethodPatch, "/api/user-resources/"+link.ID, token,
		`{"progress":60,"bookmarked":true}`)
	if patch.StatusCode != http.StatusOK {
		t.Fatalf("patch expected 200, got %d", patch.StatusCode)
	}
	var updated domain.UserResource
	if err := json.NewDecoder(patch.Body).Decode(&updated); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	patch.Body.Close()
	if updated.Progress != 60 || !updated.Bookmarked || updated.Status != domain.StatusSaved {
		t.Fatalf("patch result: %+v", updated)
	}

	ghost := doAuthed(t, ts, http.MethodPatch, "/api/user-resources/ghost", token, `{"progress":10}`)
	ghost.Body.Close()
	if ghost.StatusCode != http.StatusNotFound {
		t.Fatalf("missing link expected 404, got %d", ghost.StatusCode)
	}

	list := doAuthed(t, ts, http.MethodGet, "/api/user-resources", token, "")
	var saved []domain.SavedResource
	if err := json.NewDecoder(list.Body).Decode(&saved); err != nil {
		t.Fatalf("decode saved list: %v", err)
	}
	list.Body.Close()
	if len(saved) != 1 || saved[0].Resource.Title != "Intro to Graphs" || !saved[0].Bookmarked {
		t.Fatalf("saved list: %+v", saved)
	}

	pair := doAuthed(t, ts, http.MethodGet, "/api/user-resources?resourceId="+res.ID, token, "")
	if pair.StatusCode != http.StatusOK {
		t.Fatalf("pair lookup expected 200, got %d", pair.StatusCode)
	}
	var byPair domain.UserResource
	if err := json.NewDecoder(pair.Body).Decode(&byPair); err != nil {
		t.Fatalf("decode pair lookup: %v", err)
	}
	pair.Body.Close()
	if byPair.ID != link.ID || byPair.ResourceID != res.ID {
		t.Fatalf("pair lookup: %+v", byPair)
	}

	noPair := doAuthed(t, ts, http.MethodGet, "/api/user-resources?resourceId=ghost", token, "")
	noPair.Body.Close()
	if noPair.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown pair expected 404, got %d", noPair.StatusCode)
	}
}

func TestSearchEndpoint(t *testing.T) {
	ts, mem := newTestServer(t)
	token := register(t, ts, "alice")
	mem.CreateResource(domain.NewResource{Title: "Intro to Graphs", Description: "Traversal.", Type: domain.TypeBook})

	resp := doAuthed(t, ts, http.MethodGet, "/api/search?query=graphs", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search expected 200, got %d", resp.StatusCode)
	}
	var results domain.SearchResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	resp.Body.Close()
	if len(results.LocalResources) != 1 || len(results.YouTubeVideos) != 1 || len(results.Recommendations) != 1 {
		t.Fatalf("search results: %+v", results)
	}

	noQuery := doAuthed(t, ts, http.MethodGet, "/api/search", token, "")
	noQuery.Body.Close()
	if noQuery.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing query expected 400, got %d", noQuery.StatusCode)
	}
}

func TestChatAndActivityEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	token := register(t, ts, "alice")

	post := doAuthed(t, ts, http.MethodPost, "/api/chat", token, `{"message":"what is a heap?"}`)
	if post.StatusCode != http.StatusOK {
		t.Fatalf("chat post expected 200, got %d", post.StatusCode)
	}
	var msg domain.ChatMessage
	if err := json.NewDecoder(post.Body).Decode(&msg); err != nil {
		t.Fatalf("decode chat message: %v", err)
	}
	post.Body.Close()
	if msg.Response == "" {
		t.Fatalf("expected tutor response, got %+v", msg)
	}

	get := doAuthed(t, ts, http.MethodGet, "/api/chat", token, "")
	var history []domain.ChatMessage
	if err := json.NewDecoder(get.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	get.Body.Close()
	if len(history) != 1 || history[0].ID != msg.ID {
		t.Fatalf("history: %+v", history)
	}

	activity := doAuthed(t, ts, http.MethodGet, "/api/activity", token, "")
	var feed []domain.Activity
	if err := json.NewDecoder(activity.Body).Decode(&feed); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	activity.Body.Close()
	if len(feed) != 1 || feed[0].Action != "ai_chat" {
		t.Fatalf("activity feed: %+v", feed)
	}
}

func TestSummarizeAndRecommendations(t *testing.T) {
	ts, _ := newTestServer(t)
	token := register(t, ts, "alice")

	sum := doAuthed(t, ts, http.MethodPost, "/api/summarize", token, `{"content":"Long text about graphs."}`)
	if sum.StatusCode != http.StatusOK {
		t.Fatalf("summarize expected 200, got %d", sum.StatusCode)
	}
	var summary map[string]string
	if err := json.NewDecoder(sum.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	sum.Body.Close()
	if summary["summary"] == "" {
		t.Fatalf("empty summary: %+v", summary)
	}

	empty := doAuthed(t, ts, http.MethodPost, "/api/summarize", token, `{}`)
	empty.Body.Close()
	if empty.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty summarize expected 400, got %d", empty.StatusCode)
	}

	recs := doAuthed(t, ts, http.MethodGet, "/api/recommendations?topic=graphs", token, "")
	if recs.StatusCode != http.StatusOK {
		t.Fatalf("recommendations expected 200, got %d", recs.StatusCode)
	}
	var parsed []domain.Recommendation
	if err := json.NewDecoder(recs.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode recommendations: %v", err)
	}
	recs.Body.Close()
	if len(parsed) != 1 || parsed[0].Title != "Graph Theory Primer" {
		t.Fatalf("recommendations: %+v", parsed)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	ts, mem := newTestServer(t)
	token := register(t, ts, "alice")
	res, _ := mem.CreateResource(domain.NewResource{Title: "Intro to Graphs", Type: domain.TypeBook})

	save := doAuthed(t, ts, http.MethodPost, "/api/user-resources", token,
		fmt.Sprintf(`{"resourceId":%q}`, res.ID))
	save.Body.Close()

	resp := doAuthed(t, ts, http.MethodGet, "/api/dashboard", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard expected 200, got %d", resp.StatusCode)
	}
	var dash app.Dashboard
	if err := json.NewDecoder(resp.Body).Decode(&dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	resp.Body.Close()
	if dash.User.Username != "alice" || dash.SavedResources != 1 {
		t.Fatalf("dashboard: %+v", dash)
	}
	if len(dash.RecentActivity) != 1 || len(dash.RecentResources) != 1 {
		t.Fatalf("dashboard aggregates: %+v", dash)
	}
}

func TestLogout(t *testing.T) {
	ts, _ := newTestServer(t)
	token := register(t, ts, "alice")

	resp := doAuthed(t, ts, http.MethodPost, "/api/auth/logout", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout expected 200, got %d", resp.StatusCode)
	}

	noToken, err := http.Post(ts.URL+"/api/auth/logout", "application/json", nil)
	if err != nil {
		t.Fatalf("logout without token: %v", err)
	}
	noToken.Body.Close()
	if noToken.StatusCode != http.StatusUnauthorized {
		t.Fatalf("logout without token expected 401, got %d", noToken.StatusCode)
	}
}
