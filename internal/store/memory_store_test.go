package store

import (
	"testing"

	"studyhub/pkg/domain"
)

func TestCreateUserAssignsIDAndLookup(t *testing.T) {
	s := NewMemoryStore()
	u1, err := s.CreateUser(domain.NewUser{Username: "alice", PasswordHash: "h1", FirstName: "Alice", LastName: "Ng"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u2, err := s.CreateUser(domain.NewUser{Username: "bob", PasswordHash: "h2", FirstName: "Bob", LastName: "Lin"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u1.ID == "" || u2.ID == "" || u1.ID == u2.ID {
		t.Fatalf("expected distinct non-empty IDs, got %q and %q", u1.ID, u2.ID)
	}

	got, ok, err := s.GetUser(u1.ID)
	if err != nil || !ok {
		t.Fatalf("GetUser(%q) = ok=%v err=%v", u1.ID, ok, err)
	}
	if got.Username != "alice" || got.FirstName != "Alice" {
		t.Fatalf("unexpected user: %+v", got)
	}

	byName, ok, err := s.GetUserByUsername("bob")
	if err != nil || !ok {
		t.Fatalf("GetUserByUsername(bob) = ok=%v err=%v", ok, err)
	}
	if byName.ID != u2.ID {
		t.Fatalf("expected %q, got %q", u2.ID, byName.ID)
	}

	if _, ok, err := s.GetUserByUsername("carol"); err != nil || ok {
		t.Fatalf("expected miss for unknown username, got ok=%v err=%v", ok, err)
	}
}

func TestSearchResourcesSubstringAndTypeFilter(t *testing.T) {
	s := NewMemoryStore()
	graphsBook, _ := s.CreateResource(domain.NewResource{
		Title:       "Intro to Graphs",
		Description: "Adjacency lists and traversal.",
		Type:        domain.TypeBook,
	})
	graphsVideo, _ := s.CreateResource(domain.NewResource{
		Title:       "Shortest Paths",
		Description: "Dijkstra on weighted graphs.",
		Type:        domain.TypeVideo,
	})
	s.CreateResource(domain.NewResource{
		Title:       "Linear Algebra",
		Description: "Vectors and matrices.",
		Type:        domain.TypeCourse,
	})

	all, err := s.SearchResources("graphs", "")
	if err != nil {
		t.Fatalf("SearchResources: %v", err)
	}
	if len(all) != 2 || all[0].ID != graphsBook.ID || all[1].ID != graphsVideo.ID {
		t.Fatalf("expected graphs book then video, got %+v", all)
	}

	// Case-insensitive, matches description too.
	upper, _ := s.SearchResources("DIJKSTRA", "")
	if len(upper) != 1 || upper[0].ID != graphsVideo.ID {
		t.Fatalf("expected the video, got %+v", upper)
	}

	videos, _ := s.SearchResources("graphs", domain.TypeVideo)
	if len(videos) != 1 || videos[0].ID != graphsVideo.ID {
		t.Fatalf("type filter failed: %+v", videos)
	}

	none, _ := s.SearchResources("quantum", "")
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %+v", none)
	}
}

func TestSearchReflectsNewResources(t *testing.T) {
	s := NewMemoryStore()
	if out, _ := s.SearchResources("graphs", ""); len(out) != 0 {
		t.Fatalf("expected empty result before creation, got %+v", out)
	}
	r, _ := s.CreateResource(domain.NewResource{Title: "Intro to Graphs", Type: domain.TypeBook})
	out, _ := s.SearchResources("graphs", "")
	if len(out) != 1 || out[0].ID != r.ID {
		t.Fatalf("expected the new resource, got %+v", out)
	}
}

func TestListRecentResourcesNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	var ids []string
	for _, title := range []string{"one", "two", "three", "four"} {
		r, _ := s.CreateResource(domain.NewResource{Title: title, Type: domain.TypeArticle})
		ids = append(ids, r.ID)
	}
	recent, err := s.ListRecentResources(3)
	if err != nil {
		t.Fatalf("ListRecentResources: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 resources, got %d", len(recent))
	}
	for i, want := range []string{ids[3], ids[2], ids[1]} {
		if recent[i].ID != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, recent[i].ID)
		}
	}
}

func TestCreateUserResourceDefaults(t *testing.T) {
	s := NewMemoryStore()
	link, err := s.CreateUserResource(domain.NewUserResource{UserID: "u1", ResourceID: "r1"})
	if err != nil {
		t.Fatalf("CreateUserResource: %v", err)
	}
	if link.Status != domain.StatusSaved {
		t.Fatalf("expected status saved, got %q", link.Status)
	}
	if link.Progress != 0 || link.Bookmarked {
		t.Fatalf("expected progress 0 and bookmarked false, got %+v", link)
	}
	if link.CreatedAt.IsZero() || !link.UpdatedAt.Equal(link.CreatedAt) {
		t.Fatalf("expected UpdatedAt == CreatedAt, got %v vs %v", link.UpdatedAt, link.CreatedAt)
	}
}

func TestUpdateUserResourcePartial(t *testing.T) {
	s := NewMemoryStore()
	link, _ := s.CreateUserResource(domain.NewUserResource{UserID: "u1", ResourceID: "r1", Notes: "first pass"})

	progress := 40
	updated, ok, err := s.UpdateUserResource(link.ID, domain.UserResourceUpdate{Progress: &progress})
	if err != nil || !ok {
		t.Fatalf("UpdateUserResource = ok=%v err=%v", ok, err)
	}
	if updated.Progress != 40 {
		t.Fatalf("expected progress 40, got %d", updated.Progress)
	}
	// Fields without a pointer stay untouched.
	if updated.Status != domain.StatusSaved || updated.Bookmarked || updated.Notes != "first pass" {
		t.Fatalf("unrelated fields changed: %+v", updated)
	}
	if updated.UpdatedAt.Before(link.UpdatedAt) {
		t.Fatalf("UpdatedAt moved backwards: %v -> %v", link.UpdatedAt, updated.UpdatedAt)
	}

	status := domain.StatusCompleted
	bookmarked := true
	updated, ok, _ = s.UpdateUserResource(link.ID, domain.UserResourceUpdate{Status: &status, Bookmarked: &bookmarked})
	if !ok || updated.Status != domain.StatusCompleted || !updated.Bookmarked || updated.Progress != 40 {
		t.Fatalf("second update wrong: %+v", updated)
	}

	if _, ok, err := s.UpdateUserResource("missing", domain.UserResourceUpdate{Progress: &progress}); err != nil || ok {
		t.Fatalf("expected miss for unknown link, got ok=%v err=%v", ok, err)
	}
}

func TestListUserResourcesWithResourceJoin(t *testing.T) {
	s := NewMemoryStore()
	graphs, _ := s.CreateResource(domain.NewResource{Title: "Intro to Graphs", Type: domain.TypeBook})
	calc, _ := s.CreateResource(domain.NewResource{Title: "Calculus I", Type: domain.TypeCourse})

	bookmarked := true
	l1, _ := s.CreateUserResource(domain.NewUserResource{UserID: "u1", ResourceID: graphs.ID})
	s.UpdateUserResource(l1.ID, domain.UserResourceUpdate{Bookmarked: &bookmarked})
	s.CreateUserResource(domain.NewUserResource{UserID: "u1", ResourceID: calc.ID})
	s.CreateUserResource(domain.NewUserResource{UserID: "u2", ResourceID: calc.ID})

	saved, err := s.ListUserResourcesWithResource("u1")
	if err != nil {
		t.Fatalf("ListUserResourcesWithResource: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved resources, got %d", len(saved))
	}
	if saved[0].Resource.Title != "Intro to Graphs" || !saved[0].Bookmarked {
		t.Fatalf("unexpected first entry: %+v", saved[0])
	}
	if saved[1].Resource.Title != "Calculus I" || saved[1].Bookmarked {
		t.Fatalf("unexpected second entry: %+v", saved[1])
	}

	if pair, ok, _ := s.GetUserResourceByPair("u1", calc.ID); !ok || pair.UserID != "u1" || pair.ResourceID != calc.ID {
		t.Fatalf("GetUserResourceByPair miss: ok=%v pair=%+v", ok, pair)
	}
	if _, ok, _ := s.GetUserResourceByPair("u3", calc.ID); ok {
		t.Fatal("expected no link for u3")
	}

	n, _ := s.CountUserResources("u1")
	if n != 2 {
		t.Fatalf("expected count 2, got %d", n)
	}
}

func TestListUserResourcesWithResourceDropsOrphans(t *testing.T) {
	s := NewMemoryStore()
	kept, _ := s.CreateResource(domain.NewResource{Title: "Intro to Graphs", Type: domain.TypeBook})
	doomed, _ := s.CreateResource(domain.NewResource{Title: "Calculus I", Type: domain.TypeCourse})
	s.CreateUserResource(domain.NewUserResource{UserID: "u1", ResourceID: kept.ID})
	s.CreateUserResource(domain.NewUserResource{UserID: "u1", ResourceID: doomed.ID})

	// Simulate a resource vanishing out from under its links.
	s.mu.Lock()
	delete(s.resources, doomed.ID)
	s.mu.Unlock()

	saved, err := s.ListUserResourcesWithResource("u1")
	if err != nil {
		t.Fatalf("ListUserResourcesWithResource: %v", err)
	}
	if len(saved) != 1 || saved[0].Resource.ID != kept.ID {
		t.Fatalf("expected only the surviving resource, got %+v", saved)
	}

	// The dangling link itself is untouched, only the joined view filters it.
	if n, _ := s.CountUserResources("u1"); n != 2 {
		t.Fatalf("expected 2 links, got %d", n)
	}
}

func TestChatMessagesOldestFirst(t *testing.T) {
	s := NewMemoryStore()
	for _, q := range []string{"what is a heap?", "and a trie?", "thanks"} {
		if _, err := s.CreateChatMessage(domain.NewChatMessage{UserID: "u1", Message: q, Response: "..."}); err != nil {
			t.Fatalf("CreateChatMessage: %v", err)
		}
	}
	s.CreateChatMessage(domain.NewChatMessage{UserID: "u2", Message: "other user"})

	msgs, err := s.ListChatMessages("u1")
	if err != nil {
		t.Fatalf("ListChatMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Message != "what is a heap?" || msgs[2].Message != "thanks" {
		t.Fatalf("wrong order: %+v", msgs)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Fatalf("timestamps not non-decreasing at %d", i)
		}
	}
}

func TestActivityNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	for i, desc := range []string{"first", "second", "third"} {
		if _, err := s.CreateActivity(domain.NewActivity{
			UserID:      "u1",
			Action:      "resource_saved",
			Description: desc,
			Metadata:    domain.Metadata{"n": i},
		}); err != nil {
			t.Fatalf("CreateActivity: %v", err)
		}
	}

	feed, err := s.ListActivity("u1")
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(feed) != 3 || feed[0].Description != "third" || feed[2].Description != "first" {
		t.Fatalf("wrong order: %+v", feed)
	}
	for i := 1; i < len(feed); i++ {
		if feed[i].Timestamp.After(feed[i-1].Timestamp) {
			t.Fatalf("timestamps not non-increasing at %d", i)
		}
	}

	recent, _ := s.ListRecentActivity("u1", 2)
	if len(recent) != 2 || recent[0].Description != "third" || recent[1].Description != "second" {
		t.Fatalf("wrong recent slice: %+v", recent)
	}

	empty, _ := s.ListActivity("nobody")
	if len(empty) != 0 {
		t.Fatalf("expected empty feed, got %+v", empty)
	}
}
