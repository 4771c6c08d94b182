package services

import "testing"

func TestSubredditLifecycle(t *testing.T) {
	f := newFixture(t)
	subs := NewSubredditService(f.db)
	posts := NewPostService(f.db, f.cache)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	for _, bad := range []string{"ab", "has space", "way_too_long_for_a_name_here", "dash-ed"} {
		_, err := subs.Create(f.ctx, alice.ID, SubredditInput{Name: bad})
		assertKind(t, err, ErrValidation)
	}

	sub, err := subs.Create(f.ctx, alice.ID, SubredditInput{Name: "golang", Description: "gophers"})
	if err != nil {
		t.Fatal(err)
	}
	if sub.Title != "golang" {
		t.Fatalf("expected title to default to name, got %q", sub.Title)
	}
	_, err = subs.Create(f.ctx, bob.ID, SubredditInput{Name: "GoLang"})
	assertKind(t, err, ErrConflict)

	if _, err := subs.Join(f.ctx, bob.ID, "golang"); err != nil {
		t.Fatal(err)
	}
	_, err = subs.Join(f.ctx, bob.ID, "golang")
	assertKind(t, err, ErrConflict)

	view, err := subs.Get(f.ctx, "golang")
	if err != nil {
		t.Fatal(err)
	}
	if view.MemberCount != 2 {
		t.Fatalf("expected owner and bob as members, got %d", view.MemberCount)
	}

	title := "Go"
	_, err = subs.Update(f.ctx, bob.ID, "golang", SubredditUpdate{Title: &title})
	assertKind(t, err, ErrForbidden)
	updated, err := subs.Update(f.ctx, alice.ID, "golang", SubredditUpdate{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Go" {
		t.Fatalf("expected new title, got %q", updated.Title)
	}

	if _, err := posts.Create(f.ctx, bob.ID, PostInput{Title: "inside", SubredditID: &sub.ID}); err != nil {
		t.Fatal(err)
	}
	f.post(t, bob, "outside")
	inside, err := posts.ListBySubreddit(f.ctx, "golang", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(inside) != 1 || inside[0].Title != "inside" {
		t.Fatalf("unexpected subreddit posts %v", titles(inside))
	}

	assertKind(t, subs.Leave(f.ctx, alice.ID, "golang"), ErrValidation)
	if err := subs.Leave(f.ctx, bob.ID, "golang"); err != nil {
		t.Fatal(err)
	}
	assertKind(t, subs.Leave(f.ctx, bob.ID, "golang"), ErrNotFound)

	members, err := subs.Members(f.ctx, "golang")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || !members[0].IsModerator {
		t.Fatalf("expected only the owner as moderator, got %+v", members)
	}

	_, err = subs.Get(f.ctx, "nowhere")
	assertKind(t, err, ErrNotFound)
}

func TestSubredditLookupIgnoresCase(t *testing.T) {
	f := newFixture(t)
	subs := NewSubredditService(f.db)
	posts := NewPostService(f.db, f.cache)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	sub, err := subs.Create(f.ctx, alice.ID, SubredditInput{Name: "golang"})
	if err != nil {
		t.Fatal(err)
	}
	view, err := subs.Get(f.ctx, "GoLang")
	if err != nil {
		t.Fatalf("get by other case: %v", err)
	}
	if view.ID != sub.ID {
		t.Fatalf("expected %s, got %s", sub.ID, view.ID)
	}
	if _, err := subs.Join(f.ctx, bob.ID, "GOLANG"); err != nil {
		t.Fatalf("join by other case: %v", err)
	}

	if _, err := posts.Create(f.ctx, bob.ID, PostInput{Title: "inside", SubredditID: &sub.ID}); err != nil {
		t.Fatal(err)
	}
	list, err := posts.ListBySubreddit(f.ctx, "GoLang", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "inside" {
		t.Fatalf("unexpected subreddit posts %v", titles(list))
	}
}
