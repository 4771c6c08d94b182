package thread

import (
	"encoding/json"
	"testing"
	"time"

	"agora/internal/models"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func comment(id string, parent string, minute int) models.Comment {
	c := models.Comment{
		ID:        id,
		UserID:    "u-" + id,
		User:      models.User{ID: "u-" + id, Username: "name-" + id},
		PostID:    "p1",
		Content:   "body " + id,
		CreatedAt: base.Add(time.Duration(minute) * time.Minute),
	}
	if parent != "" {
		p := parent
		c.ParentCommentID = &p
	}
	return c
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Comment.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func chain() []models.Comment {
	return []models.Comment{
		comment("c1", "", 0),
		comment("c2", "c1", 1),
		comment("c3", "c2", 2),
	}
}

func TestBuildChain(t *testing.T) {
	roots := Build(chain())
	if !equal(ids(roots), []string{"c1"}) {
		t.Fatalf("roots = %v, want [c1]", ids(roots))
	}
	c1 := roots[0]
	if !equal(ids(c1.Replies), []string{"c2"}) {
		t.Fatalf("c1 replies = %v, want [c2]", ids(c1.Replies))
	}
	c2 := c1.Replies[0]
	if !equal(ids(c2.Replies), []string{"c3"}) {
		t.Fatalf("c2 replies = %v, want [c3]", ids(c2.Replies))
	}
	if len(c2.Replies[0].Replies) != 0 {
		t.Fatalf("c3 should be a leaf")
	}
	if c2.Author.Username != "name-c2" || c2.Author.ID != "u-c2" {
		t.Errorf("author = %+v", c2.Author)
	}
	if c2.ContentHTML == "" {
		t.Error("content html should be rendered")
	}
}

func TestBuildOrphanBecomesRoot(t *testing.T) {
	roots := Build([]models.Comment{
		comment("c1", "", 0),
		comment("c2", "nonexistent", 1),
	})
	if !equal(ids(roots), []string{"c1", "c2"}) {
		t.Fatalf("roots = %v, want [c1 c2]", ids(roots))
	}
}

func TestBuildKeepsInputOrder(t *testing.T) {
	roots := Build([]models.Comment{
		comment("a", "", 0),
		comment("b", "", 1),
		comment("a1", "a", 2),
		comment("b1", "b", 3),
		comment("a2", "a", 4),
		comment("c", "", 5),
		comment("a3", "a", 6),
	})
	if !equal(ids(roots), []string{"a", "b", "c"}) {
		t.Fatalf("roots = %v", ids(roots))
	}
	if !equal(ids(roots[0].Replies), []string{"a1", "a2", "a3"}) {
		t.Fatalf("a replies = %v", ids(roots[0].Replies))
	}
	if !equal(ids(roots[1].Replies), []string{"b1"}) {
		t.Fatalf("b replies = %v", ids(roots[1].Replies))
	}
}

func TestBuildChildBeforeParentInInput(t *testing.T) {
	roots := Build([]models.Comment{
		comment("c2", "c1", 1),
		comment("c1", "", 0),
	})
	if !equal(ids(roots), []string{"c1"}) {
		t.Fatalf("roots = %v, want [c1]", ids(roots))
	}
	if !equal(ids(roots[0].Replies), []string{"c2"}) {
		t.Fatalf("c1 replies = %v", ids(roots[0].Replies))
	}
}

func TestBuildDuplicateBatchesDoNotDuplicateNodes(t *testing.T) {
	batch := chain()
	roots := Build(append(batch, chain()...))
	if !equal(ids(roots), []string{"c1"}) {
		t.Fatalf("roots = %v, want [c1]", ids(roots))
	}
	if len(roots[0].Replies) != 1 || len(roots[0].Replies[0].Replies) != 1 {
		t.Fatalf("replies duplicated: %v / %v", ids(roots[0].Replies), ids(roots[0].Replies[0].Replies))
	}
}

func TestBuildCycleTerminatesAndDropsCycle(t *testing.T) {
	done := make(chan []*Node, 1)
	go func() {
		done <- Build([]models.Comment{
			comment("root", "", 0),
			comment("x", "y", 1),
			comment("y", "x", 2),
			comment("self", "self", 3),
			comment("z", "x", 4),
		})
	}()

	select {
	case roots := <-done:
		if !equal(ids(roots), []string{"root"}) {
			t.Fatalf("roots = %v, want [root]", ids(roots))
		}
		for _, id := range []string{"x", "y", "self", "z"} {
			if Find(roots, id) != nil {
				t.Errorf("%s should be unreachable from the roots", id)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Build did not terminate on cyclic input")
	}
}

func TestBuildEmpty(t *testing.T) {
	roots := Build(nil)
	if roots == nil || len(roots) != 0 {
		t.Fatalf("Build(nil) = %v, want empty non-nil slice", roots)
	}
	out, err := json.Marshal(roots)
	if err != nil || string(out) != "[]" {
		t.Fatalf("json = %s, %v", out, err)
	}
}

func TestAddReplyInsertsUnderMatchingNode(t *testing.T) {
	tree := Build(chain())
	updated := AddReply(tree, "c2", comment("new", "c2", 9))

	c2 := Find(updated, "c2")
	if !equal(ids(c2.Replies), []string{"c3", "new"}) {
		t.Fatalf("c2 replies = %v, want [c3 new]", ids(c2.Replies))
	}
	if !equal(ids(Find(updated, "c1").Replies), []string{"c2"}) {
		t.Errorf("c1 replies changed: %v", ids(Find(updated, "c1").Replies))
	}
	if len(Find(updated, "c3").Replies) != 0 {
		t.Errorf("c3 should stay a leaf")
	}
}

func TestAddReplyDoesNotMutateInput(t *testing.T) {
	tree := Build(chain())
	_ = AddReply(tree, "c2", comment("new", "c2", 9))

	if got := ids(Find(tree, "c2").Replies); !equal(got, []string{"c3"}) {
		t.Fatalf("original tree mutated: c2 replies = %v", got)
	}
}

func TestAddReplyDuplicateGuard(t *testing.T) {
	tree := Build(chain())
	once := AddReply(tree, "c2", comment("new", "c2", 9))
	twice := AddReply(once, "c2", comment("new", "c2", 9))

	if got := ids(Find(twice, "c2").Replies); !equal(got, []string{"c3", "new"}) {
		t.Fatalf("c2 replies = %v, want [c3 new]", got)
	}
	if &twice[0] != &once[0] {
		t.Error("duplicate insert should return the tree unchanged")
	}
}

func TestAddReplyUnknownParentIsNoop(t *testing.T) {
	tree := Build(chain())
	updated := AddReply(tree, "missing", comment("new", "missing", 9))
	if &updated[0] != &tree[0] {
		t.Fatal("expected the same tree back")
	}
	if Find(updated, "new") != nil {
		t.Fatal("reply should not have been inserted")
	}
}

func TestAddRoot(t *testing.T) {
	tree := Build(chain())
	updated := AddRoot(tree, comment("r2", "", 5))
	if !equal(ids(updated), []string{"c1", "r2"}) {
		t.Fatalf("roots = %v", ids(updated))
	}
	if len(tree) != 1 {
		t.Fatalf("input mutated: %v", ids(tree))
	}
	if again := AddRoot(updated, comment("r2", "", 5)); len(again) != 2 {
		t.Fatalf("duplicate root appended: %v", ids(again))
	}
}
