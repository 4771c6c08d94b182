// Package thread rebuilds nested reply trees from the flat, self-referencing
// comment rows of a post.
//
// Build makes exactly two linear passes over its input and never follows
// parent pointers, so malformed data (cycles, self-parents) cannot make it
// loop. Comments whose parent is unknown become roots; comments caught in a
// cycle end up attached only to each other and are unreachable from the
// returned roots.
package thread

import (
	"agora/internal/models"
	"agora/internal/utils"
)

type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Node struct {
	Comment     models.Comment `json:"comment"`
	Author      Author         `json:"author"`
	ContentHTML string         `json:"content_html"`
	Replies     []*Node        `json:"replies"`
}

// NewNode wraps a comment row. The row's User association supplies the
// author.
func NewNode(c models.Comment) *Node {
	return &Node{
		Comment:     c,
		Author:      Author{ID: c.UserID, Username: c.User.Username},
		ContentHTML: utils.RenderMarkdown(c.Content),
		Replies:     []*Node{},
	}
}

// Build turns comments, sorted by creation time ascending, into a forest.
// Input order is kept among roots and within every reply list. Repeated
// comment ids are ignored after their first occurrence.
func Build(comments []models.Comment) []*Node {
	byID := make(map[string]*Node, len(comments))
	ordered := make([]*Node, 0, len(comments))
	for _, c := range comments {
		if _, seen := byID[c.ID]; seen {
			continue
		}
		n := NewNode(c)
		byID[c.ID] = n
		ordered = append(ordered, n)
	}

	roots := make([]*Node, 0)
	for _, n := range ordered {
		if pid := n.Comment.ParentCommentID; pid != nil {
			if parent, ok := byID[*pid]; ok {
				if !hasReply(parent, n.Comment.ID) {
					parent.Replies = append(parent.Replies, n)
				}
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// AddReply returns a tree with reply inserted under the first node (depth
// first) whose id is parentID. The input tree is never modified: nodes on
// the path to the parent are copied and every other subtree is shared. If no
// node matches, or the parent already holds a reply with the same id, tree
// is returned as is.
func AddReply(tree []*Node, parentID string, reply models.Comment) []*Node {
	updated, status := insert(tree, parentID, NewNode(reply))
	if status != inserted {
		return tree
	}
	return updated
}

// AddRoot appends c as a new root unless a root with the same id exists.
func AddRoot(tree []*Node, c models.Comment) []*Node {
	for _, n := range tree {
		if n.Comment.ID == c.ID {
			return tree
		}
	}
	out := make([]*Node, len(tree), len(tree)+1)
	copy(out, tree)
	return append(out, NewNode(c))
}

// Find returns the first node with the given id, depth first.
func Find(tree []*Node, id string) *Node {
	for _, n := range tree {
		if n.Comment.ID == id {
			return n
		}
		if found := Find(n.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

type insertStatus int

const (
	notFound insertStatus = iota
	duplicate
	inserted
)

func insert(nodes []*Node, parentID string, child *Node) ([]*Node, insertStatus) {
	for i, n := range nodes {
		if n.Comment.ID == parentID {
			if hasReply(n, child.Comment.ID) {
				return nodes, duplicate
			}
			clone := *n
			clone.Replies = make([]*Node, len(n.Replies), len(n.Replies)+1)
			copy(clone.Replies, n.Replies)
			clone.Replies = append(clone.Replies, child)
			return replaceAt(nodes, i, &clone), inserted
		}
		replies, status := insert(n.Replies, parentID, child)
		switch status {
		case duplicate:
			return nodes, duplicate
		case inserted:
			clone := *n
			clone.Replies = replies
			return replaceAt(nodes, i, &clone), inserted
		}
	}
	return nodes, notFound
}

func replaceAt(nodes []*Node, i int, n *Node) []*Node {
	out := make([]*Node, len(nodes))
	copy(out, nodes)
	out[i] = n
	return out
}

func hasReply(parent *Node, id string) bool {
	for _, r := range parent.Replies {
		if r.Comment.ID == id {
			return true
		}
	}
	return false
}
