package note

import "github.com/Joseda-hg/lazynote/internal/model"

// TreeRow is one visible note in a parent/child outline.
type TreeRow struct {
	Note        model.Note
	Depth       int
	HasChildren bool
}

// Tree orders notes depth first under their parents, keeping the input order
// among siblings. Notes whose parent is not in the slice are roots, and so is
// one note of any parent loop. Children of ids marked in collapsed are
// hidden.
func Tree(notes []model.Note, collapsed map[string]bool) []TreeRow {
	if len(notes) == 0 {
		return nil
	}

	byID := make(map[string]model.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	childrenByParent := make(map[string][]model.Note)
	for _, n := range notes {
		parentID := ""
		if n.ParentID != nil {
			if _, ok := byID[*n.ParentID]; ok {
				parentID = *n.ParentID
			}
		}
		childrenByParent[parentID] = append(childrenByParent[parentID], n)
	}

	// Notes whose parent chain loops never reach a root. One note on each
	// loop is promoted to a root so the rest of the loop nests under it.
	reachable := make(map[string]bool, len(notes))
	var mark func(parentID string)
	mark = func(parentID string) {
		for _, n := range childrenByParent[parentID] {
			if reachable[n.ID] {
				continue
			}
			reachable[n.ID] = true
			mark(n.ID)
		}
	}
	mark("")

	roots := append([]model.Note(nil), childrenByParent[""]...)
	for _, n := range notes {
		if reachable[n.ID] {
			continue
		}
		entry := loopEntry(n, byID)
		reachable[entry.ID] = true
		mark(entry.ID)
		roots = append(roots, entry)
	}

	rows := make([]TreeRow, 0, len(notes))
	visited := make(map[string]bool, len(notes))

	var walk func(siblings []model.Note, depth int)
	walk = func(siblings []model.Note, depth int) {
		for _, n := range siblings {
			if visited[n.ID] {
				continue
			}
			visited[n.ID] = true
			hasChildren := len(childrenByParent[n.ID]) > 0
			rows = append(rows, TreeRow{Note: n, Depth: depth, HasChildren: hasChildren})
			if hasChildren && collapsed[n.ID] {
				continue
			}
			walk(childrenByParent[n.ID], depth+1)
		}
	}
	walk(roots, 0)
	return rows
}

// loopEntry follows parent links from n until a note repeats. n must not
// reach a root, so every parent on the way is in byID.
func loopEntry(n model.Note, byID map[string]model.Note) model.Note {
	seen := make(map[string]bool)
	for !seen[n.ID] {
		seen[n.ID] = true
		n = byID[*n.ParentID]
	}
	return n
}
