package vault

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"nb-assistant/internal/notebook"
)

const mdExt = ".md"

// ListDocs lists the documents directly under path ("/" for the notebook root).
// A directory without a matching .md file is listed as an empty document so its
// sub-documents are still reached.
func (p *Provider) ListDocs(ctx context.Context, notebookID, dirPath string) ([]notebook.DocEntry, error) {
	dir, err := p.resolve(notebookID, dirPath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []notebook.DocEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dirPath, err)
	}

	rel := strings.Trim(path.Clean("/"+dirPath), "/")
	byName := make(map[string]*notebook.DocEntry)
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if hidden(e.Name()) {
			continue
		}

		name := e.Name()
		if !e.IsDir() {
			if path.Ext(name) != mdExt {
				continue
			}
			name = strings.TrimSuffix(name, mdExt)
		}

		doc, ok := byName[name]
		if !ok {
			childDir := path.Join(rel, name)
			doc = &notebook.DocEntry{
				ID:   docID(notebookID, childDir+mdExt),
				Name: name,
				Path: "/" + childDir,
			}
			byName[name] = doc
		}
		if e.IsDir() {
			count, err := p.countDocs(notebookID, doc.Path)
			if err != nil {
				return nil, err
			}
			doc.SubFileCount = count
		}
	}

	docs := make([]notebook.DocEntry, 0, len(byName))
	for _, d := range byName {
		docs = append(docs, *d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// countDocs counts the documents directly under a directory.
func (p *Provider) countDocs(notebookID, dirPath string) (int, error) {
	dir, err := p.resolve(notebookID, dirPath)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dirPath, err)
	}

	names := make(map[string]struct{})
	for _, e := range entries {
		if hidden(e.Name()) {
			continue
		}
		switch {
		case e.IsDir():
			names[e.Name()] = struct{}{}
		case path.Ext(e.Name()) == mdExt:
			names[strings.TrimSuffix(e.Name(), mdExt)] = struct{}{}
		}
	}
	return len(names), nil
}
