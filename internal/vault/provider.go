// Package vault serves notebooks from a local directory of markdown notes. Each
// sub-directory of the root is a notebook; each .md file is a document whose
// top-level markdown blocks become content blocks. A document X.md may have
// sub-documents in a sibling directory X/.
package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
)

// Provider is a notebook.ContentProvider over a local directory.
type Provider struct {
	root     string
	markdown goldmark.Markdown
}

// NewProvider creates a provider rooted at root, which must be an existing directory.
func NewProvider(root string) (*Provider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to access vault root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return &Provider{root: abs, markdown: goldmark.New()}, nil
}

// Notebooks returns the ids of all notebooks under the root.
func (p *Provider) Notebooks(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list vault root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// resolve maps a notebook-relative slash path to an absolute path inside the notebook.
func (p *Provider) resolve(notebookID, rel string) (string, error) {
	if notebookID == "" || strings.ContainsAny(notebookID, `/\`) || notebookID == "." || notebookID == ".." {
		return "", fmt.Errorf("invalid notebook id %q", notebookID)
	}
	nbDir := filepath.Join(p.root, notebookID)
	full := filepath.Join(nbDir, filepath.FromSlash(filepath.Clean("/"+rel)))
	if full != nbDir && !strings.HasPrefix(full, nbDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes notebook %s", rel, notebookID)
	}
	return full, nil
}

// docID encodes the notebook and the document's relative file path.
func docID(notebookID, relFile string) string {
	return notebookID + ":" + relFile
}

func splitDocID(id string) (notebookID, relFile string, err error) {
	nb, rel, ok := strings.Cut(id, ":")
	if !ok || nb == "" || rel == "" {
		return "", "", fmt.Errorf("invalid document id %q", id)
	}
	return nb, rel, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
