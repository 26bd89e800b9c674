package indexer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/mock/gomock"

	"nb-assistant/internal/notebook"
	"nb-assistant/internal/notebook/mocks"
)

func TestWalker_Collect(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockContentProvider(ctrl)
	ctx := context.Background()

	provider.EXPECT().ListDocs(gomock.Any(), "nb1", "/").Return([]notebook.DocEntry{
		{ID: "doc-a", Name: "Alpha", Path: "/doc-a.sy"},
		{ID: "doc-b", Name: "Beta", Path: "/doc-b.sy", SubFileCount: 1},
	}, nil)
	provider.EXPECT().ListDocs(gomock.Any(), "nb1", "/doc-b.sy").Return([]notebook.DocEntry{
		{ID: "doc-c", Name: "Gamma", Path: "/doc-b/doc-c.sy"},
	}, nil)
	provider.EXPECT().ChildBlocks(gomock.Any(), "doc-a").Return([]notebook.Block{{ID: "a1", Markdown: "alpha text"}}, nil)
	provider.EXPECT().ChildBlocks(gomock.Any(), "doc-b").Return([]notebook.Block{{ID: "b1", Markdown: "beta text"}}, nil)
	provider.EXPECT().ChildBlocks(gomock.Any(), "doc-c").Return([]notebook.Block{
		{ID: "c1", Markdown: "gamma one"},
		{ID: "c2", Markdown: "gamma two"},
	}, nil)

	tree, err := NewWalker(provider, NewBlockChunker(128)).Collect(ctx, "nb1")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	chunks := Flatten(tree, "nb1", "Notebook", 1)
	if len(chunks) != 3 {
		t.Fatalf("Flatten() = %d chunks, want 3", len(chunks))
	}

	wantContent := []string{
		"Alpha\n\nalpha text\n",
		"Beta\n\nbeta text\n",
		"Beta\nGamma\ngamma one\ngamma two\n",
	}
	for i, chunk := range chunks {
		if chunk.ID != i+1 {
			t.Errorf("chunk[%d].ID = %d, want %d", i, chunk.ID, i+1)
		}
		if chunk.Content != wantContent[i] {
			t.Errorf("chunk[%d].Content = %q, want %q", i, chunk.Content, wantContent[i])
		}
	}

	refs := Blocks(tree)
	wantBlocks := []BlockRef{
		{DocID: "doc-a", Block: notebook.Block{ID: "a1", Markdown: "alpha text"}},
		{DocID: "doc-b", Block: notebook.Block{ID: "b1", Markdown: "beta text"}},
		{DocID: "doc-c", Block: notebook.Block{ID: "c1", Markdown: "gamma one"}},
		{DocID: "doc-c", Block: notebook.Block{ID: "c2", Markdown: "gamma two"}},
	}
	if !reflect.DeepEqual(refs, wantBlocks) {
		t.Errorf("Blocks() = %+v, want %+v", refs, wantBlocks)
	}
}

func TestWalker_CollectPropagatesProviderErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockContentProvider(ctrl)
	providerErr := errors.New("host unavailable")

	provider.EXPECT().ListDocs(gomock.Any(), "nb1", "/").Return([]notebook.DocEntry{{ID: "doc-a", Name: "Alpha"}}, nil)
	provider.EXPECT().ChildBlocks(gomock.Any(), "doc-a").Return(nil, providerErr)

	_, err := NewWalker(provider, NewBlockChunker(128)).Collect(context.Background(), "nb1")
	if !errors.Is(err, providerErr) {
		t.Fatalf("Collect() error = %v, want %v", err, providerErr)
	}
}
