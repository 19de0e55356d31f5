// Command docengine-demo is a standalone harness over C1-C5: it builds a
// small document, applies one property change through the store and undoes
// it, diffs two branches, and three-way merges them, printing each stage's result as
// JSON. It exists to exercise the engine end-to-end without a server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/caravel-design/docengine/internal/diffop"
	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/merge"
	"github.com/caravel-design/docengine/internal/platform/envutil"
	"github.com/caravel-design/docengine/internal/platform/logger"
	"github.com/caravel-design/docengine/internal/store"
)

func main() {
	var logMode string
	flag.StringVar(&logMode, "log-mode", "dev", "log mode: dev or prod")
	flag.Parse()

	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	undoDepth := envutil.Int("DOCENGINE_UNDO_DEPTH", store.DefaultMaxUndoDepth)
	autoResolveConfidence := envutil.Float("DOCENGINE_AUTO_RESOLVE_CONFIDENCE", 0.7)
	yieldEvery := envutil.Int("DOCENGINE_YIELD_EVERY", 1000)

	s := store.New(store.WithLogger(log), store.WithMaxUndoDepth(undoDepth))
	unsubscribe := s.Subscribe(func(e store.Event) {
		log.Info("store event", "type", string(e.Type), "mutationId", e.MutationID, "nodeId", e.NodeID)
	})
	defer unsubscribe()

	base := demoDocument()
	if serr := s.Load(base, ""); serr != nil {
		fmt.Printf("load document: %v\n", serr)
		os.Exit(1)
	}
	printJSON("loaded", s.Document())

	if _, serr := s.ApplyPropertyChange("title", "text", "Hello, docengine", nil); serr != nil {
		fmt.Printf("apply property change: %v\n", serr)
		os.Exit(1)
	}
	printJSON("after-edit", s.Document())

	if serr := s.Undo(); serr != nil {
		fmt.Printf("undo: %v\n", serr)
		os.Exit(1)
	}
	printJSON("after-undo", s.Document())

	local := s.Document()
	local.Artboards[0].Children[0].Children[0].Text = "Local edit"

	remote := s.Document()
	remote.Artboards[0].Children[1].Name = "Renamed Widget"

	delta := diffop.Diff(base, local, diffop.DefaultOptions())
	printJSON("diff-local", delta)

	mergeOpts := merge.DefaultOptions()
	mergeOpts.MinAutoResolveConfidence = autoResolveConfidence
	mergeOpts.YieldEvery = yieldEvery

	result, merr := merge.Merge(context.Background(), base, local, remote, mergeOpts)
	if merr != nil {
		fmt.Printf("merge: %v\n", merr)
		os.Exit(1)
	}
	printJSON("merge-result", result)

	fmt.Printf("done; unresolvedConflicts=%d confidence=%.2f needsManualReview=%v\n",
		len(result.UnresolvedConflicts), result.Confidence, result.NeedsManualReview)
}

func demoDocument() *docmodel.Document {
	return &docmodel.Document{
		SchemaVersion: docmodel.SupportedSchemaVersion,
		ID:            "demo-doc",
		Name:          "Demo",
		Artboards: []*docmodel.Artboard{
			{
				ID:   "ab-1",
				Name: "Desktop",
				Children: []*docmodel.Node{
					{ID: "hero", Name: "Hero", Visible: true, Kind: docmodel.KindFrame, Children: []*docmodel.Node{
						{ID: "title", Name: "Title", Visible: true, Kind: docmodel.KindText, Text: "Hi"},
					}},
					{ID: "widget", Name: "Widget", Visible: true, Kind: docmodel.KindComponent, ComponentKey: "Button", Props: map[string]any{"label": "Go"}},
				},
			},
		},
	}
}

func printJSON(label string, v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%s: <marshal error: %v>\n", label, err)
		return
	}
	fmt.Printf("--- %s ---\n%s\n", label, raw)
}
