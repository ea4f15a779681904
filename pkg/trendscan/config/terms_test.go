package config

import (
	"path/filepath"
	"testing"

	"github.com/cognicore/trendscan/pkg/trendscan/cluster"
	"github.com/cognicore/trendscan/pkg/trendscan/stoplist"
)

func TestLoadDenylist(t *testing.T) {
	path := writeFile(t, "denylist.yaml", `
bots: [RawChili, newsbeep]
abbreviations: [espn]
slang: [kek]
manual: [thread]
`)
	d, err := LoadDenylist(path)
	if err != nil {
		t.Fatalf("LoadDenylist failed: %v", err)
	}
	m := d.Manager()
	if m.Len() != 5 {
		t.Errorf("Expected 5 terms, got %d", m.Len())
	}
	if r, ok := m.Reason("rawchili"); !ok || r != stoplist.ReasonBot {
		t.Errorf("Expected bot reason for rawchili, got %v %v", r, ok)
	}
	if !m.IsStop("THREAD") {
		t.Error("Manual terms should be denylisted")
	}
}

func TestLoadSeedsKeepsOrder(t *testing.T) {
	path := writeFile(t, "seeds.yaml", `
topics:
  - label: NHL
    seeds: [Hockey, puck]
  - label: NFL
    seeds: [football]
  - label: Cricket
    seeds: []
`)
	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("LoadSeeds failed: %v", err)
	}
	if len(seeds) != 3 || seeds[0].Label != "NHL" || seeds[2].Label != "Cricket" {
		t.Errorf("Unexpected seeds %+v", seeds)
	}
	if seeds[0].Seeds[0] != "hockey" {
		t.Errorf("Seeds should be lowercased, got %q", seeds[0].Seeds[0])
	}

	dup := writeFile(t, "dup.yaml", "topics:\n  - label: NFL\n  - label: NFL\n")
	if _, err := LoadSeeds(dup); err == nil {
		t.Error("Expected error for duplicate labels")
	}
}

func TestLoadGazetteer(t *testing.T) {
	path := writeFile(t, "gazetteer.yaml", `
entities:
  ORG:
    buffalo bills: [bills]
    kansas city chiefs: [chiefs, kc chiefs]
  GPE:
    buffalo: []
`)
	g, err := LoadGazetteer(path)
	if err != nil {
		t.Fatalf("LoadGazetteer failed: %v", err)
	}
	entries := g.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Label != "GPE" || entries[1].Name != "buffalo bills" {
		t.Errorf("Entries should be sorted by label then name: %+v", entries)
	}

	bad := writeFile(t, "bad.yaml", "entities:\n  WEAPON:\n    sword: []\n")
	if _, err := LoadGazetteer(bad); err == nil {
		t.Error("Expected error for unknown label")
	}
}

func TestLoaderDefaults(t *testing.T) {
	comp, err := (&Loader{}).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if comp.Denylist.Len() == 0 || len(comp.Stopwords) == 0 || len(comp.Seeds) != 6 || comp.Gazetteer.Len() == 0 {
		t.Errorf("Expected built-in defaults, got %+v", comp)
	}
}

func TestLoaderFiles(t *testing.T) {
	l := &Loader{
		StopwordsPath: writeFile(t, "stop.yaml", "terms: [the, and]\n"),
		SeedsPath:     writeFile(t, "seeds.yaml", "topics:\n  - label: F1\n    seeds: [pitstop]\n"),
	}
	comp, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(comp.Stopwords) != 2 || comp.Seeds[0].Label != "F1" {
		t.Errorf("Unexpected components %+v", comp)
	}

	l.DenylistPath = "/does/not/exist.yaml"
	if _, err := l.Load(); err == nil {
		t.Error("Expected error for missing denylist file")
	}
}

func TestShippedConfigFiles(t *testing.T) {
	root := filepath.Join("..", "..", "..", "configs")
	cfg, err := Load(filepath.Join(root, "trendscan.yaml"))
	if err != nil {
		t.Fatalf("Load shipped config: %v", err)
	}
	def := Default()
	if cfg.TopN != def.TopN || cfg.Cluster.Threshold != def.Cluster.Threshold || cfg.Server.RunTimeout != def.Server.RunTimeout {
		t.Errorf("Shipped config drifted from defaults: %+v", cfg)
	}

	l := cfg.Loader()
	for _, p := range []*string{&l.DenylistPath, &l.StopwordsPath, &l.SeedsPath, &l.GazetteerPath} {
		*p = filepath.Join(root, filepath.Base(*p))
	}
	comp, err := l.Load()
	if err != nil {
		t.Fatalf("Load shipped term files: %v", err)
	}
	if len(comp.Seeds) != len(cluster.DefaultSeeds()) {
		t.Errorf("Expected %d seed topics, got %d", len(cluster.DefaultSeeds()), len(comp.Seeds))
	}
	if e, ok := comp.Gazetteer.Lookup("king james"); !ok || e.Name != "lebron james" {
		t.Errorf("Expected king james to resolve to lebron james, got %+v %v", e, ok)
	}
	if !comp.Denylist.IsStop("newsbeep") {
		t.Error("Expected bot handle in shipped denylist")
	}
}
