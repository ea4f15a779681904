package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/trendscan/pkg/trendscan/cluster"
	"github.com/cognicore/trendscan/pkg/trendscan/entities"
	"github.com/cognicore/trendscan/pkg/trendscan/stoplist"
)

// Denylist represents the noise-term file, grouped by why a term is noise
type Denylist struct {
	Bots          []string `yaml:"bots"`
	Abbreviations []string `yaml:"abbreviations"`
	Slang         []string `yaml:"slang"`
	Manual        []string `yaml:"manual"`
}

// Manager converts the file into a stoplist manager
func (d *Denylist) Manager() *stoplist.Manager {
	m := stoplist.NewManager(nil)
	m.AddAll(d.Bots, stoplist.ReasonBot)
	m.AddAll(d.Abbreviations, stoplist.ReasonAbbreviation)
	m.AddAll(d.Slang, stoplist.ReasonSlang)
	m.AddAll(d.Manual, stoplist.ReasonManual)
	return m
}

// LoadDenylist loads the denylist from a YAML file
func LoadDenylist(path string) (*Denylist, error) {
	var d Denylist
	if err := readYAML(path, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Stopwords represents the stopword list configuration
type Stopwords struct {
	Terms []string `yaml:"terms"`
}

// LoadStopwords loads stopwords from a YAML file
func LoadStopwords(path string) (*Stopwords, error) {
	var s Stopwords
	if err := readYAML(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Seeds represents the seed topic file. Topics are a list so their order
// survives parsing.
type Seeds struct {
	Topics []cluster.Topic `yaml:"topics"`
}

// LoadSeeds loads and validates seed topics from a YAML file
func LoadSeeds(path string) (cluster.SeedSet, error) {
	var s Seeds
	if err := readYAML(path, &s); err != nil {
		return nil, err
	}
	set := cluster.SeedSet(s.Topics)
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Gazetteer represents known entities: label -> canonical name -> variants
type Gazetteer struct {
	Entities map[string]map[string][]string `yaml:"entities"`
}

// Entries flattens the file in label then name order, so conflicting
// phrases resolve the same way on every load.
func (g *Gazetteer) Entries() []entities.GazetteerEntry {
	labels := make([]string, 0, len(g.Entities))
	for label := range g.Entities {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var out []entities.GazetteerEntry
	for _, label := range labels {
		names := make([]string, 0, len(g.Entities[label]))
		for name := range g.Entities[label] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, entities.GazetteerEntry{Name: name, Label: label, Variants: g.Entities[label][name]})
		}
	}
	return out
}

// LoadGazetteer loads known entities from a YAML file
func LoadGazetteer(path string) (*Gazetteer, error) {
	var g Gazetteer
	if err := readYAML(path, &g); err != nil {
		return nil, err
	}
	for label := range g.Entities {
		if _, ok := entities.CategoryForLabel(label); !ok {
			return nil, fmt.Errorf("%s: unknown entity label %q", path, label)
		}
	}
	return &g, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// Loader loads all term files and constructs components
type Loader struct {
	DenylistPath  string
	StopwordsPath string
	SeedsPath     string
	GazetteerPath string
}

// Components holds the loaded term sets. Missing paths fall back to the
// built-in defaults.
type Components struct {
	Denylist  *stoplist.Manager
	Stopwords []string
	Seeds     cluster.SeedSet
	Gazetteer *entities.Gazetteer
}

// Load reads all configured files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	if l.DenylistPath != "" {
		d, err := LoadDenylist(l.DenylistPath)
		if err != nil {
			return nil, fmt.Errorf("load denylist: %w", err)
		}
		comp.Denylist = d.Manager()
	} else {
		comp.Denylist = stoplist.DefaultDenylist()
	}

	if l.StopwordsPath != "" {
		s, err := LoadStopwords(l.StopwordsPath)
		if err != nil {
			return nil, fmt.Errorf("load stopwords: %w", err)
		}
		comp.Stopwords = s.Terms
	} else {
		comp.Stopwords = stoplist.DefaultStopwords()
	}

	if l.SeedsPath != "" {
		seeds, err := LoadSeeds(l.SeedsPath)
		if err != nil {
			return nil, fmt.Errorf("load seeds: %w", err)
		}
		comp.Seeds = seeds
	} else {
		comp.Seeds = cluster.DefaultSeeds()
	}

	if l.GazetteerPath != "" {
		g, err := LoadGazetteer(l.GazetteerPath)
		if err != nil {
			return nil, fmt.Errorf("load gazetteer: %w", err)
		}
		comp.Gazetteer = entities.NewGazetteer(g.Entries())
	} else {
		comp.Gazetteer = entities.DefaultGazetteer()
	}

	return comp, nil
}
