package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds everything the preparation commands need.
type Config struct {
	// DataRoot is where archives are extracted and where ground truth and
	// conversion look for them, unless a stage sets its own directory.
	DataRoot    string            `yaml:"data_root"`
	Fetch       FetchConfig       `yaml:"fetch"`
	GroundTruth GroundTruthConfig `yaml:"ground_truth"`
	Convert     ConvertConfig     `yaml:"convert"`
	Plot        PlotConfig        `yaml:"plot"`
	Datasets    []Dataset         `yaml:"datasets"`
}

// FetchConfig configures the dataset fetcher.
type FetchConfig struct {
	DownloadDir string        `yaml:"download_dir"`
	URLs        []string      `yaml:"urls"`
	Retries     int           `yaml:"retries"`
	RateLimit   int64         `yaml:"rate_limit"` // bytes per second, 0 means unlimited
	InsecureTLS bool          `yaml:"insecure_tls"`
	Timeout     time.Duration `yaml:"timeout"`
	Progress    bool          `yaml:"progress"`
}

// GroundTruthConfig configures the crop and ground-truth passes.
type GroundTruthConfig struct {
	DataRoot   string `yaml:"data_root"`
	CropTool   string `yaml:"crop_tool"`
	GTTool     string `yaml:"gt_tool"`
	QueryCount int    `yaml:"query_count"`
	K          int    `yaml:"k"`
	DataType   string `yaml:"data_type"`
	Batch      bool   `yaml:"batch"`
	Verify     bool   `yaml:"verify"`
}

// ConvertConfig configures the fvecs to bin converter.
type ConvertConfig struct {
	DataRoot  string `yaml:"data_root"`
	Tool      string `yaml:"tool"`
	DataType  string `yaml:"data_type"`
	SourceExt string `yaml:"source_ext"`
	TargetExt string `yaml:"target_ext"`
}

// PlotConfig configures the results plotter.
type PlotConfig struct {
	InputDir   string   `yaml:"input_dir"`
	Pattern    string   `yaml:"pattern"`
	OutputDir  string   `yaml:"output_dir"`
	Algorithms []string `yaml:"algorithms"`
}

// Dataset describes the files of one benchmark dataset, relative to the data root.
type Dataset struct {
	Name             string `yaml:"name"`
	Base             string `yaml:"base"`
	Query            string `yaml:"query"`
	TruncatedQuery   string `yaml:"truncated_query"`
	GroundTruth      string `yaml:"ground_truth"`
	BatchGroundTruth string `yaml:"batch_ground_truth,omitempty"`
}

// BatchGroundTruthPath returns the batch ground-truth path, deriving it from
// GroundTruth when it is not set explicitly.
func (d Dataset) BatchGroundTruthPath() string {
	if d.BatchGroundTruth != "" {
		return d.BatchGroundTruth
	}
	ext := filepath.Ext(d.GroundTruth)
	return strings.TrimSuffix(d.GroundTruth, ext) + "_batch" + ext
}

// Resolve returns a copy of the dataset with every path joined to root.
func (d Dataset) Resolve(root string) Dataset {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	return Dataset{
		Name:             d.Name,
		Base:             join(d.Base),
		Query:            join(d.Query),
		TruncatedQuery:   join(d.TruncatedQuery),
		GroundTruth:      join(d.GroundTruth),
		BatchGroundTruth: join(d.BatchGroundTruthPath()),
	}
}

// DataTypes lists the element types the external tools accept.
var DataTypes = []string{"float", "int8", "uint8"}

// DefaultURLs are the archives of the standard benchmark datasets.
var DefaultURLs = []string{
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/gist.tar.gz",
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/sift10m.tar.gz",
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/deep1M.tar.gz",
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/msong.tar.gz",
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/glove1.2m.tar.gz",
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/glove2.2m.tar.gz",
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/imagenet.tar.gz",
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/netflix.tar.gz",
	"https://www.cse.cuhk.edu.hk/systems/hash/gqr/dataset/word2vec.tar.gz",
	"ftp://ftp.irisa.fr/local/texmex/corpus/sift.tar.gz",
}

// standardDataset builds the usual <name>/<name>_{base,query,query_1k}.fvecs layout.
func standardDataset(name string) Dataset {
	return Dataset{
		Name:           name,
		Base:           name + "/" + name + "_base.fvecs",
		Query:          name + "/" + name + "_query.fvecs",
		TruncatedQuery: name + "/" + name + "_query_1k.fvecs",
		GroundTruth:    name + "/" + name + "_base_100_1k.gt",
	}
}

// DefaultDatasets returns the datasets the benchmark expects after extraction.
func DefaultDatasets() []Dataset {
	gist := standardDataset("gist")
	// The gist archive ships its base file without the underscore.
	gist.Base = "gist/gistbase.fvecs"
	return []Dataset{
		standardDataset("deep1M"),
		gist,
		standardDataset("glove1.2m"),
		standardDataset("glove2.2m"),
		standardDataset("msong"),
		standardDataset("netflix"),
		standardDataset("sift10m"),
		standardDataset("word2vec"),
		standardDataset("sift"),
	}
}

// DefaultAlgorithms are the plotted series, in legend order.
var DefaultAlgorithms = []string{"hnsw", "parlayhnsw", "parlayvamana", "vamana"}

// DefaultDataRoot is shared by fetch, ground truth and conversion.
const DefaultDataRoot = "data"

// DefaultConfig returns the built-in configuration with every stage rooted at
// DefaultDataRoot.
func DefaultConfig() Config {
	cfg := defaults()
	cfg.inheritDataRoot()
	return cfg
}

// defaults leaves the stage directories empty so they follow DataRoot.
func defaults() Config {
	return Config{
		DataRoot: DefaultDataRoot,
		Fetch: FetchConfig{
			URLs:        append([]string(nil), DefaultURLs...),
			InsecureTLS: true,
			Timeout:     0,
			Progress:    true,
		},
		GroundTruth: GroundTruthConfig{
			QueryCount: 1000,
			K:          10,
			DataType:   "float",
		},
		Convert: ConvertConfig{
			Tool:      "utils/build/fvecs_to_bin",
			DataType:  "float",
			SourceExt: ".fvecs",
			TargetExt: ".bin",
		},
		Plot: PlotConfig{
			InputDir:   ".",
			Pattern:    "batch*.csv",
			OutputDir:  ".",
			Algorithms: append([]string(nil), DefaultAlgorithms...),
		},
		Datasets: DefaultDatasets(),
	}
}

// inheritDataRoot points every stage without its own directory at DataRoot.
func (c *Config) inheritDataRoot() {
	for _, dir := range []*string{&c.Fetch.DownloadDir, &c.GroundTruth.DataRoot, &c.Convert.DataRoot} {
		if *dir == "" {
			*dir = c.DataRoot
		}
	}
	// crop and compute_gt are built next to the data they process
	if c.GroundTruth.CropTool == "" {
		c.GroundTruth.CropTool = localTool(c.GroundTruth.DataRoot, "crop")
	}
	if c.GroundTruth.GTTool == "" {
		c.GroundTruth.GTTool = localTool(c.GroundTruth.DataRoot, "compute_gt")
	}
}

// localTool joins dir and name, keeping a path separator so the result is
// never looked up in PATH.
func localTool(dir, name string) string {
	p := filepath.Join(dir, name)
	if !strings.ContainsRune(p, filepath.Separator) {
		p = "." + string(filepath.Separator) + p
	}
	return p
}

// LoadConfig reads a YAML file on top of the defaults.
// A missing file at the default location is not an error.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := defaults()
	buf, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return cfg, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
		log.Debug().Msgf("Loaded configuration from %s", path)
	case errors.Is(err, os.ErrNotExist) && !required:
		log.Debug().Msgf("No configuration file at %s, using defaults", path)
	default:
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	applyEnv(&cfg)
	cfg.inheritDataRoot()
	return cfg, cfg.Validate()
}

// Validate checks the values the commands rely on.
func (c Config) Validate() error {
	var errs []error
	if c.DataRoot == "" {
		errs = append(errs, fmt.Errorf("data_root must not be empty"))
	}
	if c.GroundTruth.QueryCount <= 0 {
		errs = append(errs, fmt.Errorf("ground_truth.query_count must be positive, got %d", c.GroundTruth.QueryCount))
	}
	if c.GroundTruth.K <= 0 {
		errs = append(errs, fmt.Errorf("ground_truth.k must be positive, got %d", c.GroundTruth.K))
	}
	if !validDataType(c.GroundTruth.DataType) {
		errs = append(errs, fmt.Errorf("ground_truth.data_type %q not one of %v", c.GroundTruth.DataType, DataTypes))
	}
	if !validDataType(c.Convert.DataType) {
		errs = append(errs, fmt.Errorf("convert.data_type %q not one of %v", c.Convert.DataType, DataTypes))
	}
	if c.Convert.SourceExt == "" || c.Convert.SourceExt == c.Convert.TargetExt {
		errs = append(errs, fmt.Errorf("convert extensions must be non-empty and distinct"))
	}
	if c.Fetch.Retries < 0 {
		errs = append(errs, fmt.Errorf("fetch.retries must not be negative"))
	}
	if c.Fetch.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("fetch.rate_limit must not be negative"))
	}
	seen := make(map[string]struct{}, len(c.Datasets))
	for i, d := range c.Datasets {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("datasets[%d] has no name", i))
			continue
		}
		if _, dup := seen[d.Name]; dup {
			errs = append(errs, fmt.Errorf("dataset %q listed twice", d.Name))
		}
		seen[d.Name] = struct{}{}
		if d.Base == "" || d.Query == "" || d.TruncatedQuery == "" || d.GroundTruth == "" {
			errs = append(errs, fmt.Errorf("dataset %q is missing a path", d.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func validDataType(t string) bool {
	for _, dt := range DataTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// SelectDatasets returns the named datasets, or all of them when names is empty.
func (c Config) SelectDatasets(names []string) ([]Dataset, error) {
	if len(names) == 0 {
		return c.Datasets, nil
	}
	byName := make(map[string]Dataset, len(c.Datasets))
	for _, d := range c.Datasets {
		byName[d.Name] = d
	}
	out := make([]Dataset, 0, len(names))
	for _, n := range names {
		d, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown dataset %q", n)
		}
		out = append(out, d)
	}
	return out, nil
}
