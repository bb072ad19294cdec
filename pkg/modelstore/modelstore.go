// Package modelstore persists trained models and their metadata.
//
// A model version is kept as two files in the store location:
//
//	<name>_<version>.model.json   the trained model
//	<name>_<version>.json         metadata: metrics, metrics history, train report
//
// Storing a version that already exists first copies the old files into
// "previous/" with a timestamp infix, e.g. "iris_1.0.0_2024-05-01_12-00-00.json".
package modelstore

import (
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
	"github.com/ajitpratap0/launchpad/pkg/model"
)

const (
	// DateFormat is used for metadata timestamps
	DateFormat = "2006-01-02 15:04:05"
	// fileDateFormat is the timestamp infix of backup files
	fileDateFormat = "2006-01-02_15-04-05"

	metaExt     = ".json"
	contentsExt = ".model.json"
	backupDir   = "previous"
)

// Metadata describes a stored model version
type Metadata struct {
	Name           string                   `json:"name"`
	Version        string                   `json:"version"`
	APIName        string                   `json:"api_name,omitempty"`
	Created        string                   `json:"created"`
	CreatedBy      string                   `json:"created_by"`
	Metrics        model.Metrics            `json:"metrics"`
	MetricsHistory map[string]model.Metrics `json:"metrics_history"`
	TrainReport    map[string]interface{}   `json:"train_report,omitempty"`
	ConfigSnapshot config.ModelConfig       `json:"config_snapshot"`
}

// Stored is a loaded model version
type Stored struct {
	Contents model.Contents
	Meta     *Metadata
}

// Versions lists the stored versions of one model
type Versions struct {
	// ByVersion holds the metadata of every stored version
	ByVersion map[string]*Metadata `json:"versions"`
	// Latest is the highest stored version
	Latest *Metadata `json:"latest"`
	// Backups are the versions found in previous/, oldest first
	Backups []*Metadata `json:"backups"`
}

// Store is a directory of trained models
type Store struct {
	location string
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New opens the store at location, creating the directory if needed
func New(location string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(location, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create model store").
			WithDetail("location", location)
	}
	s := &Store{
		location: location,
		now:      time.Now,
		logger:   logger.Get().With(zap.String("component", "model_store"), zap.String("location", location)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Location returns the store directory
func (s *Store) Location() string {
	return s.location
}

func (s *Store) baseName(conf config.ModelConfig) string {
	return filepath.Join(s.location, conf.Key())
}

// Dump stores a trained model together with fresh metadata, backing up any
// earlier files of the same version
func (s *Store) Dump(conf config.ModelConfig, apiName string, contents model.Contents, metrics model.Metrics, report map[string]interface{}) (*Metadata, error) {
	base := s.baseName(conf)
	if err := s.backup(base); err != nil {
		return nil, err
	}

	now := s.now().Format(DateFormat)
	if metrics == nil {
		metrics = model.Metrics{}
	}
	meta := &Metadata{
		Name:           conf.Name,
		Version:        conf.Version,
		APIName:        apiName,
		Created:        now,
		CreatedBy:      currentUser(),
		Metrics:        metrics,
		MetricsHistory: map[string]model.Metrics{now: metrics},
		TrainReport:    report,
		ConfigSnapshot: conf,
	}

	if err := writeFile(base+contentsExt, contents); err != nil {
		return nil, err
	}
	if err := writeMeta(base, meta); err != nil {
		return nil, err
	}

	s.logger.Info("model stored", zap.String("model", conf.Key()))
	return meta, nil
}

// Load reads a stored model version. A version that was never stored is a
// not_found error.
func (s *Store) Load(conf config.ModelConfig) (*Stored, error) {
	base := s.baseName(conf)
	contents, err := os.ReadFile(base + contentsExt)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrorTypeNotFound, "no trained model stored for "+conf.Key()).
				WithDetail("model", conf.Key())
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read model").WithDetail("model", conf.Key())
	}
	meta, err := readMeta(base + metaExt)
	if err != nil {
		return nil, err
	}

	s.logger.Info("model loaded",
		zap.String("model", meta.Name),
		zap.String("version", meta.Version),
		zap.String("created", meta.Created))
	return &Stored{Contents: contents, Meta: meta}, nil
}

// UpdateMetrics replaces the current metrics of a stored version and adds
// them to its metrics history
func (s *Store) UpdateMetrics(conf config.ModelConfig, metrics model.Metrics) (*Metadata, error) {
	base := s.baseName(conf)
	meta, err := readMeta(base + metaExt)
	if err != nil {
		return nil, err
	}
	if meta.MetricsHistory == nil {
		meta.MetricsHistory = map[string]model.Metrics{}
	}
	meta.Metrics = metrics
	meta.MetricsHistory[s.now().Format(DateFormat)] = metrics

	if err := writeMeta(base, meta); err != nil {
		return nil, err
	}
	s.logger.Info("model metrics updated", zap.String("model", conf.Key()))
	return meta, nil
}

// List returns every stored model keyed by name. Backups are listed for
// information only; Load never returns them.
func (s *Store) List() (map[string]*Versions, error) {
	out := map[string]*Versions{}
	get := func(name string) *Versions {
		v, ok := out[name]
		if !ok {
			v = &Versions{ByVersion: map[string]*Metadata{}, Backups: []*Metadata{}}
			out[name] = v
		}
		return v
	}

	current, err := metaFiles(s.location)
	if err != nil {
		return nil, err
	}
	for _, path := range current {
		meta, err := readMeta(path)
		if err != nil {
			return nil, err
		}
		v := get(meta.Name)
		v.ByVersion[meta.Version] = meta
		if v.Latest == nil || newerVersion(meta.Version, v.Latest.Version) {
			v.Latest = meta
		}
	}

	backups, err := metaFiles(filepath.Join(s.location, backupDir))
	if err != nil {
		return nil, err
	}
	for _, path := range backups {
		meta, err := readMeta(path)
		if err != nil {
			return nil, err
		}
		v := get(meta.Name)
		v.Backups = append(v.Backups, meta)
	}
	for _, v := range out {
		sort.SliceStable(v.Backups, func(i, j int) bool { return v.Backups[i].Created < v.Backups[j].Created })
	}
	return out, nil
}

// backup copies the existing files of a version into previous/
func (s *Store) backup(base string) error {
	infix := s.now().Format(fileDateFormat)
	dir := filepath.Join(s.location, backupDir)

	for _, ext := range []string{contentsExt, metaExt} {
		src := base + ext
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to create backup directory").WithDetail("path", dir)
		}

		name := filepath.Base(src)
		fileExt := filepath.Ext(name)
		dst := filepath.Join(dir, strings.TrimSuffix(name, fileExt)+"_"+infix+fileExt)
		if err := copyFile(src, dst); err != nil {
			return err
		}
		s.logger.Debug("previous model file backed up", zap.String("file", name), zap.String("backup", dst))
	}
	return nil
}

func metaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to list model store").WithDetail("path", dir)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, metaExt) || strings.HasSuffix(name, contentsExt) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// newerVersion compares semantic versions, falling back to string order
func newerVersion(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a > b
	}
	return va.GreaterThan(vb)
}

func readMeta(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrorTypeNotFound, "model metadata not found").WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read model metadata").WithDetail("path", path)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid model metadata").WithDetail("path", path)
	}
	return &meta, nil
}

func writeMeta(base string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "model metadata is not JSON serializable").WithDetail("model", meta.Name)
	}
	return writeFile(base+metaExt, data)
}

// writeFile replaces path through a temporary file in the same directory
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write model store file").WithDetail("path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write model store file").WithDetail("path", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to back up model file").WithDetail("path", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to back up model file").WithDetail("path", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to back up model file").WithDetail("path", dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to back up model file").WithDetail("path", dst)
	}
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
