package modelstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newStore(t *testing.T) (*Store, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s, err := New(filepath.Join(t.TempDir(), "models"), WithClock(c.now))
	require.NoError(t, err)
	return s, c
}

var iris = config.ModelConfig{Name: "iris", Version: "1.0.0", Module: "iris"}

func TestDumpAndLoad(t *testing.T) {
	s, _ := newStore(t)

	meta, err := s.Dump(iris, "iris_api", model.Contents(`{"weights":[1,2]}`), model.Metrics{"accuracy": 0.9}, map[string]interface{}{"algorithm": "tree"})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 12:00:00", meta.Created)

	stored, err := s.Load(iris)
	require.NoError(t, err)
	assert.JSONEq(t, `{"weights":[1,2]}`, string(stored.Contents))
	assert.Equal(t, "iris", stored.Meta.Name)
	assert.Equal(t, "1.0.0", stored.Meta.Version)
	assert.Equal(t, "iris_api", stored.Meta.APIName)
	assert.Equal(t, 0.9, stored.Meta.Metrics["accuracy"])
	assert.Equal(t, "tree", stored.Meta.TrainReport["algorithm"])
	assert.Len(t, stored.Meta.MetricsHistory, 1)
	assert.Equal(t, "iris", stored.Meta.ConfigSnapshot.Module)
}

func TestLoadMissing(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Load(iris)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestDumpBacksUpPreviousVersion(t *testing.T) {
	s, c := newStore(t)

	_, err := s.Dump(iris, "", model.Contents(`1`), nil, nil)
	require.NoError(t, err)
	c.t = c.t.Add(time.Hour)
	_, err = s.Dump(iris, "", model.Contents(`2`), nil, nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.Location(), "previous"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"iris_1.0.0_2024-05-01_13-00-00.json",
		"iris_1.0.0.model_2024-05-01_13-00-00.json",
	}, names)

	stored, err := s.Load(iris)
	require.NoError(t, err)
	assert.Equal(t, "2", string(stored.Contents))
}

func TestUpdateMetrics(t *testing.T) {
	s, c := newStore(t)
	_, err := s.Dump(iris, "", model.Contents(`1`), model.Metrics{"accuracy": 0.9}, nil)
	require.NoError(t, err)

	c.t = c.t.Add(24 * time.Hour)
	meta, err := s.UpdateMetrics(iris, model.Metrics{"accuracy": 0.8})
	require.NoError(t, err)
	assert.Equal(t, 0.8, meta.Metrics["accuracy"])
	assert.Len(t, meta.MetricsHistory, 2)
	assert.Contains(t, meta.MetricsHistory, "2024-05-02 12:00:00")

	_, err = s.UpdateMetrics(config.ModelConfig{Name: "iris", Version: "9.9.9"}, model.Metrics{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestList(t *testing.T) {
	s, c := newStore(t)
	for _, v := range []string{"1.9.0", "1.10.0", "1.2.0"} {
		_, err := s.Dump(config.ModelConfig{Name: "iris", Version: v}, "", model.Contents(`1`), nil, nil)
		require.NoError(t, err)
	}
	c.t = c.t.Add(time.Minute)
	_, err := s.Dump(config.ModelConfig{Name: "iris", Version: "1.2.0"}, "", model.Contents(`2`), nil, nil)
	require.NoError(t, err)
	_, err = s.Dump(config.ModelConfig{Name: "churn", Version: "0.1.0"}, "", model.Contents(`1`), nil, nil)
	require.NoError(t, err)

	models, err := s.List()
	require.NoError(t, err)
	require.Len(t, models, 2)

	assert.Len(t, models["iris"].ByVersion, 3)
	assert.Equal(t, "1.10.0", models["iris"].Latest.Version)
	require.Len(t, models["iris"].Backups, 1)
	assert.Equal(t, "1.2.0", models["iris"].Backups[0].Version)
	assert.Empty(t, models["churn"].Backups)
}

func TestNewerVersion(t *testing.T) {
	assert.True(t, newerVersion("1.10.0", "1.9.0"))
	assert.False(t, newerVersion("0.0.1", "0.0.2"))
	assert.True(t, newerVersion("beta", "alpha"))
}
