package train

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/canopy-analytics/canopy-cli/internal/forest"
	"github.com/canopy-analytics/canopy-cli/internal/schema"
)

// Fingerprint hashes a frame's full contents. Identical cleaned tables hash
// identically, so the fingerprint keys the artifact cache.
func Fingerprint(df dataframe.DataFrame) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%dx%d\n", df.Nrow(), df.Ncol())
	if err := df.WriteCSV(h); err != nil {
		return "", eris.Wrap(err, "train: fingerprint table")
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:32], nil
}

// ParamsHash hashes the resolved hyperparameters, so changing any of them
// invalidates cached artifacts.
func ParamsHash(cfg forest.Config) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16])
}

// ArtifactPath is the artifact file for a research question.
func ArtifactPath(dir, questionID string) string {
	return filepath.Join(dir, questionID+".forest.gob")
}

// Save writes the model bundle, creating the artifact directory as needed.
func Save(m *Model, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "train: create artifact dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "train: create artifact %s", path)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(m); err != nil {
		return eris.Wrapf(err, "train: encode artifact %s", path)
	}
	zap.L().Info("train: saved artifact", zap.String("path", path), zap.String("question", m.QuestionID))
	return nil
}

// Load reads a model bundle back into a usable predictor.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "train: open artifact %s", path)
	}
	defer f.Close()

	var m Model
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, eris.Wrapf(err, "train: decode artifact %s", path)
	}
	return &m, nil
}

// LoadOrFit returns a cached model when one exists for the same question,
// training-data fingerprint, and hyperparameters; otherwise it fits and
// saves a fresh one. force skips the cache entirely. The second return is
// true when the cache satisfied the request.
func LoadOrFit(q schema.Question, trainDF dataframe.DataFrame, condition schema.Domain, cfg forest.Config, dir string, force bool) (*Model, bool, error) {
	path := ArtifactPath(dir, q.ID)
	log := zap.L().With(zap.String("question", q.ID), zap.String("artifact", path))

	if !force {
		if cached, err := Load(path); err == nil {
			ok, why := cacheValid(cached, q, trainDF, condition, cfg)
			if ok {
				log.Info("train: reusing cached artifact")
				return cached, true, nil
			}
			log.Info("train: cached artifact stale, refitting", zap.String("reason", why))
		}
	}

	m, err := Fit(q, trainDF, condition, cfg)
	if err != nil {
		return nil, false, err
	}
	if err := Save(m, path); err != nil {
		return nil, false, err
	}
	return m, false, nil
}

// cacheValid checks the three cache-key components against the current
// request. The fingerprint is computed on the restricted training frame so
// it matches what Fit hashed.
func cacheValid(cached *Model, q schema.Question, trainDF dataframe.DataFrame, condition schema.Domain, cfg forest.Config) (bool, string) {
	if cached.QuestionID != q.ID {
		return false, "question id"
	}

	restricted, err := Restrict(trainDF, q)
	if err != nil {
		return false, "restriction failed"
	}
	fingerprint, err := Fingerprint(restricted)
	if err != nil {
		return false, "fingerprint failed"
	}
	if cached.Fingerprint != fingerprint {
		return false, "training data changed"
	}

	cfg.Task = forestTask(q.Task)
	if cached.ParamsHash != ParamsHash(cfg) {
		return false, "hyperparameters changed"
	}
	return true, ""
}
