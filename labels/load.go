package labels

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/opengov-gr/diavgest/logger"
)

// DefaultFile is the override filename used when configuration names
// no explicit path. Resolved relative to the working directory.
const DefaultFile = "decision_labels.json"

// Load returns the built-in catalog merged with the override file at
// path. Overrides win on conflicting codes. A missing file is normal
// and yields the built-ins; a malformed one is logged and skipped so
// a bad override never blanks the digest mix.
func Load(path string, log *zap.SugaredLogger) *Catalog {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if path == "" {
		path = DefaultFile
	}

	cat := Builtin()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnw("Cannot read label override file, using built-in catalog",
				logger.FieldPath, path,
				logger.FieldError, err,
			)
		}
		return cat
	}

	overrides, err := parseOverrides(path, data)
	if err != nil {
		log.Warnw("Ignoring malformed label override file",
			logger.FieldPath, path,
			logger.FieldError, err,
		)
		return cat
	}

	for code, label := range overrides {
		cat.labels[code] = label
	}
	cat.source = path

	log.Debugw("Merged label overrides",
		logger.FieldPath, path,
		logger.FieldCount, len(overrides),
	)
	return cat
}

// parseOverrides decodes a flat code-to-label map, choosing the
// decoder by file extension. Unknown extensions are treated as JSON.
func parseOverrides(path string, data []byte) (map[string]string, error) {
	var overrides map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &overrides); err != nil {
			return nil, err
		}
	}
	return overrides, nil
}
