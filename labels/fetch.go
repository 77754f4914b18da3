package labels

// Bundle fetching for `diavgest labels fetch`.
// Uses hashicorp/go-getter for flexible source handling:
//   - Plain URLs to a labels file (https://example.org/decision_labels.json)
//   - Directories and archives carrying manifest.json plus the file
//   - Anything else go-getter detects (git, s3, gcs, local paths)

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/logger"
)

// ManifestFile is the optional bundle descriptor checked before install.
const ManifestFile = "manifest.json"

// labelFileCandidates are the file names searched inside a bundle
// directory, in preference order.
var labelFileCandidates = []string{
	"decision_labels.json",
	"decision_labels.yaml",
	"decision_labels.yml",
}

// Manifest describes a downloadable label bundle. All fields are
// optional; MinAppVersion gates installation when present.
type Manifest struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	MinAppVersion string `json:"min_app_version"`
}

// Fetch downloads a label bundle from src, validates it, and installs
// the labels file into destDir. It returns the installed file path.
//
// When the bundle carries a manifest.json with min_app_version, the
// running binary version must satisfy it. Unversioned builds skip the
// gate with a warning so development binaries can still fetch.
func Fetch(ctx context.Context, src, destDir, appVersion string, log *zap.SugaredLogger) (string, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}

	detected, err := getter.Detect(src, pwd, getter.Detectors)
	if err != nil {
		return "", errors.Wrapf(err, "failed to detect bundle source type for %s", src)
	}

	log.Debugw("go-getter detected bundle source",
		"input", src,
		"detected", detected,
	)

	tempDir, err := os.MkdirTemp("", "diavgest-labels-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tempDir)

	dst := filepath.Join(tempDir, "bundle")
	client := &getter.Client{
		Ctx:  ctx,
		Src:  detected,
		Dst:  dst,
		Mode: getter.ClientModeAny,
		// Default getters cover http, git, s3, gcs and local files.
		Getters: getter.Getters,
	}

	log.Infow("Fetching label bundle",
		"source", src,
		"destination", dst,
	)

	if err := client.Get(); err != nil {
		return "", errors.Wrapf(err, "failed to fetch label bundle from %s", src)
	}

	labelsPath, err := locateLabelsFile(dst, detected)
	if err != nil {
		return "", err
	}

	if manifest, ok, err := readManifest(dst); err != nil {
		return "", err
	} else if ok {
		if err := manifest.checkCompatibility(appVersion, log); err != nil {
			return "", err
		}
		log.Infow("Bundle manifest accepted",
			"bundle", manifest.Name,
			"bundle_version", manifest.Version,
		)
	}

	// Reject bundles whose labels file would be ignored at load time.
	data, err := os.ReadFile(labelsPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read fetched labels file")
	}
	overrides, err := parseOverrides(labelsPath, data)
	if err != nil {
		return "", errors.Wrapf(err, "fetched labels file %s is not a valid code-to-label map", filepath.Base(labelsPath))
	}

	installed, err := install(data, filepath.Base(labelsPath), destDir)
	if err != nil {
		return "", err
	}

	log.Infow("Installed label bundle",
		logger.FieldPath, installed,
		logger.FieldCount, len(overrides),
	)
	return installed, nil
}

// locateLabelsFile finds the labels file inside a fetched bundle.
// A directory bundle must contain one of the candidate names. A
// single-file download is the labels file itself, named after the
// source URL so the extension picks the right parser.
func locateLabelsFile(dst, detected string) (string, error) {
	info, err := os.Stat(dst)
	if err != nil {
		return "", errors.Wrap(err, "fetched bundle is missing")
	}

	if !info.IsDir() {
		name := sourceBaseName(detected)
		named := filepath.Join(filepath.Dir(dst), name)
		if named != dst {
			if err := os.Rename(dst, named); err != nil {
				return "", errors.Wrap(err, "failed to name fetched labels file")
			}
		}
		return named, nil
	}

	for _, candidate := range labelFileCandidates {
		path := filepath.Join(dst, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.Newf("no labels file in bundle, tried: %s", strings.Join(labelFileCandidates, ", "))
}

// sourceBaseName extracts a usable file name from the detected source
// URL. Sources without a recognized extension install as the default
// JSON name.
func sourceBaseName(detected string) string {
	name := DefaultFile
	if u, err := url.Parse(detected); err == nil && u.Path != "" {
		base := filepath.Base(u.Path)
		switch strings.ToLower(filepath.Ext(base)) {
		case ".json", ".yaml", ".yml":
			name = base
		}
	}
	return name
}

// readManifest parses manifest.json when the bundle directory carries
// one. Single-file bundles have no manifest.
func readManifest(dst string) (*Manifest, bool, error) {
	info, err := os.Stat(dst)
	if err != nil || !info.IsDir() {
		return nil, false, nil
	}

	data, err := os.ReadFile(filepath.Join(dst, ManifestFile))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read bundle manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, false, errors.Wrap(err, "failed to parse bundle manifest")
	}
	return &manifest, true, nil
}

// checkCompatibility validates the running binary against the bundle's
// min_app_version constraint.
func (m *Manifest) checkCompatibility(appVersion string, log *zap.SugaredLogger) error {
	if m.MinAppVersion == "" {
		// No version constraint specified
		return nil
	}

	appVer, err := semver.NewVersion(appVersion)
	if err != nil {
		log.Warnw("Binary version is not semantic, skipping bundle compatibility check",
			"app_version", appVersion,
			"min_app_version", m.MinAppVersion,
		)
		return nil
	}

	constraint, err := semver.NewConstraint(">= " + m.MinAppVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid min_app_version %q in bundle manifest", m.MinAppVersion)
	}

	if !constraint.Check(appVer) {
		return errors.Newf("bundle requires diavgest >= %s, but this binary is %s", m.MinAppVersion, appVersion)
	}
	return nil
}

// install writes the labels file into destDir under its bundle name.
func install(data []byte, name, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return "", errors.Wrap(err, "failed to create install directory")
	}
	path := filepath.Join(destDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, "failed to install labels file")
	}
	return path, nil
}
