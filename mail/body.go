package mail

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/opengov-gr/diavgest/errors"
	"github.com/opengov-gr/diavgest/report"
)

const (
	// TemplateFile is the optional newsletter wrapper, relative to the
	// working directory.
	TemplateFile = "templates/newsletter_template.html"

	// DigestPlaceholder marks where the rendered digest lands inside
	// the template. Replacement is literal, not a template engine.
	DigestPlaceholder = "{{DIGEST_HTML}}"
)

// ComposeBody loads the rendered digest from the artifact directory
// and, when a newsletter template exists at templatePath, substitutes
// it for the placeholder. A missing template is not an error; the
// digest then ships as the whole body.
func ComposeBody(artifactDir, templatePath string) (string, error) {
	digestPath := filepath.Join(artifactDir, report.HTMLFile)
	digestHTML, err := os.ReadFile(digestPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read digest from %s, run the digest command first", digestPath)
	}

	tpl, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return string(digestHTML), nil
		}
		return "", errors.Wrapf(err, "failed to read template %s", templatePath)
	}

	return strings.ReplaceAll(string(tpl), DigestPlaceholder, string(digestHTML)), nil
}
