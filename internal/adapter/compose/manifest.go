package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"camrig/internal/provision"

	"github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"
)

var _ provision.ManifestLoader = (*ManifestLoader)(nil)

// ManifestLoader parses a compose manifest just far enough to report the
// project name and declared service names. Anything deeper is the plugin's
// business.
type ManifestLoader struct{}

func NewManifestLoader() *ManifestLoader {
	return &ManifestLoader{}
}

func (ManifestLoader) Load(ctx context.Context, path string) (provision.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return provision.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	name := ProjectName(path)
	details := composetypes.ConfigDetails{
		WorkingDir: filepath.Dir(path),
		ConfigFiles: []composetypes.ConfigFile{
			{Filename: path, Content: data},
		},
	}
	project, err := loader.LoadWithContext(ctx, details, func(o *loader.Options) {
		o.SetProjectName(name, true)
		o.SkipConsistencyCheck = true
	})
	if err != nil {
		return provision.Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if len(project.Services) == 0 {
		return provision.Manifest{}, fmt.Errorf("manifest declares no services")
	}

	services := project.ServiceNames()
	sort.Strings(services)

	return provision.Manifest{
		Path:     path,
		Project:  project.Name,
		Services: services,
	}, nil
}

// ProjectName derives the compose project name from the manifest location,
// the way the plugin does when no explicit name is set: the containing
// directory name, lowercased, restricted to [a-z0-9_-], with leading
// separators trimmed.
func ProjectName(manifestPath string) string {
	base := strings.ToLower(filepath.Base(filepath.Dir(manifestPath)))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "_-")
}
