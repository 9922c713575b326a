package fake

import (
	"context"

	"camrig/internal/provision"
)

var _ provision.ManifestLoader = (*ManifestLoader)(nil)

// ManifestLoader returns a fixed provision.Manifest.
type ManifestLoader struct {
	CallRecorder
	Manifest provision.Manifest
	LoadErr  func(ctx context.Context, path string) error
}

// NewManifestLoader creates a loader for a manifest declaring the given
// services under the given project name.
func NewManifestLoader(project string, services ...string) *ManifestLoader {
	return &ManifestLoader{
		Manifest: provision.Manifest{Project: project, Services: services},
	}
}

func (l *ManifestLoader) Load(ctx context.Context, path string) (provision.Manifest, error) {
	l.record("Load", path)
	if l.LoadErr != nil {
		if err := l.LoadErr(ctx, path); err != nil {
			return provision.Manifest{}, err
		}
	}
	m := l.Manifest
	m.Path = path
	return m, nil
}
