package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourlabs/compoctl/internal/models"
)

// VersionFormat is the layout of the version part of an archive ID
const VersionFormat = "20060102-150405"

// Latest refers to the newest archive of any project
const Latest = "latest"

// Catalog versions archives per project on top of a Backend. IDs have the
// form <project>@<version>.
type Catalog struct {
	backend Backend
	now     func() time.Time
}

func NewCatalog(backend Backend) *Catalog {
	return &Catalog{backend: backend, now: time.Now}
}

// Summary describes the archives kept for one project
type Summary struct {
	Project  string
	Latest   models.ArchiveMetadata
	Versions int
}

// ParseRef splits name@version. The version is empty for a bare name.
func ParseRef(ref string) (name, version string) {
	name, version, _ = strings.Cut(ref, "@")
	return name, version
}

// Put stores data as a new version of project and returns the metadata it
// was stored with
func (c *Catalog) Put(ctx context.Context, project string, archive *Archive) (models.ArchiveMetadata, error) {
	project = cleanName(project)
	if project == "" {
		return models.ArchiveMetadata{}, fmt.Errorf("archive project name is required")
	}

	now := c.now().UTC()
	version := now.Format(VersionFormat)
	id := project + "@" + version
	for n := 1; ; n++ {
		exists, err := c.backend.Exists(ctx, id)
		if err != nil {
			return models.ArchiveMetadata{}, err
		}
		if !exists {
			break
		}
		version = fmt.Sprintf("%s-%d", now.Format(VersionFormat), n)
		id = project + "@" + version
	}

	metadata := archive.Metadata
	metadata.ID = id
	metadata.Project = project
	metadata.Version = version
	metadata.CreatedAt = now

	stored := &Archive{ID: id, Metadata: metadata, Data: archive.Data}
	if err := c.backend.Store(ctx, stored); err != nil {
		return models.ArchiveMetadata{}, fmt.Errorf("failed to store archive %s: %w", id, err)
	}
	return metadata, nil
}

// Resolve turns latest, a project name or name@version into the metadata
// of a single stored archive
func (c *Catalog) Resolve(ctx context.Context, ref string) (models.ArchiveMetadata, error) {
	all, err := c.backend.List(ctx)
	if err != nil {
		return models.ArchiveMetadata{}, err
	}

	name, version := ParseRef(cleanName(ref))
	var candidates []models.ArchiveMetadata
	for _, m := range all {
		switch {
		case ref == Latest:
		case m.Project != name:
			continue
		case version != "" && m.Version != version:
			continue
		}
		candidates = append(candidates, m)
	}

	if len(candidates) == 0 {
		return models.ArchiveMetadata{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	sortNewestFirst(candidates)
	return candidates[0], nil
}

// Get retrieves the archive ref resolves to. The caller closes it.
func (c *Catalog) Get(ctx context.Context, ref string) (*Archive, error) {
	metadata, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.backend.Retrieve(ctx, metadata.ID)
}

// Versions lists the archives of project, newest first
func (c *Catalog) Versions(ctx context.Context, project string) ([]models.ArchiveMetadata, error) {
	all, err := c.backend.List(ctx)
	if err != nil {
		return nil, err
	}

	project = cleanName(project)
	var versions []models.ArchiveMetadata
	for _, m := range all {
		if m.Project == project {
			versions = append(versions, m)
		}
	}
	sortNewestFirst(versions)
	return versions, nil
}

// List summarises stored archives by project, sorted by project name
func (c *Catalog) List(ctx context.Context) ([]Summary, error) {
	all, err := c.backend.List(ctx)
	if err != nil {
		return nil, err
	}

	groups := map[string][]models.ArchiveMetadata{}
	for _, m := range all {
		if m.Project == "" {
			continue
		}
		groups[m.Project] = append(groups[m.Project], m)
	}

	summaries := make([]Summary, 0, len(groups))
	for project, versions := range groups {
		sortNewestFirst(versions)
		summaries = append(summaries, Summary{
			Project:  project,
			Latest:   versions[0],
			Versions: len(versions),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Project < summaries[j].Project
	})
	return summaries, nil
}

// Targets lists the IDs Delete would remove for ref
func (c *Catalog) Targets(ctx context.Context, ref string) ([]string, error) {
	name, version := ParseRef(cleanName(ref))
	if version != "" {
		exists, err := c.backend.Exists(ctx, name+"@"+version)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return []string{name + "@" + version}, nil
	}

	versions, err := c.Versions(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: no archives for %s", ErrNotFound, name)
	}
	ids := make([]string, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// Delete removes one version (name@version) or every version of a project
func (c *Catalog) Delete(ctx context.Context, ref string) ([]string, error) {
	ids, err := c.Targets(ctx, ref)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		if err := c.backend.Delete(ctx, id); err != nil {
			return ids[:i], fmt.Errorf("failed to delete %s: %w", id, err)
		}
	}
	return ids, nil
}

func sortNewestFirst(archives []models.ArchiveMetadata) {
	sort.SliceStable(archives, func(i, j int) bool {
		if !archives[i].CreatedAt.Equal(archives[j].CreatedAt) {
			return archives[i].CreatedAt.After(archives[j].CreatedAt)
		}
		return archives[i].Version > archives[j].Version
	})
}

// cleanName keeps archive IDs usable as object keys and file names
func cleanName(name string) string {
	name = strings.TrimSuffix(name, dataSuffix)
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return strings.TrimSpace(name)
}
