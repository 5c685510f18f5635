package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gpx_viewer/internal/geometry"
	"gpx_viewer/internal/gpx"
	"gpx_viewer/internal/models"
)

const (
	// TimestampLayout is fixed width so string order matches time order.
	TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

	createdBy = "GPX Route Editor"

	maxCreateAttempts = 5
)

// RouteRepository maps a directory of GPX files and a sidecar metadata
// document onto Route views. The directory decides which routes exist;
// metadata supplies identity, favorites and version linkage.
//
// Mutations are serialized by a mutex. Reads take no lock and always go to disk.
type RouteRepository struct {
	dir  string
	meta *MetadataStore
	now  func() time.Time
	log  logrus.FieldLogger

	mu sync.Mutex
}

// Option configures a RouteRepository.
type Option func(*RouteRepository)

// WithClock overrides the time source used for timestamps and version names.
func WithClock(now func() time.Time) Option {
	return func(r *RouteRepository) { r.now = now }
}

// WithLogger replaces the standard logrus logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *RouteRepository) { r.log = log }
}

// NewRoute holds validated arguments for Create.
type NewRoute struct {
	Name        string
	Waypoints   []models.Waypoint
	RouteType   string
	Description string
}

// FavoriteState is the result of ToggleFavorite.
type FavoriteState struct {
	Filename   string `json:"filename"`
	IsFavorite bool   `json:"isFavorite"`
}

// NewRouteRepository creates gpxDir if needed and returns a repository
// backed by it and the metadata document at metadataPath.
func NewRouteRepository(gpxDir, metadataPath string, opts ...Option) (*RouteRepository, error) {
	if err := os.MkdirAll(gpxDir, 0o755); err != nil {
		return nil, fmt.Errorf("create gpx directory: %w", err)
	}

	r := &RouteRepository{
		dir: gpxDir,
		now: time.Now,
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.meta = NewMetadataStore(metadataPath, r.log)
	return r, nil
}

// Dir returns the GPX directory.
func (r *RouteRepository) Dir() string {
	return r.dir
}

// Metadata exposes the sidecar store.
func (r *RouteRepository) Metadata() *MetadataStore {
	return r.meta
}

func (r *RouteRepository) timestamp() string {
	return r.now().UTC().Format(TimestampLayout)
}

func (r *RouteRepository) path(filename string) string {
	return filepath.Join(r.dir, filename)
}

// gpxFiles lists the visible *.gpx files in the directory, sorted.
func (r *RouteRepository) gpxFiles() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read gpx directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !validFilename(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func isVersion(filename string, meta models.Metadata) bool {
	if rec, ok := meta[filename]; ok && rec.IsVersion {
		return true
	}
	return isVersionName(filename)
}

// lookup validates filename and checks that the file exists.
func (r *RouteRepository) lookup(filename string) (string, error) {
	if !validFilename(filename) {
		return "", ErrNotFound
	}
	p := r.path(filename)
	ok, err := fileExists(p)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", filename, err)
	}
	if !ok {
		return "", ErrNotFound
	}
	return p, nil
}

// FolderExists reports whether the GPX directory is present.
func (r *RouteRepository) FolderExists() bool {
	info, err := os.Stat(r.dir)
	return err == nil && info.IsDir()
}

// Count returns the number of live routes on disk without decoding them.
func (r *RouteRepository) Count() (int, error) {
	names, err := r.gpxFiles()
	if err != nil {
		return 0, err
	}
	meta := r.meta.ReadAll()

	count := 0
	for _, name := range names {
		if !isVersion(name, meta) {
			count++
		}
	}
	return count, nil
}

// FilePath returns the on-disk path of an existing GPX file.
func (r *RouteRepository) FilePath(filename string) (string, error) {
	return r.lookup(filename)
}

// assemble merges decoded geometry and metadata into a Route view.
func assemble(filename string, geo *gpx.Geometry, rec models.MetadataRecord) models.Route {
	route := models.Route{
		Filename:     filename,
		Name:         rec.Name,
		Description:  rec.Description,
		RouteType:    rec.RouteType,
		IsFavorite:   rec.IsFavorite,
		CreatedAt:    rec.CreatedAt,
		ModifiedAt:   rec.ModifiedAt,
		Tracks:       geo.Tracks,
		Waypoints:    geo.Waypoints,
		Stats:        geometry.RouteStats(geo.Waypoints),
		IsVersion:    rec.IsVersion,
		OriginalFile: rec.OriginalFile,
	}
	if route.Name == "" {
		route.Name = stem(filename)
	}
	if route.RouteType == "" {
		route.RouteType = models.DefaultRouteType
	}
	return route
}

// List returns every live route, optionally keeping only routes whose box
// overlaps bounds. Files that fail to decode are logged and skipped.
// Favorites come first, then modifiedAt ascending, then name.
func (r *RouteRepository) List(bounds *models.Bounds) ([]models.Route, error) {
	names, err := r.gpxFiles()
	if err != nil {
		return nil, err
	}
	meta := r.meta.ReadAll()

	versionCounts := make(map[string]int)
	for _, name := range names {
		if s, ok := versionOf(name); ok {
			versionCounts[s]++
		} else if rec := meta[name]; rec.IsVersion && rec.OriginalFile != "" {
			versionCounts[stem(rec.OriginalFile)]++
		}
	}

	routes := make([]models.Route, 0, len(names))
	for _, name := range names {
		if isVersion(name, meta) {
			continue
		}

		geo, err := gpx.DecodeFile(r.path(name))
		if err != nil {
			r.log.WithError(err).WithField("filename", name).Warn("List: skipping unreadable GPX file")
			continue
		}

		route := assemble(name, geo, meta[name])
		if bounds != nil && !geometry.BoundsOverlap(route.Stats.Bounds, bounds, geometry.DefaultMinOverlap) {
			continue
		}
		route.VersionCount = versionCounts[stem(name)]
		routes = append(routes, route)
	}

	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.IsFavorite != b.IsFavorite {
			return a.IsFavorite
		}
		if a.ModifiedAt != b.ModifiedAt {
			return a.ModifiedAt < b.ModifiedAt
		}
		return a.Name < b.Name
	})

	return routes, nil
}

// Get returns the full view of one route including its version history.
// It returns ErrNotFound for a missing file and ErrUnreadable when the
// file cannot be decoded.
func (r *RouteRepository) Get(filename string) (*models.Route, error) {
	p, err := r.lookup(filename)
	if err != nil {
		return nil, err
	}
	return r.read(filename, p)
}

func (r *RouteRepository) read(filename, p string) (*models.Route, error) {
	geo, err := gpx.DecodeFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, filename, err)
	}

	meta := r.meta.ReadAll()
	route := assemble(filename, geo, meta[filename])

	if !isVersion(filename, meta) {
		versions, err := r.versions(filename, meta)
		if err != nil {
			return nil, err
		}
		route.Versions = versions
		route.VersionCount = len(versions)
	}
	return &route, nil
}

// Create writes a new GPX file and its metadata record, then returns the
// route as decoded from disk.
func (r *RouteRepository) Create(in NewRoute) (*models.Route, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "route name cannot be empty")
	}
	if len(in.Waypoints) < 2 {
		return nil, invalid("waypoints", "route must have at least 2 waypoints")
	}
	routeType := strings.TrimSpace(in.RouteType)
	if routeType == "" {
		routeType = models.DefaultRouteType
	}

	content, err := gpx.Encode(in.Waypoints, name, in.Description)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var filename string
	for attempt := 0; ; attempt++ {
		filename = newRouteFilename(name)
		err = createExclusive(r.path(filename), content)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) || attempt+1 >= maxCreateAttempts {
			return nil, fmt.Errorf("write %s: %w", filename, err)
		}
	}

	now := r.timestamp()
	meta := r.meta.ReadAll()
	meta[filename] = models.MetadataRecord{
		Name:        name,
		Description: in.Description,
		RouteType:   routeType,
		IsFavorite:  false,
		CreatedAt:   now,
		ModifiedAt:  now,
		CreatedBy:   createdBy,
	}
	if err := r.meta.WriteAll(meta); err != nil {
		if rmErr := os.Remove(r.path(filename)); rmErr != nil {
			r.log.WithError(rmErr).WithField("filename", filename).Error("Create: failed to remove orphaned GPX file")
		}
		return nil, err
	}

	r.log.WithFields(logrus.Fields{"filename": filename, "name": name}).Info("Created route")
	return r.read(filename, r.path(filename))
}

// Update rewrites the GPX file from waypoints and patches the supplied
// metadata fields. modifiedAt always moves. Update never snapshots; callers
// wanting history call SnapshotVersion first.
func (r *RouteRepository) Update(filename string, waypoints []models.Waypoint, name, description *string) (*models.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.lookup(filename)
	if err != nil {
		return nil, err
	}
	meta := r.meta.ReadAll()
	if isVersion(filename, meta) {
		return nil, ErrVersionImmutable
	}
	if len(waypoints) < 2 {
		return nil, invalid("waypoints", "route must have at least 2 waypoints")
	}

	rec := meta[filename]
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, invalid("name", "route name cannot be empty")
		}
		rec.Name = trimmed
	}
	if description != nil {
		rec.Description = *description
	}
	rec.ModifiedAt = r.timestamp()

	routeName := rec.Name
	if routeName == "" {
		routeName = stem(filename)
	}
	content, err := gpx.Encode(waypoints, routeName, rec.Description)
	if err != nil {
		return nil, err
	}
	if err := replaceFile(p, content); err != nil {
		return nil, fmt.Errorf("write %s: %w", filename, err)
	}

	meta[filename] = rec
	if err := r.meta.WriteAll(meta); err != nil {
		return nil, err
	}

	r.log.WithField("filename", filename).Info("Updated route")
	return r.read(filename, p)
}

// Delete removes the GPX file and its metadata. Deleting a live route also
// removes all of its version snapshots. Metadata entries whose files are
// gone are pruned on the way.
func (r *RouteRepository) Delete(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.lookup(filename)
	if err != nil {
		return err
	}
	meta := r.meta.ReadAll()
	live := !isVersion(filename, meta)

	if err := os.Remove(p); err != nil {
		return fmt.Errorf("remove %s: %w", filename, err)
	}
	delete(meta, filename)

	if live {
		victims := make(map[string]struct{})
		names, err := r.gpxFiles()
		if err != nil {
			return err
		}
		for _, name := range names {
			if s, ok := versionOf(name); ok && s == stem(filename) {
				victims[name] = struct{}{}
			}
		}
		for name, rec := range meta {
			if rec.OriginalFile == filename {
				victims[name] = struct{}{}
			}
		}

		for name := range victims {
			if err := os.Remove(r.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove version %s: %w", name, err)
			}
			delete(meta, name)
		}
	}

	for name := range meta {
		if !validFilename(name) {
			continue
		}
		if ok, err := fileExists(r.path(name)); err == nil && !ok {
			delete(meta, name)
		}
	}

	if err := r.meta.WriteAll(meta); err != nil {
		return err
	}

	r.log.WithField("filename", filename).Info("Deleted route")
	return nil
}

// ToggleFavorite flips the favorite flag and bumps modifiedAt.
func (r *RouteRepository) ToggleFavorite(filename string) (*FavoriteState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lookup(filename); err != nil {
		return nil, err
	}
	meta := r.meta.ReadAll()
	if isVersion(filename, meta) {
		return nil, ErrVersionImmutable
	}

	rec, ok := meta[filename]
	if !ok {
		rec = models.MetadataRecord{Name: stem(filename)}
	}
	rec.IsFavorite = !rec.IsFavorite
	rec.ModifiedAt = r.timestamp()
	meta[filename] = rec

	if err := r.meta.WriteAll(meta); err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{"filename": filename, "is_favorite": rec.IsFavorite}).Info("Toggled favorite")
	return &FavoriteState{Filename: filename, IsFavorite: rec.IsFavorite}, nil
}

// SnapshotVersion stores current as a new immutable version of filename and
// returns the version filename. An existing snapshot is never overwritten:
// same-second collisions get a numeric suffix.
func (r *RouteRepository) SnapshotVersion(filename string, current *models.Route) (string, error) {
	if current == nil {
		return "", invalid("route", "nothing to snapshot")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lookup(filename); err != nil {
		return "", err
	}
	meta := r.meta.ReadAll()
	if isVersion(filename, meta) {
		return "", ErrVersionImmutable
	}

	now := r.now()
	ts := now.Format(versionTimeLayout)
	versionName := fmt.Sprintf("%s (Version %s)", current.Name, ts)

	content, err := gpx.Encode(snapshotPoints(current), versionName, current.Description)
	if err != nil {
		return "", err
	}

	base := fmt.Sprintf("%s_v_%s", stem(filename), ts)
	var versionFile string
	for n := 1; ; n++ {
		versionFile = base + gpxExt
		if n > 1 {
			versionFile = fmt.Sprintf("%s_%d%s", base, n, gpxExt)
		}
		err = createExclusive(r.path(versionFile), content)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("write %s: %w", versionFile, err)
		}
	}

	routeType := current.RouteType
	if routeType == "" {
		routeType = models.DefaultRouteType
	}
	meta[versionFile] = models.MetadataRecord{
		Name:         versionName,
		Description:  "Backup version created on " + ts,
		RouteType:    routeType,
		IsFavorite:   false,
		IsVersion:    true,
		OriginalFile: filename,
		CreatedAt:    now.UTC().Format(TimestampLayout),
	}
	if err := r.meta.WriteAll(meta); err != nil {
		if rmErr := os.Remove(r.path(versionFile)); rmErr != nil {
			r.log.WithError(rmErr).WithField("filename", versionFile).Error("SnapshotVersion: failed to remove orphaned version file")
		}
		return "", err
	}

	r.log.WithFields(logrus.Fields{"filename": filename, "version": versionFile}).Info("Created version backup")
	return versionFile, nil
}

// snapshotPoints prefers the full track geometry over the explicit
// waypoints, which only hold the endpoints of longer routes.
func snapshotPoints(route *models.Route) []models.Waypoint {
	if len(route.Tracks) != 1 || len(route.Tracks[0]) < 2 {
		return route.Waypoints
	}

	line := route.Tracks[0]
	points := make([]models.Waypoint, len(line))
	for i, p := range line {
		points[i] = models.Waypoint{Lat: p.Lat(), Lon: p.Lon()}
	}
	if n := len(route.Waypoints); n > 0 {
		points[0].Label = route.Waypoints[0].Label
		points[len(points)-1].Label = route.Waypoints[n-1].Label
	}
	return points
}

// ListVersions returns the snapshots of filename, newest first.
func (r *RouteRepository) ListVersions(filename string) ([]models.VersionSnapshot, error) {
	if !validFilename(filename) {
		return []models.VersionSnapshot{}, nil
	}
	return r.versions(filename, r.meta.ReadAll())
}

func (r *RouteRepository) versions(filename string, meta models.Metadata) ([]models.VersionSnapshot, error) {
	names, err := r.gpxFiles()
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	for _, name := range names {
		if s, ok := versionOf(name); ok && s == stem(filename) {
			found[name] = struct{}{}
		} else if rec, ok := meta[name]; ok && rec.IsVersion && rec.OriginalFile == filename {
			found[name] = struct{}{}
		}
	}

	versions := make([]models.VersionSnapshot, 0, len(found))
	for name := range found {
		rec := meta[name]
		snap := models.VersionSnapshot{
			Filename:     name,
			Name:         rec.Name,
			Description:  rec.Description,
			CreatedAt:    rec.CreatedAt,
			OriginalFile: filename,
		}
		if snap.Name == "" {
			snap.Name = name
		}
		versions = append(versions, snap)
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Filename > versions[j].Filename
	})
	return versions, nil
}
