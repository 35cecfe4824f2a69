package syncer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/origami/repo-data/config"
	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/external"
)

var githubPathRegexp = regexp.MustCompile(`^/repos/([^/]+)/([^/]+)/(git/ref/tags/(.+)|contents/(.+)|readme)$`)

// fakeGithub serves repository files keyed by "owner/repo@tag".
type fakeGithub struct {
	tags map[string]map[string]string
}

func (f *fakeGithub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := githubPathRegexp.FindStringSubmatch(r.URL.Path)
	if m == nil {
		http.NotFound(w, r)
		return
	}
	repo := m[1] + "/" + m[2]
	if m[4] != "" {
		if _, ok := f.tags[repo+"@"+m[4]]; ok {
			_, _ = w.Write([]byte(`{"ref": "refs/tags/` + m[4] + `"}`))
			return
		}
		http.NotFound(w, r)
		return
	}
	files, ok := f.tags[repo+"@"+r.URL.Query().Get("ref")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	path := m[5]
	if m[3] == "readme" {
		path = "README.md"
	}
	content, ok := files[path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(content))
}

type fakeDownloader struct {
	files    map[string]map[string]string // "name@version" to files
	err      error
	download func(ctx context.Context) error
}

func (f *fakeDownloader) DownloadAndUnpack(ctx context.Context, destination, name, version, _ string) error {
	if f.download != nil {
		if err := f.download(ctx); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	files, ok := f.files[name+"@"+version]
	if !ok {
		return nil
	}
	for path, content := range files {
		target := filepath.Join(destination, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeProber struct {
	mu    sync.Mutex
	urls  []string
	probe func(bundleURL, bundleType string) (*external.BundleSizes, error)
}

func (f *fakeProber) ProbeSizes(_ context.Context, bundleURL string, bundleType string) (*external.BundleSizes, error) {
	f.mu.Lock()
	f.urls = append(f.urls, bundleURL)
	f.mu.Unlock()
	if f.probe != nil {
		return f.probe(bundleURL, bundleType)
	}
	return &external.BundleSizes{Raw: int64(len(bundleURL)) * 10, Gzip: int64(len(bundleURL))}, nil
}

type fakeAnnouncer struct {
	mu        sync.Mutex
	announced []string
}

func (f *fakeAnnouncer) Announce(_ context.Context, version *db.Version) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, version.Name+"@"+version.Version)
	return nil
}

func newTestDao(t *testing.T) db.RepoDataDao {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo-data.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.AutoMigrateDB(gdb)
	return db.NewRepoDataSvcDB(gdb)
}

type testEnv struct {
	dao        db.RepoDataDao
	syncer     *Syncer
	github     *fakeGithub
	downloader *fakeDownloader
	prober     *fakeProber
	announcer  *fakeAnnouncer
	config     *config.SyncerConfig
}

func newTestEnv(t *testing.T, cfg *config.SyncerConfig) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &config.SyncerConfig{}
	}
	cfg.TempDir = t.TempDir()
	env := &testEnv{
		dao:        newTestDao(t),
		github:     &fakeGithub{tags: map[string]map[string]string{}},
		downloader: &fakeDownloader{files: map[string]map[string]string{}},
		prober:     &fakeProber{},
		announcer:  &fakeAnnouncer{},
		config:     cfg,
	}
	server := httptest.NewServer(env.github)
	t.Cleanup(server.Close)
	source := external.NewGithubClient(server.URL,
		external.WithGithubHTTPClient(server.Client()),
		external.WithGithubRetries(1, time.Millisecond),
	)
	// the clock runs an hour ahead so fresh ingestions are past their backoff
	env.syncer = NewSyncer(env.dao, cfg, nil,
		WithSourceClient(source),
		WithPackageDownloader(env.downloader),
		WithSizeProber(env.prober),
		WithAnnouncer(env.announcer),
		WithClock(func() time.Time { return time.Now().Add(time.Hour) }),
	)
	return env
}

func (e *testEnv) addTag(repo, tag string, files map[string]string) {
	e.github.tags[strings.TrimPrefix(repo, "https://github.com/")+"@"+tag] = files
}
