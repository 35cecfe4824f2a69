package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origami/repo-data/config"
	"github.com/origami/repo-data/db"
	"github.com/origami/repo-data/entity"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/util"
)

type adminEnv struct {
	dir        string
	configPath string
	dbConfig   config.DBConfig
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	t.Setenv(config.EnvVarConfigFilePath, "")
	dir := t.TempDir()
	env := &adminEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.json"),
		dbConfig: config.DBConfig{
			Dialect:      config.DBDialectSqlite3,
			Url:          filepath.Join(dir, "repo-data.db"),
			MaxIdleConns: 1,
			MaxOpenConns: 1,
		},
	}
	cfg := config.Config{
		DBConfig:    env.dbConfig,
		CacheConfig: config.CacheConfig{CacheType: "none"},
		LogConfig:   config.LogConfig{Level: "ERROR"},
	}
	content, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(env.configPath, content, 0o600))

	out, err := env.run("migrate")
	require.NoError(t, err)
	assert.Equal(t, "tables migrated\n", out)
	return env
}

func (e *adminEnv) run(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args,
		"--"+config.FlagConfigPath, e.configPath,
		"--"+config.FlagEnvFile, filepath.Join(e.dir, "missing.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func (e *adminEnv) dao(t *testing.T) db.RepoDataDao {
	t.Helper()
	gdb := config.InitDBWithConfig(&e.dbConfig, false)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db.NewRepoDataSvcDB(gdb)
}

func decodeIngestions(t *testing.T, out string) []*entity.Ingestion {
	t.Helper()
	var ingestions []*entity.Ingestion
	require.NoError(t, json.Unmarshal([]byte(out), &ingestions))
	return ingestions
}

func TestIngestAndListQueue(t *testing.T) {
	env := newAdminEnv(t)

	out, err := env.run("ingest", "github", "https://github.com/Financial-Times/o-test", "v1.0.0")
	require.NoError(t, err)
	var queued entity.Ingestion
	require.NoError(t, json.Unmarshal([]byte(out), &queued))
	assert.Equal(t, string(db.IngestionTypeVersion), queued.Type)
	require.NotNil(t, queued.Repo)
	assert.Equal(t, "v1.0.0", util.StringValue(queued.Repo.Tag))
	assert.False(t, queued.Progress.IsInProgress)

	out, err = env.run("ingest", "npm", "@financial-times/o-other", "2.0.0")
	require.NoError(t, err)
	var npm entity.Ingestion
	require.NoError(t, json.Unmarshal([]byte(out), &npm))
	require.NotNil(t, npm.Package)
	assert.Equal(t, "@financial-times/o-other", util.StringValue(npm.Package.Name))

	_, err = env.run("ingest", "github", "https://github.com/Financial-Times/o-test", "v1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	_, err = env.run("ingest", "github", "https://example.com/o-test", "v1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	out, err = env.run("queue", "list")
	require.NoError(t, err)
	ids := make([]string, 0, 2)
	for _, ingestion := range decodeIngestions(t, out) {
		ids = append(ids, ingestion.Id)
	}
	assert.ElementsMatch(t, []string{queued.Id, npm.Id}, ids)

	out, err = env.run("queue", "dead")
	require.NoError(t, err)
	assert.Empty(t, decodeIngestions(t, out))

	out, err = env.run("queue", "stuck")
	require.NoError(t, err)
	assert.Empty(t, decodeIngestions(t, out))
}

func TestRequeueRequiresInProgressIngestion(t *testing.T) {
	env := newAdminEnv(t)

	out, err := env.run("ingest", "github", "https://github.com/Financial-Times/o-test", "v1.0.0")
	require.NoError(t, err)
	var queued entity.Ingestion
	require.NoError(t, json.Unmarshal([]byte(out), &queued))

	_, err = env.run("queue", "requeue", queued.Id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = env.run("queue", "requeue")
	assert.Error(t, err)
}

func TestBundleIngestionRequiresVersion(t *testing.T) {
	env := newAdminEnv(t)

	_, err := env.run("ingest", "bundle", "https://github.com/Financial-Times/o-test", "v1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestVersionsShowFiltersBundles(t *testing.T) {
	env := newAdminEnv(t)
	dao := env.dao(t)

	version := &db.Version{
		Name:      "o-test",
		Url:       "https://github.com/Financial-Times/o-test",
		Tag:       "v1.0.0",
		Manifests: manifest.Bag{Origami: manifest.Document{"name": "o-test"}},
	}
	require.NoError(t, dao.CreateVersion(version))
	for _, b := range []*db.Bundle{
		{VersionId: version.Id, Type: db.BundleTypeJS, Url: "js"},
		{VersionId: version.Id, Type: db.BundleTypeCSS, Url: "css"},
		{VersionId: version.Id, Type: db.BundleTypeCSS, Brand: util.StringPtr("core"), Url: "css-core"},
	} {
		require.NoError(t, dao.UpsertBundle(b))
	}

	out, err := env.run("versions", "list")
	require.NoError(t, err)
	var repos []*entity.Version
	require.NoError(t, json.Unmarshal([]byte(out), &repos))
	require.Len(t, repos, 1)
	assert.Equal(t, version.RepoId, repos[0].Id)

	out, err = env.run("versions", "show", "o-test", "1.0.0", "--language", "scss", "--brand", "none")
	require.NoError(t, err)
	var shown struct {
		Version *entity.Version  `json:"version"`
		Bundles []*entity.Bundle `json:"bundles"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.NotNil(t, shown.Version)
	assert.Equal(t, "1.0.0", shown.Version.Version)
	require.Len(t, shown.Bundles, 1)
	assert.Equal(t, "css", shown.Bundles[0].Url)
	assert.Nil(t, shown.Bundles[0].Brand)
}

func TestMissingConfigPath(t *testing.T) {
	env := newAdminEnv(t)
	env.configPath = ""

	_, err := env.run("queue", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvVarConfigFilePath)
}
