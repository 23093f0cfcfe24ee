package database

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"quill/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		SQLitePath:   t.TempDir() + "/quill.sqlite3",
		DBSchemaMode: SchemaModeHybrid,
	}
}

func TestConnectWithOptions_SQLiteAppliesSchema(t *testing.T) {
	cfg := sqliteConfig(t)

	db, err := Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, Ping(context.Background(), db))

	for _, table := range []string{"users", "groups", "posts", "comments", "follows"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, db.Migrator().HasIndex("follows", "idx_follows_user_author"))
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "quill"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=quill sslmode=disable", PostgresDSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, PostgresDSN(cfg), "sslmode=require")
}

func TestDialector_RejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid dev postgres", config.Config{Env: "development", DBDriver: "postgres"}, true, true, false},
		{"hybrid prod postgres", config.Config{Env: "production", DBDriver: "postgres", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql mode", config.Config{Env: "development", DBDriver: "postgres", DBSchemaMode: "sql"}, true, false, false},
		{"auto refused in prod", config.Config{Env: "prod", DBDriver: "postgres", DBSchemaMode: "auto"}, false, false, true},
		{"sqlite always auto", config.Config{Env: "test", DBDriver: "sqlite", DBSchemaMode: "hybrid"}, false, true, false},
		{"sqlite sql mode refused", config.Config{Env: "test", DBDriver: "sqlite", DBSchemaMode: "sql"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"m/000002_second.down.sql": {Data: []byte("SELECT -2;")},
		"m/000001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"m/000001_first.down.sql":  {Data: []byte("SELECT -1;")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	ms, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "first", ms[0].Name)
	assert.Equal(t, "000002_second", ms[1].String())
	assert.Equal(t, "SELECT -2;", ms[1].DownScript)
}

func TestLoadMigrations_MissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000001_first.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(fsys, "m")
	assert.ErrorContains(t, err, "down migration")
}

func TestEmbeddedMigrationsLoaded(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	assert.Equal(t, 1, ms[0].Version)
	assert.Contains(t, ms[0].UpScript, "CREATE TABLE IF NOT EXISTS follows")
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	assert.ErrorContains(t, validateAppliedVersions([]int{1, 7}, registered), "000007")
}

func TestPendingMigrations(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	pending := pendingMigrations([]int{1, 3}, registered)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func TestMigrationStore_ApplyMigrationIsTransactional(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewMigrationStore(db)
	m := Migration{Version: 3, Name: "add_thing", UpScript: "CREATE TABLE thing (id int)"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE thing (id int)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "migration_logs"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.ApplyMigration(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationStore_ApplyMigrationRollsBackOnFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewMigrationStore(db)
	m := Migration{Version: 4, Name: "broken", UpScript: "CREATE TABLE nope"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE nope")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.ApplyMigration(context.Background(), m)
	assert.ErrorContains(t, err, "000004_broken")
	assert.NoError(t, mock.ExpectationsWereMet())
}
