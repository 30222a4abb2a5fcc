package database

import (
	"context"
	"strings"
	"testing"

	"karmafeed/internal/config"
	"karmafeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.Len(t, all, 3)

	for i, m := range all {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpScript)
		assert.NotEmpty(t, m.DownScript)
	}
	assert.Equal(t, "000002_likes_and_karma", all[1].String())
	assert.Contains(t, all[1].UpScript, "uniq_post_like")
	assert.Contains(t, all[1].UpScript, "karmaevent_exactly_one_target")

	guard := all[2]
	assert.Equal(t, "000003_karma_ledger_delete_guard", guard.String())
	assert.Contains(t, guard.UpScript, "BEFORE DELETE ON karma_events")
	assert.Contains(t, guard.UpScript, "pg_trigger_depth() > 1")
	assert.Contains(t, guard.DownScript, "DROP TRIGGER IF EXISTS trg_karma_events_no_delete")

	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(99))
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantSQL bool
		wantAut bool
		wantErr bool
	}{
		{"hybrid dev postgres", config.Config{DBDriver: "postgres", Env: "development"}, true, true, false},
		{"hybrid prod postgres", config.Config{DBDriver: "postgres", Env: "production"}, true, false, false},
		{"sql only", config.Config{DBDriver: "postgres", DBSchemaMode: "sql"}, true, false, false},
		{"auto in prod refused", config.Config{DBDriver: "postgres", DBSchemaMode: "auto", Env: "prod"}, false, false, true},
		{"auto in prod allowed", config.Config{DBDriver: "postgres", DBSchemaMode: "auto", Env: "prod", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"sqlite always auto", config.Config{DBDriver: "sqlite", DBSchemaMode: "sql"}, false, true, false},
		{"unknown mode", config.Config{DBDriver: "postgres", DBSchemaMode: "yolo"}, false, false, true},
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
			assert.Equal(t, tt.wantAut, runAuto)
		})
	}
}

func TestApplySchema_SQLiteAutoMigrates(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBDriver: "sqlite", Env: "test"}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.PostLike{}, "uniq_post_like"))
	assert.True(t, db.Migrator().HasIndex(&models.CommentLike{}, "uniq_comment_like"))
	assert.False(t, db.Migrator().HasColumn(&models.Post{}, "like_count"))

	alice := &models.User{Username: "alice"}
	require.NoError(t, db.Create(alice).Error)
	target := uint(1)
	neither := &models.KarmaEvent{BeneficiaryID: alice.ID, ActorID: alice.ID, EventType: models.EventPostLike, Delta: 5, CauseLikeID: 1}
	assert.Error(t, db.Create(neither).Error, "an event must name a post or a comment")
	both := &models.KarmaEvent{BeneficiaryID: alice.ID, ActorID: alice.ID, EventType: models.EventPostLike, Delta: 5, CauseLikeID: 1, PostID: &target, CommentID: &target}
	assert.Error(t, db.Create(both).Error, "an event cannot name both a post and a comment")
	one := &models.KarmaEvent{BeneficiaryID: alice.ID, ActorID: alice.ID, EventType: models.EventPostLike, Delta: 5, CauseLikeID: 1, PostID: &target}
	assert.NoError(t, db.Create(one).Error)

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}

func TestMigrationStore_ApplyAndRevert(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	store := NewMigrationStore(db)

	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	require.NoError(t, db.AutoMigrate(&MigrationLog{}))

	m := Migration{
		Version:    7,
		Name:       "scratch",
		UpScript:   "CREATE TABLE scratch (id INTEGER PRIMARY KEY)",
		DownScript: "DROP TABLE scratch",
	}
	require.NoError(t, store.ApplyMigration(ctx, m))
	assert.True(t, db.Migrator().HasTable("scratch"))

	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, applied)

	require.NoError(t, store.RevertMigration(ctx, m))
	assert.False(t, db.Migrator().HasTable("scratch"))

	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 9, 4}, registered)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "000004, 000009"))
}

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: "sqlite", DBSQLitePath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(&config.Config{DBDriver: "postgres", DBHost: "h", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
