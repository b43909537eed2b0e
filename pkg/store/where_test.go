package store

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type grant struct {
	ID       uint `gorm:"primaryKey"`
	Resource string
	Action   string
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&grant{}))
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []grant{
		{Resource: "user", Action: "create"},
		{Resource: "user", Action: "delete"},
		{Resource: "user", Action: "read"},
		{Resource: "role", Action: "manage"},
		{Resource: "audit", Action: "read"},
	}
	require.NoError(t, db.Create(&rows).Error)
}

func TestWhere_Pagination(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)

	tests := []struct {
		name      string
		whr       *Options
		wantLen   int
		wantFirst string
	}{
		{name: "first page", whr: P(1, 2), wantLen: 2, wantFirst: "create"},
		{name: "page two", whr: NewWhere(WithPage(2, 2)), wantLen: 2, wantFirst: "read"},
		{name: "last page", whr: P(3, 2), wantLen: 1, wantFirst: "read"},
		{name: "page zero", whr: P(0, 1), wantLen: 1, wantFirst: "create"},
		{name: "no limit", whr: NewWhere(), wantLen: 5, wantFirst: "create"},
		{name: "unsized page", whr: P(4, 0), wantLen: 5, wantFirst: "create"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []grant
			require.NoError(t, tt.whr.Where(db.Order("id")).Find(&got).Error)
			require.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantFirst, got[0].Action)
		})
	}
}

func TestWithPage_CapsPageSize(t *testing.T) {
	whr := NewWhere(WithPage(0, 10_000))
	assert.Equal(t, 0, whr.Offset)
	assert.Equal(t, MaxPageSize, whr.Limit)
}

func TestWhere_Filtering(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)

	var got []grant
	require.NoError(t, NewWhere(WithFilter(map[any]any{"resource": "user"})).Where(db).Find(&got).Error)
	assert.Len(t, got, 3)

	got = nil
	require.NoError(t, F("resource", "user", "action", "read").Where(db).Find(&got).Error)
	assert.Len(t, got, 1)

	// An odd number of arguments is ignored.
	assert.Empty(t, F("resource").Filters)
}

func TestWhere_Count(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)

	whr := NewWhere(WithPage(1, 1), WithFilter(map[any]any{"resource": "user"}))

	var got []grant
	require.NoError(t, whr.Where(db.Model(&grant{})).Find(&got).Error)
	assert.Len(t, got, 1)

	var total int64
	require.NoError(t, whr.Count(db.Model(&grant{})).Count(&total).Error)
	assert.Equal(t, int64(3), total)
}
