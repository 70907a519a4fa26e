package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct {
		name       string
		in         string
		user, pass string
		want       string
	}{
		{
			name: "native dsn untouched",
			in:   "root:pw@tcp(127.0.0.1:3306)/app?parseTime=true",
			want: "root:pw@tcp(127.0.0.1:3306)/app?parseTime=true",
		},
		{
			name: "jdbc url",
			in:   "jdbc:mysql://db:3306/app?useSSL=false&serverTimezone=UTC&characterEncoding=utf8",
			user: "admin", pass: "s3cret",
			want: "admin:s3cret@tcp(db:3306)/app?charset=utf8&loc=UTC&parseTime=true&tls=false",
		},
		{
			name: "credentials from url",
			in:   "mysql://u:p@localhost:3306/users",
			want: "u:p@tcp(localhost:3306)/users?charset=utf8mb4&parseTime=true",
		},
		{
			name: "empty",
			in:   "  ",
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeMySQLDSN(tc.in, tc.user, tc.pass))
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "root:****@tcp(db:3306)/app", maskDSN("root:pw@tcp(db:3306)/app"))
	assert.Equal(t, "root@tcp(db:3306)/app", maskDSN("root@tcp(db:3306)/app"))
	assert.Equal(t, "file:x.db", maskDSN("file:x.db"))
}

func TestNewGormSQLite(t *testing.T) {
	db, err := NewGorm(Opts{
		Driver:   "sqlite",
		DSN:      "file:" + filepath.Join(t.TempDir(), "t.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestNewGormUnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
