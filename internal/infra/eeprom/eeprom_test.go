package eeprom

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ReadWrite(t *testing.T) {
	m := NewMemory(8)

	n, err := m.WriteAt([]byte{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf := make([]byte, 4)
	_, err = m.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, buf)
}

func TestMemory_OutOfRange(t *testing.T) {
	m := NewMemory(8)

	_, err := m.WriteAt([]byte{1, 2}, 7)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = m.ReadAt(make([]byte, 1), -1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = m.ReadAt(make([]byte, 1), 8)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestFile_CreatesZeroFilledImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switches.eeprom")

	f, err := OpenFile(path, 16)
	require.NoError(t, err)
	defer f.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(16), info.Size())

	buf := make([]byte, 16)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), buf)
}

func TestFile_WritesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switches.eeprom")

	f, err := OpenFile(path, 16)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{2, 50, 255}, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := OpenFile(path, 16)
	require.NoError(t, err)
	defer reopened.Close()

	buf := make([]byte, 3)
	_, err = reopened.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 50, 255}, buf)
}

func TestFile_ExtendsShortImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switches.eeprom")
	require.NoError(t, os.WriteFile(path, []byte{7, 8}, 0o644))

	f, err := OpenFile(path, 6)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 6)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 8, 0, 0, 0, 0}, buf)

	_, err = f.WriteAt([]byte{1}, 6)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestFileReadOnly_LeavesImageUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switches.eeprom")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o444))

	f, err := OpenFileReadOnly(path, 4)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 4)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)

	_, err = f.WriteAt([]byte{9}, 0)
	assert.ErrorIs(t, err, ErrReadOnly)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, raw)
}

func TestFileReadOnly_RefusesSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string][]byte{
		"short": {1, 2},
		"long":  {1, 2, 3, 4, 5, 6},
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, content, 0o644))

			_, err := OpenFileReadOnly(path, 4)
			assert.ErrorContains(t, err, "want 4")

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, content, raw)
		})
	}
}

func TestFileReadOnly_MissingFile(t *testing.T) {
	_, err := OpenFileReadOnly(filepath.Join(t.TempDir(), "absent"), 4)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRedis_ReadWrite(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	r := NewRedis(RedisOptions{Address: addr, Key: "smart-switch-test-" + t.Name()}, 16)
	defer r.Close()
	require.NoError(t, r.Ping(context.Background()))
	t.Cleanup(func() { r.client.Del(context.Background(), r.key) })

	buf := make([]byte, 4)
	_, err := r.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, buf)

	_, err = r.WriteAt([]byte{9, 8}, 3)
	require.NoError(t, err)

	_, err = r.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 9, 8, 0}, buf)

	_, err = r.WriteAt([]byte{1}, 16)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
