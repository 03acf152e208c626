package cipher

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passphrase = "correct horse battery staple"

func TestRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("PROM\x01\x00\x00\x00"), 10000)

	sealed, err := EncryptBytes(plain, passphrase)
	require.NoError(t, err)
	assert.True(t, IsCiphered(sealed))
	assert.Len(t, sealed, len(plain)+len(Magic)+SaltSize)
	assert.NotContains(t, string(sealed[len(Magic)+SaltSize:]), "PROM")

	opened, err := DecryptBytes(sealed, passphrase)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestSaltMakesOutputsDiffer(t *testing.T) {
	a, err := EncryptBytes([]byte("same input"), passphrase)
	require.NoError(t, err)
	b, err := EncryptBytes([]byte("same input"), passphrase)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWrongPassphrase(t *testing.T) {
	sealed, err := EncryptBytes([]byte("secret grades"), passphrase)
	require.NoError(t, err)
	opened, err := DecryptBytes(sealed, "another sixteen byte key")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("secret grades"), opened)
}

func TestShortPassphrase(t *testing.T) {
	_, err := EncryptBytes([]byte("x"), "short")
	assert.ErrorIs(t, err, ErrShortPassphrase)
}

func TestDecryptRejectsPlainInput(t *testing.T) {
	_, err := DecryptBytes([]byte("PROM plain binary data here"), passphrase)
	assert.ErrorIs(t, err, ErrNotCiphered)
	_, err = DecryptBytes([]byte("PC"), passphrase)
	assert.ErrorIs(t, err, ErrNotCiphered)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "promo.bin")
	enc := filepath.Join(dir, "promo.bin.enc")
	dec := filepath.Join(dir, "promo.out.bin")
	require.NoError(t, os.WriteFile(src, []byte("binary snapshot"), 0o644))

	require.NoError(t, EncryptFile(src, enc, passphrase))
	require.NoError(t, DecryptFile(enc, dec, passphrase))

	got, err := os.ReadFile(dec)
	require.NoError(t, err)
	assert.Equal(t, "binary snapshot", string(got))

	assert.Error(t, DecryptFile(src, filepath.Join(dir, "bad.bin"), passphrase))
	_, err = os.Stat(filepath.Join(dir, "bad.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilesRejectSamePath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "promo.bin")
	require.NoError(t, os.WriteFile(src, []byte("binary snapshot"), 0o644))

	assert.ErrorIs(t, EncryptFile(src, src, passphrase), ErrSamePath)
	assert.ErrorIs(t, DecryptFile(src, filepath.Join(dir, ".", "promo.bin"), passphrase), ErrSamePath)

	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "binary snapshot", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFilesOverwriteDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "promo.bin")
	enc := filepath.Join(dir, "promo.bin.enc")
	require.NoError(t, os.WriteFile(src, []byte("binary snapshot"), 0o644))
	require.NoError(t, os.WriteFile(enc, []byte("stale"), 0o644))

	require.NoError(t, EncryptFile(src, enc, passphrase))
	require.NoError(t, DecryptFile(enc, src, passphrase))

	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "binary snapshot", string(got))
}
