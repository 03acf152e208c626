// Package cipher applies a keyed byte transform to whole files. It hides a
// snapshot from casual reading; it does not authenticate it.
package cipher

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20"
)

const (
	Magic = "PCF1"

	// MinPassphraseLen is the minimum passphrase length in bytes.
	MinPassphraseLen = 16
	SaltSize         = 16

	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
)

var (
	ErrShortPassphrase = errors.New("passphrase too short")
	ErrNotCiphered     = errors.New("input is not ciphered")
	ErrSamePath        = errors.New("source and destination are the same file")
)

func deriveStream(passphrase string, salt []byte) (*chacha20.Cipher, error) {
	if len(passphrase) < MinPassphraseLen {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrShortPassphrase, MinPassphraseLen)
	}
	material := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads,
		chacha20.KeySize+chacha20.NonceSize)
	return chacha20.NewUnauthenticatedCipher(material[:chacha20.KeySize], material[chacha20.KeySize:])
}

// Encrypt writes the header and the transformed content of src to dst.
func Encrypt(dst io.Writer, src io.Reader, passphrase string) error {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	stream, err := deriveStream(passphrase, salt)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(dst, Magic); err != nil {
		return err
	}
	if _, err := dst.Write(salt); err != nil {
		return err
	}
	return transform(dst, src, stream)
}

// Decrypt reverses Encrypt.
func Decrypt(dst io.Writer, src io.Reader, passphrase string) error {
	head := make([]byte, len(Magic)+SaltSize)
	if _, err := io.ReadFull(src, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: header truncated", ErrNotCiphered)
		}
		return err
	}
	if string(head[:len(Magic)]) != Magic {
		return ErrNotCiphered
	}
	stream, err := deriveStream(passphrase, head[len(Magic):])
	if err != nil {
		return err
	}
	return transform(dst, src, stream)
}

func transform(dst io.Writer, src io.Reader, stream *chacha20.Cipher) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			stream.XORKeyStream(buf[:n], buf[:n])
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func EncryptBytes(data []byte, passphrase string) ([]byte, error) {
	var out bytes.Buffer
	if err := Encrypt(&out, bytes.NewReader(data), passphrase); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func DecryptBytes(data []byte, passphrase string) ([]byte, error) {
	var out bytes.Buffer
	if err := Decrypt(&out, bytes.NewReader(data), passphrase); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// IsCiphered reports whether data starts with the cipher header.
func IsCiphered(data []byte) bool {
	return len(data) >= len(Magic)+SaltSize && string(data[:len(Magic)]) == Magic
}

func EncryptFile(srcPath, dstPath, passphrase string) error {
	return convertFile(srcPath, dstPath, passphrase, Encrypt)
}

func DecryptFile(srcPath, dstPath, passphrase string) error {
	return convertFile(srcPath, dstPath, passphrase, Decrypt)
}

func convertFile(srcPath, dstPath, passphrase string, fn func(io.Writer, io.Reader, string) error) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return err
	}
	if dstInfo, err := os.Stat(dstPath); err == nil && os.SameFile(srcInfo, dstInfo) {
		return fmt.Errorf("%w: %s", ErrSamePath, dstPath)
	}

	out, err := os.CreateTemp(filepath.Dir(dstPath), filepath.Base(dstPath)+".tmp-*")
	if err != nil {
		return err
	}
	if err := fn(out, in, passphrase); err != nil {
		out.Close()
		os.Remove(out.Name())
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return err
	}
	return os.Rename(out.Name(), dstPath)
}
