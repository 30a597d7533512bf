package crypto

import (
	"bytes"
	"encoding/base64"
	"sync"
	"testing"
)

var (
	ringOnce sync.Once
	ring     *KeyRing
)

// testRing shares one KeyRing across tests; the argon2 stretch is the
// expensive part and derivation from it is deterministic anyway.
func testRing(t testing.TB) *KeyRing {
	t.Helper()
	ringOnce.Do(func() {
		kr, err := NewKeyRing([]byte("test-master-secret"))
		if err != nil {
			panic(err)
		}
		ring = kr
	})
	return ring
}

func TestSealOpenRoundTrip(t *testing.T) {
	kr := testRing(t)
	key, err := kr.EntryKey("entry-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	pt := []byte("correct horse battery staple")
	blob, err := Seal(key, pt)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	got, err := Open(key, blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(pt, got) {
		t.Fatal("plaintext mismatch")
	}
}

func TestEntryKeyIsolation(t *testing.T) {
	kr := testRing(t)
	k1, err := kr.EntryKey("entry-1")
	if err != nil {
		t.Fatalf("derive k1: %v", err)
	}
	k2, err := kr.EntryKey("entry-2")
	if err != nil {
		t.Fatalf("derive k2: %v", err)
	}
	if k1 == k2 {
		t.Fatal("expected distinct keys for distinct entry ids")
	}
	blob, err := Seal(k1, []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(k2, blob); err != ErrDecryptFailed {
		t.Fatalf("expected ErrDecryptFailed opening under wrong entry key, got %v", err)
	}
}

func TestEntryKeyDeterministic(t *testing.T) {
	kr2, err := NewKeyRing([]byte("test-master-secret"))
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}
	k1, err := testRing(t).EntryKey("entry-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	k2, err := kr2.EntryKey("entry-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if k1 != k2 {
		t.Fatal("same (master, id) pair must derive the same key")
	}
}

func TestSealNonceUniqueness(t *testing.T) {
	key, err := testRing(t).EntryKey("entry-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b1, err := Seal(key, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("seal1: %v", err)
	}
	b2, err := Seal(key, []byte("same plaintext"))
	if err != nil {
		t.Fatalf("seal2: %v", err)
	}
	if b1 == b2 {
		t.Fatal("two seals of the same plaintext must differ")
	}
}

func TestOpenMalformed(t *testing.T) {
	key, err := testRing(t).EntryKey("entry-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if _, err := Open(key, "%%not base64%%"); err != ErrMalformedCiphertext {
		t.Fatalf("expected ErrMalformedCiphertext for bad encoding, got %v", err)
	}
	short := base64.StdEncoding.EncodeToString([]byte("tiny"))
	if _, err := Open(key, short); err != ErrMalformedCiphertext {
		t.Fatalf("expected ErrMalformedCiphertext for short blob, got %v", err)
	}
}

func TestOpenTamper(t *testing.T) {
	key, err := testRing(t).EntryKey("entry-1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	blob, err := Seal(key, []byte("hello"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)-1] ^= 0xFF
	if _, err := Open(key, base64.StdEncoding.EncodeToString(raw)); err != ErrDecryptFailed {
		t.Fatalf("expected ErrDecryptFailed after tamper, got %v", err)
	}
}

func TestNewKeyRingEmptyMaster(t *testing.T) {
	if _, err := NewKeyRing(nil); err != ErrEmptyMaster {
		t.Fatalf("expected ErrEmptyMaster, got %v", err)
	}
}

func FuzzSealOpenMutations(f *testing.F) {
	f.Add([]byte("hello"), "entry-1")
	f.Add([]byte(""), "e")
	f.Fuzz(func(t *testing.T, pt []byte, id string) {
		key, err := testRing(t).EntryKey(id)
		if err != nil {
			t.Fatalf("derive: %v", err)
		}
		blob, err := Seal(key, pt)
		if err != nil {
			t.Fatalf("seal: %v", err)
		}
		got, err := Open(key, blob)
		if err != nil {
			t.Fatalf("open baseline: %v", err)
		}
		if !bytes.Equal(pt, got) {
			t.Fatal("roundtrip mismatch")
		}
		raw, err := base64.StdEncoding.DecodeString(blob)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		idx := len(pt) % len(raw)
		raw[idx] ^= 0xFF
		if _, err := Open(key, base64.StdEncoding.EncodeToString(raw)); err == nil {
			t.Fatalf("mutation at %d succeeded", idx)
		}
	})
}
