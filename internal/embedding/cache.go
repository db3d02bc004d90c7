package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"os"
	"path/filepath"
)

// cacheKey returns the 64-hex content-addressed key for one chunk:
// SHA-256(model ":" pooling_version ":" text), so a pooling-algorithm
// change invalidates every cached vector at once (spec §3/§4.6).
func cacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte(":"))
	h.Write([]byte(PoolingVersion))
	h.Write([]byte(":"))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func cachePath(cacheDir, key string) string {
	return filepath.Join(cacheDir, key+".npy")
}

// encodeVector renders v as little-endian float32 bytes.
func encodeVector(v []float32) []byte {
	data := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	return data
}

// decodeVector is encodeVector's inverse. raw's length must be a multiple
// of 4; callers check this before calling.
func decodeVector(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

// loadCachedVector reads a cached vector, returning ok=false on any miss or
// read error (cache I/O errors are swallowed per spec §7's cache policy).
func loadCachedVector(cacheDir, key string) ([]float32, bool) {
	if cacheDir == "" {
		return nil, false
	}
	data, err := os.ReadFile(cachePath(cacheDir, key))
	if err != nil || len(data)%4 != 0 {
		return nil, false
	}
	return decodeVector(data), true
}

// storeCachedVector writes v as little-endian float32 bytes to the cache,
// best-effort: any error is swallowed per spec §7.
func storeCachedVector(cacheDir, key string, v []float32) {
	if cacheDir == "" {
		return
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return
	}
	data := encodeVector(v)
	tmp, err := os.CreateTemp(cacheDir, "embed-*.npy.tmp")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return
	}
	_ = os.Rename(tmpPath, cachePath(cacheDir, key))
}
