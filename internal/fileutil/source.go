// Package fileutil reads corpus source files. Mirrors and archival dumps
// ship xz-compressed XML alongside plain files, so reading is transparent
// over both.
package fileutil

import (
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
)

// ReadSource reads a source file, decompressing .xz transparently.
func ReadSource(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		r = xr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return data, nil
}

// Checksum returns the hex BLAKE3 digest of the (decompressed) source
// bytes. Stored in the catalog so a re-run can be audited against the
// exact input it saw.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
