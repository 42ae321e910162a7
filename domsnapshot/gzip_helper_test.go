package domsnapshot_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func gunzip(t *testing.T, raw []byte) string {
	t.Helper()

	r, err := gzip.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer r.Close()

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}
