package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeListNormalization(t *testing.T) {
	bare, err := decodeList[int]([]byte(`[1,2,3]`))
	require.NoError(t, err)

	enveloped, err := decodeList[int]([]byte(`{"results":[1,2,3]}`))
	require.NoError(t, err)

	// Both shapes normalize to the identical semantic list.
	require.Equal(t, []int{1, 2, 3}, bare)
	require.Equal(t, bare, enveloped)
}

func TestDecodeListEmptyShapes(t *testing.T) {
	for _, body := range []string{`[]`, `{"results":[]}`, `{"results":null}`, `{}`, ``, `null`} {
		items, err := decodeList[int]([]byte(body))
		require.NoError(t, err, "body %q", body)
		require.Empty(t, items, "body %q", body)
		require.NotNil(t, items, "body %q", body)
	}
}

func TestDecodeListStructs(t *testing.T) {
	type row struct {
		ID int64 `json:"id"`
	}
	items, err := decodeList[row]([]byte(`{"results":[{"id":7},{"id":8}],"count":2}`))
	require.NoError(t, err)
	require.Equal(t, []row{{ID: 7}, {ID: 8}}, items)
}

func TestDecodeListMalformed(t *testing.T) {
	_, err := decodeList[int]([]byte(`{"results":"nope"}`))
	require.Error(t, err)
}
