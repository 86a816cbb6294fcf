package photo

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeJPEG(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return data
}

func TestRoundTripIsByteIdentical(t *testing.T) {
	for _, size := range []int{1, 3, 4, 1024, 12 * 1024} {
		original := fakeJPEG(t, size)

		encoded := Encode(original, "")
		assert.True(t, IsDataURL(encoded))

		decoded, mimeType, err := Decode(encoded)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(original, decoded), "size %d not byte identical", size)
		if size >= 4 {
			assert.Equal(t, "image/jpeg", mimeType)
		}
	}
}

func TestEncodeKeepsDeclaredType(t *testing.T) {
	encoded := Encode([]byte("not really a png"), "image/png")
	assert.Equal(t, "data:image/png;base64,bm90IHJlYWxseSBhIHBuZw==", encoded)

	_, mimeType, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{name: "blob url", in: "blob:http://localhost/123", want: ErrNotDataURL},
		{name: "no comma", in: "data:image/jpeg;base64", want: ErrNotDataURL},
		{name: "not base64", in: "data:text/plain,hello", want: ErrNotDataURL},
		{name: "empty payload", in: "data:image/jpeg;base64,", want: ErrEmptyPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, _, err := Decode("data:image/jpeg;base64,%%%")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "story-photo.png", Filename("image/png"))
	assert.Equal(t, DefaultFilename, Filename("image/jpeg"))
	assert.Equal(t, DefaultFilename, Filename(""))
}
