package liftcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPhoto(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		wantCode    string
	}{
		{name: "jpeg", contentType: "image/jpeg", size: 2048},
		{name: "png with params", contentType: "image/png; charset=binary", size: 2048},
		{name: "webp", contentType: "image/webp", size: 2048},
		{name: "heic", contentType: "IMAGE/HEIC", size: 2048},
		{name: "exactly max size", contentType: "image/jpeg", size: MaxPhotoSize},
		{name: "too large", contentType: "image/jpeg", size: MaxPhotoSize + 1, wantCode: EPHOTOTOOLARGE},
		{name: "gif", contentType: "image/gif", size: 2048, wantCode: EPHOTOTYPE},
		{name: "pdf", contentType: "application/pdf", size: 2048, wantCode: EPHOTOTYPE},
		{name: "empty type", contentType: "", size: 2048, wantCode: EPHOTOTYPE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPhoto("hook.jpg", tt.contentType, tt.size)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, ErrorCode(err))
		})
	}
}

func TestAppendPhotosCap(t *testing.T) {
	existing := testPhotos(4)
	batch := testPhotos(6)

	out, rejected := AppendPhotos(existing, batch)
	require.Len(t, out, MaxPhotosPerItem)
	assert.Equal(t, existing, out[:4])
	assert.Equal(t, batch[0], out[4])

	require.Len(t, rejected, 5)
	for _, r := range rejected {
		assert.Equal(t, EPHOTOLIMIT, r.Code)
		assert.NotEmpty(t, r.Message)
	}
	assert.Len(t, existing, 4)
}

func TestAppendPhotosSkipsInvalidFiles(t *testing.T) {
	gif := testPhoto("crane.gif")
	gif.ContentType = "image/gif"
	huge := testPhoto("huge.jpg")
	huge.Size = MaxPhotoSize + 1
	good := testPhoto("hook.jpg")

	out, rejected := AppendPhotos(nil, []Photo{gif, huge, good})
	assert.Equal(t, []Photo{good}, out)
	require.Len(t, rejected, 2)
	assert.Equal(t, "crane.gif", rejected[0].Filename)
	assert.Equal(t, EPHOTOTYPE, rejected[0].Code)
	assert.Equal(t, "huge.jpg", rejected[1].Filename)
	assert.Equal(t, EPHOTOTOOLARGE, rejected[1].Code)
}

func TestAppendPhotosFullList(t *testing.T) {
	existing := testPhotos(MaxPhotosPerItem)
	out, rejected := AppendPhotos(existing, testPhotos(1))
	assert.Equal(t, existing, out)
	require.Len(t, rejected, 1)
	assert.Equal(t, EPHOTOLIMIT, rejected[0].Code)
}

func TestPhotoRejectionErr(t *testing.T) {
	r := PhotoRejection{Filename: "a.gif", Code: EPHOTOTYPE, Message: "unsupported"}
	err := r.Err()
	assert.True(t, IsErrorCode(err, EPHOTOTYPE))
	assert.True(t, IsRejection(err))
}

func TestPhotoStorageKey(t *testing.T) {
	assert.Equal(t, "inspections/abc/photos/def", PhotoStorageKey("abc", "def"))
}
