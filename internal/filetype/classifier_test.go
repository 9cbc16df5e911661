package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JustinTDCT/StageVault/internal/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want models.FileRole
	}{
		{"Avatar (2009).bdrip.mkv", models.RoleVideo},
		{"Avatar (2009).trailer.mkv", models.RoleTrailer},
		{"trailer.mkv", models.RoleTrailer},
		{"TRAILER.MKV", models.RoleTrailer},
		{"Avatar (2009).bdrip.srt", models.RoleSubtitle},
		{"Avatar (2009).nfo", models.RoleNFO},
		{"Avatar (2009).bdrip.jpg", models.RolePoster},
		{"Avatar (2009).bdrip.FANART.jpg", models.RoleFanart},
		{"fanart.png", models.RoleFanart},
		{"Avatar (2009).videoimage.jpg", models.RoleVideoImage},
		{"Avatar (2009).bdrip.txt", models.RoleUnknown},
		{"noextension", models.RoleUnknown},
		{"trailingdot.", models.RoleUnknown},
		{"", models.RoleUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.name), "file %q", tc.name)
	}
}

func TestClassifyTrailerRequiresOwnToken(t *testing.T) {
	// "xtrailer" is not a trailer marker, only ".trailer." or the bare name is.
	assert.Equal(t, models.RoleVideo, Classify("movie.xtrailer.mkv"))
	assert.Equal(t, models.RoleVideo, Classify("mytrailer.mkv"))
}

func TestIsVideoExtension(t *testing.T) {
	assert.True(t, IsVideoExtension("mkv"))
	assert.True(t, IsVideoExtension("MKV"))
	assert.False(t, IsVideoExtension("jpg"))
}
