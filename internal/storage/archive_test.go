package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewArchive(common.StorageConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "minio",
		SecretKey:  "minio123",
		Bucket:     "contracts",
		Region:     "us-east-1",
		ExpireDays: 2,
	}, nil)
	require.NoError(t, err)
	return a
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("KST", 9*3600))
	key := ObjectKey(at, "/tmp/uploads/0b6c.pdf")
	assert.Equal(t, "contracts/2024/03/05/0b6c.pdf", key)
}

func TestPresignedURL_Offline(t *testing.T) {
	a := testArchive(t)
	raw, err := a.PresignedURL(context.Background(), "contracts/2024/03/05/0b6c.pdf", "용역계약서.pdf")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/contracts/contracts/2024/03/05/0b6c.pdf", u.Path)
	q := u.Query()
	assert.Equal(t, "172800", q.Get("X-Amz-Expires"))
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
	assert.Contains(t, q.Get("response-content-disposition"), "attachment")
}

func TestNewArchive_BadEndpoint(t *testing.T) {
	_, err := NewArchive(common.StorageConfig{Endpoint: "http://has-scheme:9000"}, nil)
	assert.Error(t, err)
}
