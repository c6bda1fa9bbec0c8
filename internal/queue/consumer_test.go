package queue

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEventFormatsLine(t *testing.T) {
	body, err := json.Marshal(ProductChangedEvent{
		Action:    ActionUpdated,
		ProductID: "p-1",
		Name:      "Desk Lamp",
		SellerID:  "u-9",
		Version:   7,
		At:        "2026-01-02T03:04:05Z",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteEvent(&buf, body))
	assert.Equal(t,
		"[2026-01-02T03:04:05Z] Product updated | product_id=p-1 | name=\"Desk Lamp\" | seller_id=u-9 | catalog_version=7\n",
		buf.String())
}

func TestWriteEventRejectsBadBodies(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteEvent(&buf, []byte("not json")))
	assert.Error(t, WriteEvent(&buf, []byte(`{"action":"created"}`)))
	assert.Empty(t, buf.String())
}

func TestConsumerHandleAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.log")
	c := &Consumer{LogPath: path}

	body := []byte(`{"action":"created","product_id":"a","name":"A","version":2,"at":"t1"}`)
	require.NoError(t, c.handle(body))
	require.NoError(t, c.handle(body))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(b, []byte("\n")))
}
