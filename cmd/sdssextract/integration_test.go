//go:build integration

package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Samael3003/SDSS-ImageExtract/internal/testutils"
)

// TestFetchToMinio runs a full download against a real S3-compatible
// destination. Requires Docker.
func TestFetchToMinio(t *testing.T) {
	ctx := context.Background()
	env := testutils.StartMinioContainer(t, ctx, "cutouts")
	defer env.Close(ctx)

	payload := []byte("fake jpeg payload")
	server := testutils.StartCutoutServer(t, payload)

	var rows []string
	for i := 1; i <= 4; i++ {
		rows = append(rows, fmt.Sprintf("%d.5,-%d.25,obj%d", i, i, i))
	}

	cfg := testConfig(t, testutils.WriteInputCSV(t, rows), server.URL)
	cfg.Bucket = env.BucketURL

	if code := fetchAll(ctx, cfg, strings.NewReader("")); code != ExitSuccess {
		t.Fatalf("fetchAll exited %d", code)
	}

	bkt, err := env.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bkt.Close()

	for i := 1; i <= 4; i++ {
		key := fmt.Sprintf("%d.jpeg", i)
		data, err := bkt.ReadAll(ctx, key)
		if err != nil {
			t.Errorf("read %s: %v", key, err)
			continue
		}
		if !bytes.Equal(data, payload) {
			t.Errorf("%s: got %d bytes, want %d", key, len(data), len(payload))
		}
	}
}
