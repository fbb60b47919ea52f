package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKeys(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	cases := []struct {
		got, want string
	}{
		{AttachmentKey(now, "scan.PDF"), "1700000000123.PDF"},
		{AttachmentKey(now, "archive.tar.gz"), "1700000000123.gz"},
		{AttachmentKey(now, "README"), "1700000000123.README"},
		{AttachmentKey(now, "../../etc/passwd"), "1700000000123.passwd"},
		{AttachmentKey(now, "weird.$$"), "1700000000123.bin"},
		{MusicKey(now, "theme.mp3"), "bg-music-1700000000123.mp3"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("got=%q want=%q", tc.got, tc.want)
		}
	}
}

func TestDiskBucketPut(t *testing.T) {
	root := t.TempDir()
	b, err := NewDiskBucket(root, CaseFilesBucket, "http://localhost:8080/")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Put(context.Background(), "1.txt", strings.NewReader("evidence")); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(root, CaseFilesBucket, "1.txt"))
	if err != nil || string(got) != "evidence" {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if u := b.PublicURL("1.txt"); u != "http://localhost:8080/storage/case-files/1.txt" {
		t.Fatalf("url=%q", u)
	}

	for _, key := range []string{"", "..", "../x", "a/b", ".hidden"} {
		if err := b.Put(context.Background(), key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key=%q: got err=%v", key, err)
		}
	}
}

func TestDiskBucketPutCancelled(t *testing.T) {
	root := t.TempDir()
	b, err := NewDiskBucket(root, MusicBucket, "")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Put(ctx, "m.mp3", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("got err=%v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, MusicBucket))
	if len(entries) != 0 {
		t.Fatalf("left %d files behind", len(entries))
	}
}
