package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ralt/chartrepo/internal/chart"
	"github.com/ralt/chartrepo/internal/index"
	"github.com/ralt/chartrepo/internal/packager"
	"github.com/ralt/chartrepo/internal/storage"
	"github.com/ralt/chartrepo/internal/utils"
	"gopkg.in/yaml.v3"
)

type object struct {
	Data        string
	ContentType string
	PublicRead  bool
}

// memStorage is an in-memory object store
type memStorage struct {
	buckets    map[string]map[string]object
	uploads    []string // keys in upload order
	failUpload map[string]error
	failExists map[string]error
	failCreate error

	createErrs []error        // consumed one per CreateBucket call, nil succeeds
	creates    int            // CreateBucket calls
	lag        map[string]int // BucketExists calls a created bucket stays invisible for
}

func newMemStorage() *memStorage {
	return &memStorage{
		buckets:    make(map[string]map[string]object),
		failUpload: make(map[string]error),
		failExists: make(map[string]error),
		lag:        make(map[string]int),
	}
}

func (s *memStorage) BucketExists(_ context.Context, bucket string) (bool, error) {
	if _, ok := s.buckets[bucket]; !ok {
		return false, nil
	}
	if s.lag[bucket] > 0 {
		s.lag[bucket]--
		return false, nil
	}
	return true, nil
}

func (s *memStorage) CreateBucket(_ context.Context, bucket string) error {
	s.creates++
	if s.failCreate != nil {
		return s.failCreate
	}
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]object)
	}
	return nil
}

func (s *memStorage) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	if err := s.failExists[key]; err != nil {
		return false, err
	}
	_, ok := s.buckets[bucket][key]
	return ok, nil
}

func (s *memStorage) Upload(_ context.Context, bucket, localPath, key string, opts storage.UploadOptions) error {
	if err := s.failUpload[key]; err != nil {
		return err
	}
	objects, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("NoSuchBucket: %s", bucket)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	objects[key] = object{Data: string(data), ContentType: opts.ContentType, PublicRead: opts.PublicRead}
	s.uploads = append(s.uploads, key)
	return nil
}

func (s *memStorage) Download(_ context.Context, bucket, key, localPath string) error {
	obj, ok := s.buckets[bucket][key]
	if !ok {
		return fmt.Errorf("NoSuchKey: %s", key)
	}
	return os.WriteFile(localPath, []byte(obj.Data), 0644)
}

// keys lists the objects of a bucket under prefix, sorted
func (s *memStorage) keys(bucket, prefix string) []string {
	var keys []string
	for k := range s.buckets[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// snapshot copies a bucket's content
func (s *memStorage) snapshot(bucket string) map[string]object {
	out := make(map[string]object)
	for k, v := range s.buckets[bucket] {
		out[k] = v
	}
	return out
}

// fakeHelm mimics helm lint and helm repo index: charts found in the
// directory win over entries of the merged index with the same name and version
type fakeHelm struct {
	lintErr error
	linted  []string
}

func (h *fakeHelm) Lint(_ context.Context, chartPath string) error {
	h.linted = append(h.linted, chartPath)
	return h.lintErr
}

func (h *fakeHelm) Index(_ context.Context, dir string, opts packager.IndexOptions) error {
	idx := &index.Index{APIVersion: "v1", Entries: make(map[string][]index.Entry), Generated: "2024-01-02T15:04:05Z"}

	archives, err := filepath.Glob(filepath.Join(dir, "*.tgz"))
	if err != nil {
		return err
	}
	for _, archive := range archives {
		meta, err := chart.Inspect(archive)
		if err != nil {
			return err
		}
		sum, err := utils.CalculateChecksums(archive)
		if err != nil {
			return err
		}
		idx.Entries[meta.Name] = append(idx.Entries[meta.Name], index.Entry{
			Name:    meta.Name,
			Version: meta.Version,
			URLs:    []string{opts.URL + filepath.Base(archive)},
			Digest:  sum.SHA256,
		})
	}

	if opts.MergeFrom != "" {
		prev, err := index.Load(opts.MergeFrom)
		if err != nil {
			return err
		}
		for name, versions := range prev.Entries {
			for _, e := range versions {
				if !has(idx, name, e.Version) {
					idx.Entries[name] = append(idx.Entries[name], e)
				}
			}
		}
	}

	data, err := yaml.Marshal(idx)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "index.yaml"), data, 0644)
}

func has(idx *index.Index, name, version string) bool {
	for _, e := range idx.Entries[name] {
		if e.Version == version {
			return true
		}
	}
	return false
}

// answers is a Confirmer replaying canned answers and recording questions
type answers struct {
	replies   []bool
	questions []string
}

func (a *answers) Confirm(question string) (bool, error) {
	a.questions = append(a.questions, question)
	if len(a.replies) == 0 {
		return false, errors.New("unexpected question: " + question)
	}
	reply := a.replies[0]
	a.replies = a.replies[1:]
	return reply, nil
}
