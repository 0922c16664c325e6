package arrays

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gomlx/gomlx/types/tensors"

	"cxr/internal/dicomio"
	"cxr/internal/labels"
)

// FileExtension is the suffix of persisted array files.
const FileExtension = ".tensor"

// Store persists preprocessed image arrays under a split/label directory
// tree: <root>/<split>/<label>/<subject>.tensor. Files are written once and
// never mutated by the pipeline.
type Store struct {
	root string
}

// NewStore returns a store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// Path returns the destination for a subject's array file.
func (s *Store) Path(split labels.Split, label int, subjectID string) string {
	return filepath.Join(s.root, string(split), strconv.Itoa(label), subjectID+FileExtension)
}

// Exists reports whether a subject's array file has already been written.
func (s *Store) Exists(split labels.Split, label int, subjectID string) bool {
	info, err := os.Stat(s.Path(split, label, subjectID))
	return err == nil && !info.IsDir()
}

// Write persists one image as a float32 tensor with shape
// (height, width, 1), creating the (split, label) directory on demand.
func (s *Store) Write(split labels.Split, label int, subjectID string, img *dicomio.Image) (string, error) {
	path := s.Path(split, label, subjectID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create array directory: %w", err)
	}

	t := tensors.FromFlatDataAndDimensions(img.Pixels, img.Height, img.Width, 1)
	defer t.FinalizeAll()
	if err := t.Save(path); err != nil {
		return "", fmt.Errorf("write array %s: %w", path, err)
	}
	return path, nil
}

// Read loads an array file back into an intensity grid.
func Read(path string) (*dicomio.Image, error) {
	t, err := tensors.Load(path)
	if err != nil {
		return nil, fmt.Errorf("read array %s: %w", path, err)
	}
	defer t.FinalizeAll()

	dims := t.Shape().Dimensions
	if len(dims) != 3 || dims[2] != 1 {
		return nil, fmt.Errorf("array %s: unexpected shape %v", path, dims)
	}
	pixels := tensors.CopyFlatData[float32](t)
	return &dicomio.Image{Pixels: pixels, Width: dims[1], Height: dims[0]}, nil
}

// Entry describes one stored array. The label is inferred from the
// containing directory, mirroring generic folder-dataset conventions.
type Entry struct {
	Path      string
	SubjectID string
	Label     int
}

// List walks one split of the tree and returns its entries sorted by
// subject identifier, so iteration order is stable across runs.
func (s *Store) List(split labels.Split) ([]Entry, error) {
	splitDir := filepath.Join(s.root, string(split))
	labelDirs, err := os.ReadDir(splitDir)
	if err != nil {
		return nil, fmt.Errorf("read split directory %s: %w", splitDir, err)
	}

	var entries []Entry
	for _, labelDir := range labelDirs {
		if !labelDir.IsDir() {
			continue
		}
		label, err := strconv.Atoi(labelDir.Name())
		if err != nil {
			continue
		}
		files, err := os.ReadDir(filepath.Join(splitDir, labelDir.Name()))
		if err != nil {
			return nil, fmt.Errorf("read label directory: %w", err)
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), FileExtension) {
				continue
			}
			entries = append(entries, Entry{
				Path:      filepath.Join(splitDir, labelDir.Name(), file.Name()),
				SubjectID: strings.TrimSuffix(file.Name(), FileExtension),
				Label:     label,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].SubjectID < entries[j].SubjectID })
	return entries, nil
}
