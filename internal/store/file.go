package store

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/derekprior/diamonds/internal/schedule"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// FileStore keeps each tournament's state in <dir>/<tournament id>.yaml, the
// same format the CLI reads and writes between commands.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating state directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file a tournament's state lives in.
func (s *FileStore) Path(tournamentID string) (string, error) {
	if !validID.MatchString(tournamentID) {
		return "", errors.Newf("tournament id %q cannot be used as a file name", tournamentID)
	}
	return filepath.Join(s.dir, tournamentID+".yaml"), nil
}

func (s *FileStore) Load(_ context.Context, tournamentID string) (schedule.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(tournamentID)
}

func (s *FileStore) Save(_ context.Context, tournamentID string, state schedule.State) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(tournamentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if current.Version != state.Version {
		return current.Version, errors.Wrapf(ErrStaleState, "tournament %q is at version %d, not %d", tournamentID, current.Version, state.Version)
	}

	saved := cloneState(state)
	saved.Version++
	data, err := yaml.Marshal(saved)
	if err != nil {
		return 0, errors.Wrap(err, "encoding state")
	}

	path, err := s.Path(tournamentID)
	if err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(s.dir, "."+tournamentID+"-*.yaml")
	if err != nil {
		return 0, errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, errors.Wrap(err, "writing state")
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Wrap(err, "writing state")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, errors.Wrap(err, "replacing state file")
	}
	return saved.Version, nil
}

func (s *FileStore) read(tournamentID string) (schedule.State, error) {
	path, err := s.Path(tournamentID)
	if err != nil {
		return schedule.State{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return schedule.State{}, errors.Wrapf(ErrNotFound, "tournament %q", tournamentID)
	}
	if err != nil {
		return schedule.State{}, errors.Wrapf(err, "reading %s", path)
	}
	var state schedule.State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return schedule.State{}, errors.Wrapf(err, "parsing %s", path)
	}
	return state, nil
}
