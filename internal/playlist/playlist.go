package playlist

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrEmpty = errors.New("playlist is empty")

type Entry struct {
	Name string
	Path string
}

// IsAudioFile reports whether name looks like a playable file.
func IsAudioFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".wav")
}

// Scan lists the audio files directly inside dir, sorted by name.
func Scan(dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, it := range items {
		if it.IsDir() || !IsAudioFile(it.Name()) {
			continue
		}
		out = append(out, Entry{Name: it.Name(), Path: filepath.Join(dir, it.Name())})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// FromPaths builds entries for explicit files, keeping the given order and
// skipping paths that do not exist.
func FromPaths(paths []string) []Entry {
	var out []Entry
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}
		out = append(out, Entry{Name: filepath.Base(p), Path: p})
	}
	return out
}

// Library holds every known track and the visible subset selected by the
// search query. Indices always refer to the visible list.
type Library struct {
	all     []Entry
	visible []Entry
	query   string
	index   int
	shuffle bool
	rnd     *rand.Rand
}

type Option func(*Library)

// WithRand sets the source used for shuffle picks.
func WithRand(r *rand.Rand) Option {
	return func(l *Library) {
		l.rnd = r
	}
}

func New(entries []Entry, opts ...Option) *Library {
	l := &Library{}
	for _, opt := range opts {
		opt(l)
	}
	if l.rnd == nil {
		l.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	l.Replace(entries)
	return l
}

// Replace swaps the track list, re-applying the current query.
func (l *Library) Replace(entries []Entry) {
	l.all = append([]Entry(nil), entries...)
	l.refilter()
}

// Filter keeps the entries whose name contains query, ignoring case.
func (l *Library) Filter(query string) {
	l.query = query
	l.refilter()
}

func (l *Library) Query() string { return l.query }

// refilter rebuilds the visible list, keeping the current entry selected
// when it survives the filter.
func (l *Library) refilter() {
	var current string
	if l.index < len(l.visible) {
		current = l.visible[l.index].Path
	}
	q := strings.ToLower(l.query)
	visible := make([]Entry, 0, len(l.all))
	for _, e := range l.all {
		if strings.Contains(strings.ToLower(e.Name), q) {
			visible = append(visible, e)
		}
	}
	l.visible = visible
	if l.index >= len(visible) {
		l.index = 0
	}
	for i, e := range visible {
		if e.Path == current {
			l.index = i
			break
		}
	}
}

func (l *Library) Visible() []Entry {
	return append([]Entry(nil), l.visible...)
}

func (l *Library) Names() []string {
	names := make([]string, len(l.visible))
	for i, e := range l.visible {
		names[i] = e.Name
	}
	return names
}

func (l *Library) Len() int   { return len(l.visible) }
func (l *Library) Index() int { return l.index }

// Select makes the visible entry at i current.
func (l *Library) Select(i int) (Entry, error) {
	if len(l.visible) == 0 {
		return Entry{}, ErrEmpty
	}
	if i < 0 || i >= len(l.visible) {
		return Entry{}, errors.New("playlist index out of range")
	}
	l.index = i
	return l.visible[i], nil
}

func (l *Library) Current() (Entry, error) {
	if len(l.visible) == 0 {
		return Entry{}, ErrEmpty
	}
	return l.visible[l.index], nil
}

// Next advances in list order, or to a random entry when shuffling.
func (l *Library) Next() (Entry, error) {
	n := len(l.visible)
	if n == 0 {
		return Entry{}, ErrEmpty
	}
	if l.shuffle {
		l.index = l.rnd.IntN(n)
	} else {
		l.index = (l.index + 1) % n
	}
	return l.visible[l.index], nil
}

func (l *Library) Prev() (Entry, error) {
	n := len(l.visible)
	if n == 0 {
		return Entry{}, ErrEmpty
	}
	l.index = (l.index - 1 + n) % n
	return l.visible[l.index], nil
}

func (l *Library) SetShuffle(on bool) { l.shuffle = on }
func (l *Library) Shuffle() bool      { return l.shuffle }
