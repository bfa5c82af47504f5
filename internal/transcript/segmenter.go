package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDebounce is the quiet period before the accumulated text is re-split.
const DefaultDebounce = 60 * time.Millisecond

// Segment is one sentence of the live transcript.
type Segment struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Correction string `json:"correction,omitempty"`
}

// Display returns the correction when present, otherwise the recognized text.
func (s Segment) Display() string {
	if strings.TrimSpace(s.Correction) != "" {
		return s.Correction
	}
	return s.Text
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithOnUpdate registers a callback receiving every new segment list.
func WithOnUpdate(fn func([]Segment)) Option {
	return func(s *Segmenter) { s.onUpdate = fn }
}

// WithIDGenerator overrides segment ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Segmenter) { s.newID = fn }
}

// Segmenter accumulates transcription fragments and, after a debounce
// period with no new input, re-splits the whole text into segments.
type Segmenter struct {
	debounce time.Duration
	onUpdate func([]Segment)
	newID    func() string

	mu         sync.Mutex
	text       strings.Builder
	segments   []Segment
	timer      *time.Timer
	generation uint64
	stopped    bool
}

// NewSegmenter builds a segmenter. A non-positive debounce uses DefaultDebounce.
func NewSegmenter(debounce time.Duration, opts ...Option) *Segmenter {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	s := &Segmenter{
		debounce: debounce,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a fragment and restarts the debounce timer.
func (s *Segmenter) Append(fragment string) {
	if fragment == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.text.WriteString(fragment)
	s.generation++
	gen := s.generation
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(gen) })
}

// Flush cancels any pending debounce and re-splits immediately.
func (s *Segmenter) Flush() []Segment {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	segments := s.resplitLocked()
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(segments)
	}
	return cloneSegments(segments)
}

// Stop cancels the debounce timer. Later fragments are ignored until Reset.
func (s *Segmenter) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Reset clears the accumulated text and segments and re-arms the segmenter.
func (s *Segmenter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.text.Reset()
	s.segments = nil
	s.stopped = false
}

// Text returns the raw accumulated text.
func (s *Segmenter) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Segments returns a copy of the current segment list.
func (s *Segmenter) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSegments(s.segments)
}

// Correct records a user correction for a segment.
func (s *Segmenter) Correct(id string, correction string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.segments {
		if s.segments[i].ID == id {
			s.segments[i].Correction = strings.TrimSpace(correction)
			return nil
		}
	}
	return fmt.Errorf("segment %q not found", id)
}

// Final joins the displayed text of every segment.
func (s *Segmenter) Final() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FinalTranscript(s.segments)
}

// FinalTranscript joins the displayed text of segments with single spaces.
func FinalTranscript(segments []Segment) string {
	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		texts = append(texts, segment.Display())
	}
	return Assemble(texts)
}

func (s *Segmenter) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.stopped {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	segments := s.resplitLocked()
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(segments)
	}
}

// resplitLocked replaces the segment list. Corrections carry over to new
// segments whose recognized text matches a corrected segment.
func (s *Segmenter) resplitLocked() []Segment {
	corrections := make(map[string][]string)
	for _, segment := range s.segments {
		if segment.Correction != "" {
			corrections[segment.Text] = append(corrections[segment.Text], segment.Correction)
		}
	}

	sentences := Split(s.text.String())
	segments := make([]Segment, 0, len(sentences))
	for _, sentence := range sentences {
		segment := Segment{ID: s.newID(), Text: sentence}
		if pending := corrections[sentence]; len(pending) > 0 {
			segment.Correction = pending[0]
			corrections[sentence] = pending[1:]
		}
		segments = append(segments, segment)
	}

	s.segments = segments
	return cloneSegments(segments)
}

func cloneSegments(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}
