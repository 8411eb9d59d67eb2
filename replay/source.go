// Package replay drives recorded NMEA sentence logs into an AIS manager,
// either as fast as possible or paced to the cadence the log was originally
// captured at.
package replay

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sealane/aistrack/ais"
	"github.com/sealane/aistrack/internal/aistime"
)

// Sink receives every sentence the source emits. *ais.Manager satisfies
// this directly via SendSentence.
type Sink interface {
	SendSentence(source string, sentence ais.Sentence) error
}

// Input is one recorded stream: either a file path (opened and, if
// gzip-compressed, transparently decompressed) or an already-open reader
// the caller owns.
type Input struct {
	Path   string
	Reader io.Reader
	Name   string
}

func (in Input) name() string {
	if in.Name != "" {
		return in.Name
	}
	return in.Path
}

// Source replays one or more Inputs into a Sink.
type Source struct {
	inputs   []Input
	sink     Sink
	clock    aistime.Clock
	realtime bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New constructs a replay source. realtime selects pacing mode: false (the
// default) drives inputs through as fast as possible, true paces output to
// the original recording cadence once a ZDA reference sentence is seen.
func New(inputs []Input, sink Sink, clock aistime.Clock, realtime bool) *Source {
	return &Source{inputs: inputs, sink: sink, clock: clock, realtime: realtime}
}

// StartDecode begins replay on a dedicated goroutine. Calling it while
// already running is a no-op.
func (s *Source) StartDecode() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.run(stop, done)
}

// StopDecode ends replay. In fast mode it first blocks until the goroutine
// has replayed every input to its end (matching spec.md §4.7: fast replay
// finishes deterministically); in realtime mode it signals the goroutine to
// stop and returns immediately, since the goroutine may otherwise be asleep
// for an arbitrarily long time.
func (s *Source) StopDecode() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	realtime := s.realtime
	s.mu.Unlock()

	if !realtime {
		<-done
	}
	close(stop)
}

func (s *Source) run(stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	var pacer pacer
	for _, in := range s.inputs {
		if !s.replayInput(in, stop, &pacer) {
			return
		}
	}
}

// replayInput streams one input to completion (or until stop fires, in
// which case it returns false so run() stops visiting further inputs).
func (s *Source) replayInput(in Input, stop <-chan struct{}, p *pacer) bool {
	reader, closer, err := openInput(in)
	if err != nil {
		return true
	}
	if closer != nil {
		defer closer.Close()
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-stop:
			return false
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		raw, recordedAt, hasRecordedAt := splitTimestampedLine(line)

		if s.realtime {
			now := s.clock.Now()
			if hasRecordedAt && isZDA(raw) {
				p.setReference(recordedAt, now)
			}
			if !p.hasReference() {
				// Sentences before the reference is established are
				// dropped silently, per spec.md §4.7.
				continue
			}
			if hasRecordedAt {
				wait := p.due(recordedAt).Sub(now)
				if wait > 0 && !s.sleep(stop, wait) {
					return false
				}
			}
			now = s.clock.Now()
			s.sink.SendSentence(in.name(), ais.Sentence{Raw: raw, Timestamp: now})
			continue
		}

		ts := recordedAt
		if !hasRecordedAt {
			ts = s.clock.Now()
		}
		s.sink.SendSentence(in.name(), ais.Sentence{Raw: raw, Timestamp: ts})
	}
	return true
}

func (s *Source) sleep(stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-s.clock.After(d):
		return true
	}
}

// pacer implements the referenceInLog/referenceNow pair realtime mode uses
// to map a recorded timestamp onto a due wall-clock time.
type pacer struct {
	referenceInLog time.Time
	referenceNow   time.Time
	has            bool
}

func (p *pacer) setReference(recordedAt, now time.Time) {
	if p.has {
		return
	}
	p.referenceInLog = recordedAt
	p.referenceNow = now
	p.has = true
}

func (p *pacer) hasReference() bool { return p.has }

func (p *pacer) due(recordedAt time.Time) time.Time {
	return p.referenceNow.Add(recordedAt.Sub(p.referenceInLog))
}

// isZDA reports whether raw is a ZDA ("TimeDate") sentence, by its talker
// identifier suffix — the cheap, textual check spec.md §4.7 describes, not
// a full sentence field parse.
func isZDA(raw string) bool {
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.TrimPrefix(raw, "!")
	comma := strings.IndexByte(raw, ',')
	if comma < 5 {
		return false
	}
	return strings.HasSuffix(raw[:comma], "ZDA")
}

// splitTimestampedLine recognises the pipe-delimited log format
// ("<RFC3339Nano timestamp>|<sentence>"); plain sentence-per-line files
// have no embedded timestamp, and ok is false.
func splitTimestampedLine(line string) (sentence string, ts time.Time, ok bool) {
	i := strings.IndexByte(line, '|')
	if i < 0 {
		return line, time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339Nano, line[:i])
	if err != nil {
		return line, time.Time{}, false
	}
	return line[i+1:], parsed, true
}

func openInput(in Input) (io.Reader, io.Closer, error) {
	if in.Reader != nil {
		return in.Reader, nil, nil
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return nil, nil, err
	}

	peek := bufio.NewReader(f)
	magic, err := peek.Peek(2)
	if err == nil && len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(peek)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return gz, multiCloser{gz, f}, nil
	}
	return peek, f, nil
}

// multiCloser closes the gzip reader before the underlying file.
type multiCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (m multiCloser) Close() error {
	_ = m.gz.Close()
	return m.file.Close()
}
