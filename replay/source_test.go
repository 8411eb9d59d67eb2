package replay

import (
	"compress/gzip"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sealane/aistrack/ais"
	"github.com/sealane/aistrack/internal/aistime"
)

type fakeSink struct {
	mu        sync.Mutex
	sentences []string
	timestamps []time.Time
}

func (f *fakeSink) SendSentence(source string, sentence ais.Sentence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentences = append(f.sentences, sentence.Raw)
	f.timestamps = append(f.timestamps, sentence.Timestamp)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sentences)
}

func TestFastReplayDrainsAllInputsInOrder(t *testing.T) {
	body := "!AIVDM,1,1,,A,1,*00\n!AIVDM,1,1,,A,2,*00\n"
	sink := &fakeSink{}
	src := New([]Input{{Reader: strings.NewReader(body), Name: "test"}}, sink, aistime.Real{}, false)

	src.StartDecode()
	src.StopDecode()

	if sink.count() != 2 {
		t.Fatalf("expected 2 sentences, got %d", sink.count())
	}
	if sink.sentences[0] != "!AIVDM,1,1,,A,1,*00" || sink.sentences[1] != "!AIVDM,1,1,,A,2,*00" {
		t.Fatalf("got sentences %v", sink.sentences)
	}
}

func TestFastReplayMultipleInputsInGivenOrder(t *testing.T) {
	sink := &fakeSink{}
	src := New([]Input{
		{Reader: strings.NewReader("A\n"), Name: "first"},
		{Reader: strings.NewReader("B\n"), Name: "second"},
	}, sink, aistime.Real{}, false)

	src.StartDecode()
	src.StopDecode()

	if sink.count() != 2 || sink.sentences[0] != "A" || sink.sentences[1] != "B" {
		t.Fatalf("got sentences %v", sink.sentences)
	}
}

func TestGzipInputIsTransparentlyDecompressed(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "replay-*.gz")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	gz := gzip.NewWriter(f)
	gz.Write([]byte("GZIPPED SENTENCE\n"))
	gz.Close()
	f.Close()

	sink := &fakeSink{}
	src := New([]Input{{Path: f.Name()}}, sink, aistime.Real{}, false)
	src.StartDecode()
	src.StopDecode()

	if sink.count() != 1 || sink.sentences[0] != "GZIPPED SENTENCE" {
		t.Fatalf("expected the gzip payload's single line decompressed, got %v", sink.sentences)
	}
}

func TestRealtimeReplayPacesToReferenceAndDropsUnreferenced(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	zda := base.Format(time.RFC3339Nano) + "|$GPZDA,000000.00,01,01,2024,00,00*00"
	before := base.Add(-time.Second).Format(time.RFC3339Nano) + "|DROPPED BEFORE REFERENCE"
	first := base.Add(2 * time.Second).Format(time.RFC3339Nano) + "|FIRST"
	second := base.Add(5 * time.Second).Format(time.RFC3339Nano) + "|SECOND"
	body := strings.Join([]string{before, zda, first, second}, "\n") + "\n"

	clock := aistime.NewMock(base)
	sink := &fakeSink{}
	src := New([]Input{{Reader: strings.NewReader(body)}}, sink, clock, true)

	src.StartDecode()

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 3 && time.Now().Before(deadline) {
		clock.Advance(time.Second)
		time.Sleep(time.Millisecond)
	}

	src.StopDecode()

	// "before" predates the ZDA reference and is dropped silently; the ZDA
	// sentence itself establishes the reference and is still emitted, since
	// it's a real sentence the downstream manager still needs to see.
	if sink.count() != 3 {
		t.Fatalf("expected the ZDA sentence plus the 2 post-reference sentences, got %d: %v", sink.count(), sink.sentences)
	}
	if !strings.HasSuffix(sink.sentences[0], "ZDA,000000.00,01,01,2024,00,00*00") {
		t.Fatalf("expected the ZDA sentence first, got %v", sink.sentences)
	}
	if sink.sentences[1] != "FIRST" || sink.sentences[2] != "SECOND" {
		t.Fatalf("got sentences %v", sink.sentences)
	}
}

func TestIsZDARecognisesTalkerSuffix(t *testing.T) {
	cases := map[string]bool{
		"$GPZDA,000000.00,01,01,2024,00,00*00": true,
		"!AIVDM,1,1,,A,1,*00":                   false,
		"":                                      false,
		"$ZDA":                                  false,
	}
	for raw, want := range cases {
		if got := isZDA(raw); got != want {
			t.Errorf("isZDA(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestSplitTimestampedLineRecognisesPipeFormat(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	line := ts.Format(time.RFC3339Nano) + "|SENTENCE"

	sentence, parsed, ok := splitTimestampedLine(line)
	if !ok || sentence != "SENTENCE" || !parsed.Equal(ts) {
		t.Fatalf("got sentence=%q parsed=%v ok=%v", sentence, parsed, ok)
	}

	sentence, _, ok = splitTimestampedLine("PLAIN SENTENCE")
	if ok || sentence != "PLAIN SENTENCE" {
		t.Fatalf("expected no timestamp to be recognised in a plain line, got sentence=%q ok=%v", sentence, ok)
	}
}

func TestStopDecodeIsIdempotentAndSafeBeforeStart(t *testing.T) {
	sink := &fakeSink{}
	src := New(nil, sink, aistime.Real{}, false)
	src.StopDecode()
	src.StartDecode()
	src.StopDecode()
	src.StopDecode()
}
