package recorder

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/loomcast/loomcast/internal/config"
	"github.com/loomcast/loomcast/internal/host"
)

var (
	// ErrNoVideoStream is returned by Start when no video source is supplied.
	ErrNoVideoStream = errors.New("recorder: no video stream")
	// ErrRecorderActive is returned when Start or Save is called while a
	// recording is still running.
	ErrRecorderActive = errors.New("recorder: recording in progress")
	// ErrUnsupportedCodec is returned when no codec pairing could be opened.
	ErrUnsupportedCodec = errors.New("recorder: no supported codec pairing")
)

// noRecordingData is the failure reported by Save when nothing was captured.
const noRecordingData = "NoRecordingData"

// EncodedSource is a live stream that can hand out encoded packet readers.
// The session's capture streams satisfy it.
type EncodedSource interface {
	ID() string
	NewEncodedReader(codec string) (io.ReadCloser, error)
}

// codecPairing is one container/codec combination, in preference order. The
// last entry is the bare-container fallback with no audio.
type codecPairing struct {
	mimeType   string
	videoCodec string
	audioCodec string
}

var codecPreferences = []codecPairing{
	{"video/webm;codecs=vp8,opus", "vp8", "opus"},
	{"video/webm;codecs=vp9,opus", "vp9", "opus"},
	{"video/webm;codecs=h264,opus", "h264", "opus"},
	{"video/webm", "vp8", ""},
}

// Packet framing tags.
const (
	tagVideo byte = 'v'
	tagAudio byte = 'a'
)

// Recorder multiplexes one video and optionally one audio source into
// timestamped binary chunks, flushed on a fixed interval. One recording at a
// time; chunks are consumed exactly once by Save.
type Recorder struct {
	logger hclog.Logger
	saver  host.RecordingSaver
	cfg    config.RecordingConfig

	mu        sync.Mutex
	recording bool
	mimeType  string
	chunks    [][]byte
	current   bytes.Buffer
	startTime time.Time
	duration  time.Duration

	readers []io.ReadCloser
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a recorder that routes saved recordings to the given saver.
func New(logger hclog.Logger, saver host.RecordingSaver, cfg config.RecordingConfig) *Recorder {
	return &Recorder{
		logger: logger.Named("recorder"),
		saver:  saver,
		cfg:    cfg,
	}
}

// Start opens encoded readers for the video source and, if present, the
// audio source, then begins capturing. It makes no state changes when the
// video source is missing or no codec pairing can be opened.
func (r *Recorder) Start(video, audio EncodedSource) error {
	if video == nil {
		return ErrNoVideoStream
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrRecorderActive
	}

	pairing, videoReader, audioReader, err := openReaders(video, audio)
	if err != nil {
		return err
	}

	r.recording = true
	r.mimeType = pairing.mimeType
	r.chunks = nil
	r.current.Reset()
	r.startTime = time.Now()
	r.duration = 0
	r.readers = []io.ReadCloser{videoReader}
	if audioReader != nil {
		r.readers = append(r.readers, audioReader)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go r.pump(tagVideo, videoReader)
	if audioReader != nil {
		r.wg.Add(1)
		go r.pump(tagAudio, audioReader)
	}
	go r.tick(ctx)

	r.logger.Info("recording started",
		"video_source", video.ID(),
		"with_audio", audioReader != nil,
		"mime_type", pairing.mimeType)
	return nil
}

// openReaders walks the codec preference list until a pairing opens for the
// supplied sources. Audio is required by a pairing only when the caller
// supplied an audio source.
func openReaders(video, audio EncodedSource) (codecPairing, io.ReadCloser, io.ReadCloser, error) {
	for _, pairing := range codecPreferences {
		videoReader, err := video.NewEncodedReader(pairing.videoCodec)
		if err != nil {
			continue
		}
		if audio == nil || pairing.audioCodec == "" {
			return pairing, videoReader, nil, nil
		}
		audioReader, err := audio.NewEncodedReader(pairing.audioCodec)
		if err != nil {
			videoReader.Close()
			continue
		}
		return pairing, videoReader, audioReader, nil
	}
	return codecPairing{}, nil, nil, ErrUnsupportedCodec
}

// pump copies encoded packets from one reader into the current chunk until
// the reader is closed.
func (r *Recorder) pump(tag byte, reader io.ReadCloser) {
	defer r.wg.Done()
	buf := make([]byte, 64*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			r.appendPacket(tag, buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// appendPacket frames one encoded packet: tag, payload length, and the
// capture timestamp in milliseconds since recording start.
func (r *Recorder) appendPacket(tag byte, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	var header [13]byte
	header[0] = tag
	binary.BigEndian.PutUint32(header[1:5], uint32(len(payload)))
	binary.BigEndian.PutUint64(header[5:13], uint64(time.Since(r.startTime).Milliseconds()))
	r.current.Write(header[:])
	r.current.Write(payload)
}

// tick seals the current chunk on the flush interval and samples the
// wall-clock duration, until the recording stops.
func (r *Recorder) tick(ctx context.Context) {
	flush := time.NewTicker(r.cfg.ChunkInterval)
	defer flush.Stop()
	sample := time.NewTicker(r.cfg.DurationSample)
	defer sample.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			r.sealChunk()
		case <-sample.C:
			r.mu.Lock()
			if r.recording {
				r.duration = time.Since(r.startTime)
			}
			r.mu.Unlock()
		}
	}
}

// sealChunk moves the accumulated packet bytes into the ordered chunk list.
func (r *Recorder) sealChunk() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current.Len() == 0 {
		return
	}
	chunk := make([]byte, r.current.Len())
	copy(chunk, r.current.Bytes())
	r.current.Reset()
	r.chunks = append(r.chunks, chunk)
}

// Stop halts capture, flushes the final chunk, and fixes the recording
// duration. It is idempotent: stopping an already-stopped recorder returns
// immediately. It returns only after capture has fully stopped, so the
// duration is final when it does.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.recording = false
	r.duration = time.Since(r.startTime)
	readers := r.readers
	r.readers = nil
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	for _, reader := range readers {
		reader.Close()
	}
	cancel()
	r.wg.Wait()
	r.sealChunk()

	r.logger.Info("recording stopped", "duration", r.Duration(), "chunks", len(r.chunks))
}

// Duration reports the recorded wall-clock time.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration
}

// MimeType reports the container/codec pairing chosen at start.
func (r *Recorder) MimeType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mimeType
}

// IsRecording reports whether a capture is running.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Save assembles the accumulated chunks into one buffer and hands it to the
// saver. Calling it while a recording is running is a caller error. With
// zero chunks it fails as a result value without crossing the saver
// boundary. The chunk buffer is cleared only on a successful save.
func (r *Recorder) Save(ctx context.Context, opts host.SaveOptions) (host.SaveResult, error) {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return host.SaveResult{}, ErrRecorderActive
	}
	if len(r.chunks) == 0 {
		r.mu.Unlock()
		return host.SaveResult{Success: false, Error: noRecordingData}, nil
	}
	var buffer bytes.Buffer
	for _, chunk := range r.chunks {
		buffer.Write(chunk)
	}
	mimeType := r.mimeType
	r.mu.Unlock()

	result, err := r.saver.SaveRecording(ctx, host.SaveRequest{
		Buffer:   buffer.Bytes(),
		MimeType: mimeType,
		Options:  opts,
	})
	if err != nil {
		return host.SaveResult{}, fmt.Errorf("failed to save recording: %w", err)
	}
	if result.Success {
		r.mu.Lock()
		r.chunks = nil
		r.mu.Unlock()
	}
	return result, nil
}
