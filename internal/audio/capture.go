package audio

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	framesPerBuffer = 1024
	// whisper needs at least 100ms of audio; short takes are padded to 200ms.
	minRecordedSamples = WhisperSampleRate / 5
	pollInterval       = 10 * time.Millisecond
)

// inputStream is the part of a started input stream the capture loop uses.
// Reads fill the frame the stream was opened with.
type inputStream interface {
	AvailableToRead() (int, error)
	Read() error
	Stop() error
	Close() error
}

// capture drains an inputStream on its own goroutine into a growing sample
// slice.
type capture struct {
	logger *zap.Logger

	mu      sync.Mutex
	stream  inputStream
	frame   []float32
	samples []float32
	running bool
	done    chan struct{}
}

func newCapture(logger *zap.Logger) *capture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &capture{logger: logger, frame: make([]float32, framesPerBuffer)}
}

// begin takes ownership of a started stream reading into c.frame.
func (c *capture) begin(stream inputStream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stream = stream
	c.samples = make([]float32, 0, WhisperSampleRate*30)
	c.done = make(chan struct{})
	c.running = true
	go c.loop(stream, c.done)
}

func (c *capture) loop(stream inputStream, done chan struct{}) {
	defer close(done)

	for c.isRecording() {
		available, err := stream.AvailableToRead()
		if err != nil || available == 0 {
			time.Sleep(pollInterval)
			continue
		}
		if err := stream.Read(); err != nil {
			c.logger.Debug("read input stream", zap.Error(err))
			time.Sleep(pollInterval)
			continue
		}

		c.mu.Lock()
		if c.running {
			c.samples = append(c.samples, c.frame...)
		}
		c.mu.Unlock()
	}
}

// end stops the stream, waits for the loop to exit and only then closes the
// stream, so the frame is never shared between two loops. Takes shorter than
// 200ms are padded with silence.
func (c *capture) end() Buffer {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return NewBuffer()
	}
	c.running = false
	stream := c.stream
	c.stream = nil
	samples := c.samples
	c.samples = nil
	done := c.done
	c.mu.Unlock()

	// stopping unblocks a Read in progress
	if err := stream.Stop(); err != nil {
		c.logger.Warn("stop input stream", zap.Error(err))
	}
	<-done
	if err := stream.Close(); err != nil {
		c.logger.Warn("close input stream", zap.Error(err))
	}

	if len(samples) < minRecordedSamples {
		samples = append(samples, make([]float32, minRecordedSamples-len(samples))...)
	}
	c.logger.Debug("recording stopped", zap.Int("samples", len(samples)))
	return FromSamples(samples, WhisperSampleRate)
}

func (c *capture) isRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
