// Package inbox submits transcripts dropped into a directory as case checks.
//
// A file named <meetingId>.txt is submitted once it stops changing. A caption
// file <meetingId>.vtt next to it, if present at that time, is attached for
// talk-time analytics.
package inbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/db"
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/Octopus-Moneycoach/coaching-ai/workers/casecheck"
	"github.com/fsnotify/fsnotify"
)

var logger = log.GetLogger("Inbox")

const (
	transcriptExt = ".txt"
	captionsExt   = ".vtt"
)

// Submitter queues a case check. *casecheck.Worker implements it.
type Submitter interface {
	Submit(s casecheck.Submission) (*db.CaseCheck, bool, error)
}

// Config holds inbox watcher configuration
type Config struct {
	Dir           string
	DebounceDelay time.Duration
}

// Watcher watches the inbox directory
type Watcher struct {
	cfg       Config
	submitter Submitter
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewWatcher creates an inbox watcher
func NewWatcher(cfg Config, submitter Submitter) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	w := &Watcher{
		cfg:       cfg,
		submitter: submitter,
		stopChan:  make(chan struct{}),
	}
	w.debouncer = newDebouncer(cfg.DebounceDelay, w.submitFile)
	return w
}

// Start creates the directory if needed, submits transcripts already present
// and begins watching for new ones
func (w *Watcher) Start() error {
	if w.cfg.Dir == "" {
		return errors.New("inbox directory is not configured")
	}
	if err := os.MkdirAll(w.cfg.Dir, 0755); err != nil {
		return err
	}

	var err error
	w.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.watcher.Add(w.cfg.Dir); err != nil {
		w.watcher.Close()
		return err
	}

	logger.Info().Str("dir", w.cfg.Dir).Msg("watching inbox")

	w.scan()

	w.wg.Add(1)
	go w.eventLoop()
	return nil
}

// Stop stops watching. Pending submissions are dropped.
func (w *Watcher) Stop() {
	w.debouncer.Stop()
	close(w.stopChan)
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()
	logger.Info().Msg("inbox watcher stopped")
}

// scan submits transcripts that arrived while the service was down.
// Already-known meetings are ignored by the submitter.
func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		logger.Error().Err(err).Msg("failed to scan inbox")
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && isTranscript(entry.Name()) {
			w.submitFile(filepath.Join(w.cfg.Dir, entry.Name()))
		}
	}
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !isTranscript(event.Name) {
		return
	}
	w.debouncer.Queue(event.Name)
}

// submitFile reads a transcript and its optional captions and submits them
func (w *Watcher) submitFile(path string) {
	meetingID := MeetingID(path)

	transcript, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to read transcript")
		return
	}
	if strings.TrimSpace(string(transcript)) == "" {
		logger.Debug().Str("path", path).Msg("empty transcript, waiting for content")
		return
	}

	var vtt []byte
	vttPath := strings.TrimSuffix(path, filepath.Ext(path)) + captionsExt
	if data, err := os.ReadFile(vttPath); err == nil {
		vtt = data
	}

	cc, created, err := w.submitter.Submit(casecheck.Submission{
		MeetingID:  meetingID,
		Transcript: string(transcript),
		VTT:        string(vtt),
	})
	if err != nil {
		logger.Error().Err(err).Str("meetingId", meetingID).Msg("failed to submit transcript")
		return
	}

	logger.Info().
		Str("meetingId", meetingID).
		Str("id", cc.ID).
		Bool("created", created).
		Bool("captions", len(vtt) > 0).
		Msg("inbox transcript submitted")
}

// MeetingID derives the meeting id from a transcript file name
func MeetingID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isTranscript(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), transcriptExt) && MeetingID(base) != ""
}
