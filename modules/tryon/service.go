package tryon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"fitting-room-server/modules/common/diagnostics"
	"fitting-room-server/modules/session"

	"github.com/google/uuid"
)

// Generator performs the single exchange with the image-editing service.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// AttemptCounter receives the outcome of every attempt (session.Manager).
type AttemptCounter interface {
	CountAttempt(succeeded bool)
}

type Service struct {
	generator Generator
	recorder  diagnostics.Recorder
	counter   AttemptCounter
	now       func() time.Time
}

func NewService(generator Generator, recorder diagnostics.Recorder, counter AttemptCounter) *Service {
	if recorder == nil {
		recorder = diagnostics.NewLogRecorder()
	}
	return &Service{
		generator: generator,
		recorder:  recorder,
		counter:   counter,
		now:       time.Now,
	}
}

// Upload reads one file into a slot. On a read failure the slot is left as
// it was and the page gets a notice.
func (s *Service) Upload(ctx context.Context, sess *session.Session, slot session.Slot, r io.Reader, declared string) (session.Preview, error) {
	img, preview, err := ReadUpload(r, declared)
	if err != nil {
		s.UploadFailed(ctx, sess, slot, err)
		return session.Preview{}, err
	}

	if err := sess.SetImage(slot, img, preview); err != nil {
		return session.Preview{}, err
	}

	log.Printf("📎 [TryOn] Session %s: %s slot set (%s, %d chars)", sess.ID(), slot, img.MediaType, len(img.Content))
	return preview, nil
}

// UploadFailed reports an unreadable upload.
func (s *Service) UploadFailed(ctx context.Context, sess *session.Session, slot session.Slot, cause error) {
	s.recorder.Record(ctx, diagnostics.Event{
		Kind:      diagnostics.KindUploadReadFailure,
		SessionID: sess.ID(),
		Slot:      string(slot),
		Detail:    cause.Error(),
		At:        s.now(),
	})
	sess.SetNotice(UploadReadNotice)
}

// Generate runs one generation attempt for the session. Attempt failures are
// not returned: they end up in the session display. The only errors are
// session.ErrMissingInput (reported inline, no call made) and
// session.ErrGenerationInFlight.
func (s *Service) Generate(ctx context.Context, sess *session.Session) (GenerationResult, error) {
	person, outfit, err := sess.BeginGeneration()
	if err != nil {
		if errors.Is(err, session.ErrMissingInput) {
			sess.ShowError(MissingInputMessage)
		}
		return GenerationResult{}, err
	}

	attemptID := uuid.NewString()
	started := s.now()
	result := GenerationResult{Message: GenericFailureMessage}

	defer func() {
		outcome := session.PhaseFailed
		if result.Succeeded() {
			outcome = session.PhaseSucceeded
		}
		sess.FinishGeneration(Present(result, s.now()), outcome)
		if s.counter != nil {
			s.counter.CountAttempt(result.Succeeded())
		}
	}()

	log.Printf("🎨 [TryOn] Session %s: attempt %s started", sess.ID(), attemptID)

	resp, err := s.call(ctx, &GenerateRequest{
		AttemptID:   attemptID,
		Person:      person,
		Outfit:      outfit,
		Instruction: Instruction,
	})
	event := diagnostics.Event{
		SessionID: sess.ID(),
		AttemptID: attemptID,
		Duration:  s.now().Sub(started).String(),
		At:        s.now(),
	}

	if err != nil {
		event.Kind = diagnostics.KindTransportFailure
		event.Detail = err.Error()
		s.recorder.Record(ctx, event)
		return result, nil
	}

	result = Resolve(resp)
	if result.Succeeded() {
		event.Kind = diagnostics.KindGenerated
	} else {
		event.Kind = diagnostics.KindServiceRefusal
		event.Detail = result.Message
	}
	s.recorder.Record(ctx, event)
	return result, nil
}

// call shields the attempt from a panicking client library.
func (s *Service) call(ctx context.Context, req *GenerateRequest) (resp *GenerateResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return s.generator.Generate(ctx, req)
}

// Resolve applies the resolution policy to the first candidate: an image part
// wins over any text, then the first text part exactly as sent, then the
// generic message.
func Resolve(resp *GenerateResponse) GenerationResult {
	if resp == nil || len(resp.Candidates) == 0 {
		return GenerationResult{Message: GenericFailureMessage}
	}

	parts := resp.Candidates[0].Parts
	for _, part := range parts {
		if part.Image != nil && part.Image.Content != "" {
			img := *part.Image
			return GenerationResult{Image: &img}
		}
	}
	for _, part := range parts {
		if part.Text != "" {
			return GenerationResult{Message: part.Text}
		}
	}
	return GenerationResult{Message: GenericFailureMessage}
}
