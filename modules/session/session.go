package session

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"fitting-room-server/modules/common/utils"
)

// Slot - one of the two upload positions
type Slot string

const (
	SlotPerson Slot = "person"
	SlotOutfit Slot = "outfit"
)

// ParseSlot - "person" | "outfit"
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotPerson, SlotOutfit:
		return Slot(s), nil
	}
	return "", ErrUnknownSlot
}

// Phase - whole-page state
type Phase string

const (
	PhaseEmpty           Phase = "empty"
	PhasePartiallyLoaded Phase = "partially_loaded"
	PhaseReadyToGenerate Phase = "ready_to_generate"
	PhaseGenerating      Phase = "generating"
	PhaseSucceeded       Phase = "succeeded"
	PhaseFailed          Phase = "failed"
)

var (
	ErrUnknownSlot        = errors.New("unknown slot")
	ErrMissingInput       = errors.New("both a person image and an outfit image are required")
	ErrGenerationInFlight = errors.New("a generation is already in progress")
)

// EncodedImage - media type plus base64 content, immutable once built
type EncodedImage struct {
	MediaType string `json:"mediaType"`
	Content   string `json:"content"`
}

// DataURI - data:<mediaType>;base64,<content>
func (e EncodedImage) DataURI() string {
	return utils.DataURI(e.MediaType, e.Content)
}

// Preview - what the page shows for a filled slot
type Preview struct {
	Src    string `json:"src"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Display - everything the result area renders. Replaced wholesale, never merged.
type Display struct {
	ImageVisible bool   `json:"imageVisible"`
	ImageSrc     string `json:"imageSrc,omitempty"`
	DownloadHref string `json:"downloadHref,omitempty"`
	DownloadName string `json:"downloadName,omitempty"`
	ErrorVisible bool   `json:"errorVisible"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// SlotView - snapshot of one slot
type SlotView struct {
	Filled    bool     `json:"filled"`
	MediaType string   `json:"mediaType,omitempty"`
	Preview   *Preview `json:"preview,omitempty"`
}

// Snapshot - the full page state pushed to clients
type Snapshot struct {
	SessionID   string   `json:"sessionId"`
	Phase       Phase    `json:"phase"`
	Person      SlotView `json:"person"`
	Outfit      SlotView `json:"outfit"`
	CanGenerate bool     `json:"canGenerate"`
	Busy        bool     `json:"busy"`
	Display     Display  `json:"display"`
	Notice      string   `json:"notice,omitempty"`
}

type slotState struct {
	image   *EncodedImage
	preview *Preview
}

// Session - state of one browser session. All fields are guarded by mu;
// clients has its own lock so broadcasting never holds the state lock.
type Session struct {
	id string

	mu           sync.RWMutex
	person       slotState
	outfit       slotState
	inFlight     bool
	outcome      Phase // PhaseSucceeded / PhaseFailed until the next upload, else ""
	display      Display
	notice       string
	createdAt    time.Time
	lastActivity time.Time

	clientsMu sync.RWMutex
	clients   map[string]*Client

	// serializes snapshot+send so pushes reach clients in state order
	broadcastMu sync.Mutex
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		createdAt:    now,
		lastActivity: now,
		clients:      make(map[string]*Client),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) slot(slot Slot) *slotState {
	if slot == SlotPerson {
		return &s.person
	}
	return &s.outfit
}

// SetImage overwrites a slot regardless of phase, including while a
// generation is in flight. The other slot is left alone.
func (s *Session) SetImage(slot Slot, img EncodedImage, preview Preview) error {
	if _, err := ParseSlot(string(slot)); err != nil {
		return err
	}

	s.mu.Lock()
	st := s.slot(slot)
	st.image = &img
	st.preview = &preview
	s.outcome = ""
	s.notice = ""
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.broadcast()
	return nil
}

// Image returns a copy of the slot's payload, if any.
func (s *Session) Image(slot Slot) (EncodedImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.slot(slot)
	if st.image == nil {
		return EncodedImage{}, false
	}
	return *st.image, true
}

// CanGenerate - both slots filled and nothing in flight
func (s *Session) CanGenerate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canGenerateLocked()
}

func (s *Session) canGenerateLocked() bool {
	return s.person.image != nil && s.outfit.image != nil && !s.inFlight
}

// Phase - derived page state
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phaseLocked()
}

func (s *Session) phaseLocked() Phase {
	if s.inFlight {
		return PhaseGenerating
	}
	if s.outcome != "" {
		return s.outcome
	}
	switch {
	case s.person.image != nil && s.outfit.image != nil:
		return PhaseReadyToGenerate
	case s.person.image != nil || s.outfit.image != nil:
		return PhasePartiallyLoaded
	}
	return PhaseEmpty
}

// BeginGeneration captures both payloads and raises the in-flight flag.
// The error display is cleared; the previous image stays until replaced.
func (s *Session) BeginGeneration() (person, outfit EncodedImage, err error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return EncodedImage{}, EncodedImage{}, ErrGenerationInFlight
	}
	if s.person.image == nil || s.outfit.image == nil {
		s.mu.Unlock()
		return EncodedImage{}, EncodedImage{}, ErrMissingInput
	}

	person, outfit = *s.person.image, *s.outfit.image
	s.inFlight = true
	s.display.ErrorVisible = false
	s.display.ErrorMessage = ""
	s.notice = ""
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.broadcast()
	return person, outfit, nil
}

// FinishGeneration lowers the in-flight flag and installs the new display.
// outcome must be PhaseSucceeded or PhaseFailed.
func (s *Session) FinishGeneration(display Display, outcome Phase) {
	s.mu.Lock()
	s.inFlight = false
	s.display = display
	s.outcome = outcome
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.broadcast()
}

// ShowError replaces the display with an inline message without touching
// slots or phase (used for the missing-input report).
func (s *Session) ShowError(message string) {
	s.mu.Lock()
	s.display = Display{ErrorVisible: true, ErrorMessage: message}
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.broadcast()
}

// SetNotice shows a short upload notice; it is cleared by the next upload or attempt.
func (s *Session) SetNotice(message string) {
	s.mu.Lock()
	s.notice = message
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.broadcast()
}

// Clear empties both slots and the display.
func (s *Session) Clear() error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	s.person = slotState{}
	s.outfit = slotState{}
	s.outcome = ""
	s.display = Display{}
	s.notice = ""
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.broadcast()
	return nil
}

// Snapshot - consistent copy of the page state
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		SessionID:   s.id,
		Phase:       s.phaseLocked(),
		Person:      slotView(s.person),
		Outfit:      slotView(s.outfit),
		CanGenerate: s.canGenerateLocked(),
		Busy:        s.inFlight,
		Display:     s.display,
		Notice:      s.notice,
	}
}

func slotView(st slotState) SlotView {
	if st.image == nil {
		return SlotView{}
	}
	view := SlotView{Filled: true, MediaType: st.image.MediaType}
	if st.preview != nil {
		p := *st.preview
		view.Preview = &p
	}
	return view
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) times() (createdAt, lastActivity time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt, s.lastActivity
}

// broadcast pushes the current snapshot to every connected client. The
// snapshot is taken under broadcastMu, so the last push always carries the
// latest state even when broadcasts race.
func (s *Session) broadcast() {
	s.clientsMu.RLock()
	empty := len(s.clients) == 0
	s.clientsMu.RUnlock()
	if empty {
		return
	}

	s.broadcastMu.Lock()
	defer s.broadcastMu.Unlock()

	message, err := json.Marshal(stateMessage{Type: messageTypeState, State: s.Snapshot()})
	if err != nil {
		log.Printf("❌ [Session] Error marshaling snapshot: %v", err)
		return
	}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for clientID, client := range s.clients {
		select {
		case client.send <- message:
		default:
			log.Printf("⚠️  [Session] Client %s is not draining, dropping it", clientID)
			close(client.send)
			delete(s.clients, clientID)
		}
	}
}

func (s *Session) clientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
