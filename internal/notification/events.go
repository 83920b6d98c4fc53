package notification

import (
	"sync"

	"go.uber.org/zap"
)

// EventKind discriminates bus events.
type EventKind string

const (
	EventGradeUpdated      EventKind = "grade_updated"
	EventPPDBStatusChanged EventKind = "ppdb_status_changed"
	EventLibraryUpdated    EventKind = "library_updated"
	EventMeetingRequested  EventKind = "meeting_requested"
	EventScheduleChanged   EventKind = "schedule_changed"
	EventAttendanceAlert   EventKind = "attendance_alert"
	EventOCRValidated      EventKind = "ocr_validated"
)

// Event is the closed set of payloads carried by the bus. Using concrete
// payload types instead of string-keyed maps keeps consumers type-safe.
type Event interface {
	Kind() EventKind
}

type GradeUpdatedEvent struct {
	StudentID   string
	StudentName string
	Subject     string
	Score       float64
	MaxScore    float64
}

func (GradeUpdatedEvent) Kind() EventKind { return EventGradeUpdated }

type PPDBStatusEvent struct {
	RegistrationID string
	ApplicantName  string
	Status         string
}

func (PPDBStatusEvent) Kind() EventKind { return EventPPDBStatusChanged }

type LibraryUpdatedEvent struct {
	MaterialID string
	Title      string
	Subject    string
}

func (LibraryUpdatedEvent) Kind() EventKind { return EventLibraryUpdated }

type MeetingRequestedEvent struct {
	TeacherName string
	ParentID    string
	Topic       string
	When        string
}

func (MeetingRequestedEvent) Kind() EventKind { return EventMeetingRequested }

type ScheduleChangedEvent struct {
	ClassName string
	Subject   string
	Detail    string
}

func (ScheduleChangedEvent) Kind() EventKind { return EventScheduleChanged }

type AttendanceAlertEvent struct {
	StudentID   string
	StudentName string
	Detail      string
}

func (AttendanceAlertEvent) Kind() EventKind { return EventAttendanceAlert }

type OCRValidatedEvent struct {
	DocumentID   string
	DocumentType string
	Severity     string
}

func (OCRValidatedEvent) Kind() EventKind { return EventOCRValidated }

// Listener receives bus events. Listeners must not block.
type Listener func(Event)

// Bus is a synchronous in-process event bus. Fan-out is ordered within a
// kind's listener set (registration order) with no ordering guarantee
// across kinds. A panicking listener is recovered and logged so it cannot
// break emission to the others. Emitted events are also forwarded to a
// buffered bridge channel for consumers outside the registry, replacing
// the DOM custom-event bridge of the web client.
type Bus struct {
	mu        sync.RWMutex
	listeners map[EventKind][]registration
	nextToken int
	bridge    chan Event
	log       *zap.Logger
}

type registration struct {
	token int
	fn    Listener
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[EventKind][]registration),
		bridge:    make(chan Event, 64),
		log:       log,
	}
}

// Subscribe registers a listener for one event kind and returns an
// unsubscribe func.
func (b *Bus) Subscribe(kind EventKind, fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextToken++
	token := b.nextToken
	b.listeners[kind] = append(b.listeners[kind], registration{token: token, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		regs := b.listeners[kind]
		for i, reg := range regs {
			if reg.token == token {
				b.listeners[kind] = append(regs[:i], regs[i+1:]...)
				return
			}
		}
	}
}

// Emit synchronously invokes all listeners registered for the event's
// kind, then forwards the event to the bridge channel. The bridge send
// never blocks; events are dropped (and logged) when the channel is full.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	regs := make([]registration, len(b.listeners[e.Kind()]))
	copy(regs, b.listeners[e.Kind()])
	b.mu.RUnlock()

	for _, reg := range regs {
		b.invoke(reg.fn, e)
	}

	select {
	case b.bridge <- e:
	default:
		b.log.Warn("Event bridge full, dropping event", zap.String("kind", string(e.Kind())))
	}
}

func (b *Bus) invoke(fn Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event listener panicked",
				zap.String("kind", string(e.Kind())),
				zap.Any("panic", r))
		}
	}()
	fn(e)
}

// Watch exposes the bridge channel.
func (b *Bus) Watch() <-chan Event {
	return b.bridge
}
